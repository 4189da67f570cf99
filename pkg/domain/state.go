package domain

import "fmt"

// PropertyKind names a hardware-affecting setting.
type PropertyKind string

// PropertyBaud retunes a serial connection's baud rate.
const PropertyBaud PropertyKind = "baud"

// Property is a hardware setting applied to a connection when a state is
// entered.
type Property struct {
	Kind  PropertyKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Value int          `json:"value" yaml:"value" mapstructure:"value"`
	// Connection restricts the property to one connection label.
	// Empty applies it to every serial connection.
	Connection string `json:"connection,omitempty" yaml:"connection,omitempty" mapstructure:"connection"`
}

// Baud is shorthand for a baud Property on every serial connection.
func Baud(rate int) Property {
	return Property{Kind: PropertyBaud, Value: rate}
}

// AppliesTo reports whether the property targets the connection label.
func (p Property) AppliesTo(label string) bool {
	return p.Connection == "" || p.Connection == label
}

func (p Property) String() string {
	if p.Connection != "" {
		return fmt.Sprintf("%s=%d@%s", p.Kind, p.Value, p.Connection)
	}
	return fmt.Sprintf("%s=%d", p.Kind, p.Value)
}

// State is a named classification of device behaviour.
type State struct {
	Name       string     `json:"name" yaml:"name" mapstructure:"name"`
	Properties []Property `json:"properties,omitempty" yaml:"properties,omitempty" mapstructure:"properties"`
}

// Transition is a rule moving the device into To from any of From.
// An empty From means every other state.
type Transition struct {
	To       string    `json:"to" yaml:"to" mapstructure:"to"`
	From     []string  `json:"from,omitempty" yaml:"from,omitempty" mapstructure:"from"`
	Actions  []Action  `json:"actions,omitempty" yaml:"actions,omitempty" mapstructure:"actions"`
	Triggers []Trigger `json:"triggers,omitempty" yaml:"triggers,omitempty" mapstructure:"triggers"`
}

// IsWildcard reports whether the transition applies from every state.
func (t *Transition) IsWildcard() bool {
	return len(t.From) == 0
}

// BackfillTriggers copies the transition's endpoints onto its triggers.
// A trigger that declares its own From keeps it.
func (t *Transition) BackfillTriggers() {
	for i := range t.Triggers {
		tr := &t.Triggers[i]
		if len(tr.From) == 0 {
			tr.From = append([]string(nil), t.From...)
		}
		tr.To = t.To
	}
}
