package config

import (
	"github.com/aretw0/fbug/pkg/domain"
)

// Defaults applied when a connection omits the field.
const (
	DefaultSerialLabel = "UART"
	DefaultUSBLabel    = "USB"
	DefaultSSHLabel    = "SSH"
	DefaultBaud        = 115200
)

// ConnectionKind is the `type` tag of a connection descriptor.
type ConnectionKind string

const (
	KindSerial ConnectionKind = "serial"
	KindUSB    ConnectionKind = "usb"
	KindSSH    ConnectionKind = "ssh"
)

// SerialConfig describes a serial port connection.
type SerialConfig struct {
	Label string `json:"label" mapstructure:"label"`
	Getty bool   `json:"getty" mapstructure:"getty"`
	Path  string `json:"path" mapstructure:"path"`
	Baud  int    `json:"baud" mapstructure:"baud"`
	// Lines frames output on newlines. When false raw chunks are emitted.
	Lines bool `json:"lines" mapstructure:"lines"`
}

// USBConfig is accepted but no handle is produced for it.
type USBConfig struct {
	Label string `json:"label" mapstructure:"label"`
	Port  string `json:"port" mapstructure:"port"`
}

// SSHConfig is accepted but no handle is produced for it.
type SSHConfig struct {
	Label string `json:"label" mapstructure:"label"`
	Host  string `json:"host" mapstructure:"host"`
	Port  int    `json:"port" mapstructure:"port"`
}

// ConnectionInfo is a tagged union over the connection kinds. Exactly one of
// the pointers matching Type is set.
type ConnectionInfo struct {
	Type   ConnectionKind `json:"type"`
	Serial *SerialConfig  `json:"serial,omitempty"`
	USB    *USBConfig     `json:"usb,omitempty"`
	SSH    *SSHConfig     `json:"ssh,omitempty"`
}

// Label returns the label of whichever variant is set.
func (c ConnectionInfo) Label() string {
	switch {
	case c.Serial != nil:
		return c.Serial.Label
	case c.USB != nil:
		return c.USB.Label
	case c.SSH != nil:
		return c.SSH.Label
	}
	return ""
}

// NewSerial is a convenience constructor with defaults filled in.
func NewSerial(label, path string, baud int) ConnectionInfo {
	if label == "" {
		label = DefaultSerialLabel
	}
	if baud == 0 {
		baud = DefaultBaud
	}
	return ConnectionInfo{
		Type:   KindSerial,
		Serial: &SerialConfig{Label: label, Path: path, Baud: baud, Lines: true},
	}
}

// ControlKind is the `type` tag of a control descriptor.
type ControlKind string

const (
	ControlButton  ControlKind = "button"
	ControlCommand ControlKind = "command"
)

// Line is the modem line a button control drives.
type Line string

const (
	LineDTR     Line = "dtr"
	LineRTS     Line = "rts"
	LineCommand Line = "command"
)

// ButtonControl toggles a modem line.
type ButtonControl struct {
	Action Line `json:"action" mapstructure:"action"`
}

// CommandControl sends a string to turn a control on or off.
type CommandControl struct {
	CommandOn  string `json:"command_on" mapstructure:"command-on"`
	CommandOff string `json:"command_off" mapstructure:"command-off"`
}

// Control is a physical or logical control reachable through a connection.
type Control struct {
	Name       string          `json:"name" mapstructure:"name"`
	Connection string          `json:"connection" mapstructure:"connection"`
	Type       ControlKind     `json:"type" mapstructure:"type"`
	Button     *ButtonControl  `json:"button,omitempty" mapstructure:"-"`
	Command    *CommandControl `json:"command,omitempty" mapstructure:"-"`
}

// Device is the root of a device configuration file.
type Device struct {
	Name         string              `json:"name" mapstructure:"name"`
	Codename     string              `json:"codename" mapstructure:"codename"`
	Description  string              `json:"description,omitempty" mapstructure:"description"`
	Username     string              `json:"username,omitempty" mapstructure:"username"`
	Password     string              `json:"-" mapstructure:"password"`
	RestingState string              `json:"resting_state,omitempty" mapstructure:"resting-state"`
	Connections  []ConnectionInfo    `json:"connections" mapstructure:"connections"`
	Controls     []Control           `json:"controls" mapstructure:"controls"`
	States       []domain.State      `json:"states" mapstructure:"states"`
	Transitions  []domain.Transition `json:"transitions" mapstructure:"transitions"`
}

// SerialConnections returns the serial descriptors in declaration order.
func (d *Device) SerialConnections() []SerialConfig {
	var out []SerialConfig
	for _, c := range d.Connections {
		if c.Serial != nil {
			out = append(out, *c.Serial)
		}
	}
	return out
}

// Connection finds a descriptor by label.
func (d *Device) Connection(label string) (ConnectionInfo, bool) {
	for _, c := range d.Connections {
		if c.Label() == label {
			return c, true
		}
	}
	return ConnectionInfo{}, false
}
