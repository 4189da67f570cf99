package config

import (
	"fmt"
	"reflect"

	"github.com/aretw0/fbug/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

var (
	connectionInfoType = reflect.TypeOf(ConnectionInfo{})
	controlType        = reflect.TypeOf(Control{})
	propertyType       = reflect.TypeOf(domain.Property{})
	controlActionType  = reflect.TypeOf(domain.ControlAction(""))
)

// decode maps a generic YAML document onto out. Tagged unions and the
// property shorthand are resolved by decode hooks.
func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			controlActionHook,
			propertyHook,
			connectionHook,
			controlHook,
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func controlActionHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != controlActionType || from.Kind() != reflect.String {
		return data, nil
	}
	return domain.ParseControlAction(reflect.ValueOf(data).String())
}

// propertyHook accepts `{baud: 9600}` with an optional `connection` key.
func propertyHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != propertyType {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	if _, explicit := m["kind"]; explicit {
		return data, nil
	}

	var p domain.Property
	for k, v := range m {
		if k == "connection" {
			if err := decode(v, &p.Connection); err != nil {
				return nil, fmt.Errorf("property connection: %w", err)
			}
			continue
		}
		if p.Kind != "" {
			return nil, fmt.Errorf("property declares both %q and %q", p.Kind, k)
		}
		switch domain.PropertyKind(k) {
		case domain.PropertyBaud:
		default:
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProperty, k)
		}
		p.Kind = domain.PropertyKind(k)
		if err := decode(v, &p.Value); err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
	}
	if p.Kind == "" {
		return nil, fmt.Errorf("%w: empty property", domain.ErrUnknownProperty)
	}
	return p, nil
}

func connectionHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != connectionInfoType {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}

	kind, _ := m["type"].(string)
	body := without(m, "type")
	info := ConnectionInfo{Type: ConnectionKind(kind)}

	switch info.Type {
	case KindSerial:
		sc := &SerialConfig{Label: DefaultSerialLabel, Baud: DefaultBaud, Lines: true}
		if err := decode(body, sc); err != nil {
			return nil, fmt.Errorf("serial connection: %w", err)
		}
		info.Serial = sc
	case KindUSB:
		uc := &USBConfig{Label: DefaultUSBLabel}
		if err := decode(body, uc); err != nil {
			return nil, fmt.Errorf("usb connection: %w", err)
		}
		info.USB = uc
	case KindSSH:
		sc := &SSHConfig{Label: DefaultSSHLabel}
		if err := decode(body, sc); err != nil {
			return nil, fmt.Errorf("ssh connection: %w", err)
		}
		info.SSH = sc
	default:
		return nil, fmt.Errorf("unknown connection type %q", kind)
	}
	return info, nil
}

func controlHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != controlType {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}

	// The header has no hook of its own; decoding into Control here would
	// re-enter this hook.
	var header struct {
		Name       string      `mapstructure:"name"`
		Connection string      `mapstructure:"connection"`
		Type       ControlKind `mapstructure:"type"`
	}
	common := map[string]any{}
	for _, k := range []string{"name", "connection", "type"} {
		if v, ok := m[k]; ok {
			common[k] = v
		}
	}
	if err := decode(common, &header); err != nil {
		return nil, err
	}
	c := Control{Name: header.Name, Connection: header.Connection, Type: header.Type}

	body := without(m, "name", "connection", "type")
	switch c.Type {
	case ControlButton:
		c.Button = &ButtonControl{}
		if err := decode(body, c.Button); err != nil {
			return nil, fmt.Errorf("button control %s: %w", c.Name, err)
		}
	case ControlCommand:
		c.Command = &CommandControl{}
		if err := decode(body, c.Command); err != nil {
			return nil, fmt.Errorf("command control %s: %w", c.Name, err)
		}
	default:
		return nil, fmt.Errorf("control %s: unknown type %q", c.Name, c.Type)
	}
	return c, nil
}

func without(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
