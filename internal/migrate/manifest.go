package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Action string

const (
	ActionCreateView              Action = "create_view"
	ActionUpdateView              Action = "update_view"
	ActionDropView                Action = "drop_view"
	ActionRefreshMaterializedView Action = "refresh_materialized_view"
	ActionCreateFunction          Action = "create_function"
	ActionDropFunction            Action = "drop_function"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

type (
	// Manifest is one migration: the steps to apply it and the steps to roll it back.
	Manifest struct {
		Name string `yaml:"name"`
		Up   []Step `yaml:"up"`
		Down []Step `yaml:"down"`
	}

	Step struct {
		Action Action `yaml:"action"`
		Name   string `yaml:"name"`
		// Version selects the definition file for create_view, update_view and create_function
		Version int `yaml:"version,omitempty"`

		Materialized  bool `yaml:"materialized,omitempty"`
		NoData        bool `yaml:"no_data,omitempty"`
		IfExists      bool `yaml:"if_exists,omitempty"`
		Concurrently  bool `yaml:"concurrently,omitempty"`
		VerifyIndexes bool `yaml:"verify_indexes,omitempty"`

		Arguments []Argument `yaml:"arguments,omitempty"`
		Returns   string     `yaml:"returns,omitempty"`
	}

	Argument struct {
		Mode string `yaml:"mode,omitempty"`
		Name string `yaml:"name,omitempty"`
		Type string `yaml:"type"`
		// Default is the SQL default expression, nil when the key is absent. `default: "0"` is a default, and so is
		// `default: null`, which means DEFAULT NULL.
		Default *string `yaml:"default,omitempty"`
	}
)

const sqlNull = "NULL"

// UnmarshalYAML decodes an argument so that the presence of the default key decides whether there is a default. The
// stock decoder turns `default: null` into a nil pointer, which would silently drop an explicit DEFAULT NULL.
func (a *Argument) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: argument must be a mapping", value.Line)
	}

	var arg Argument
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		switch key.Value {
		case "mode":
			if err := val.Decode(&arg.Mode); err != nil {
				return err
			}
		case "name":
			if err := val.Decode(&arg.Name); err != nil {
				return err
			}
		case "type":
			if err := val.Decode(&arg.Type); err != nil {
				return err
			}
		case "default":
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: default must be a scalar SQL expression", val.Line)
			}
			def := val.Value
			if val.ShortTag() == "!!null" {
				def = sqlNull
			}
			arg.Default = &def
		default:
			// Node.Decode does not inherit KnownFields, so unknown keys are rejected here.
			return fmt.Errorf("line %d: field %s not found in argument", key.Line, key.Value)
		}
	}
	*a = arg
	return nil
}

// Steps returns the steps to run in the given direction.
func (m Manifest) Steps(direction Direction) ([]Step, error) {
	switch direction {
	case DirectionUp:
		return m.Up, nil
	case DirectionDown:
		return m.Down, nil
	}
	return nil, fmt.Errorf("unknown direction %q", direction)
}

// Parse decodes a manifest. Unknown keys are rejected, so a typo cannot silently drop an option.
func Parse(r io.Reader) (Manifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return Manifest{}, fmt.Errorf("manifest is empty")
		}
		return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	if err := manifest.validate(); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

func LoadFile(path string) (Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	manifest, err := Parse(bytes.NewReader(content))
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return manifest, nil
}

func (m Manifest) validate() error {
	if len(m.Up) == 0 {
		return fmt.Errorf("manifest %q has no up steps", m.Name)
	}
	for _, direction := range []Direction{DirectionUp, DirectionDown} {
		steps, _ := m.Steps(direction)
		for i, step := range steps {
			if err := step.validate(); err != nil {
				return fmt.Errorf("%s step %d: %w", direction, i, err)
			}
		}
	}
	return nil
}

func (s Step) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch s.Action {
	case ActionCreateView, ActionUpdateView, ActionCreateFunction:
		if s.Version <= 0 {
			return fmt.Errorf("%s %s: a positive version is required", s.Action, s.Name)
		}
	case ActionDropView, ActionRefreshMaterializedView, ActionDropFunction:
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	if len(s.Arguments) > 0 && s.Action != ActionCreateFunction {
		return fmt.Errorf("%s %s: arguments are only allowed for %s", s.Action, s.Name, ActionCreateFunction)
	}
	return nil
}
