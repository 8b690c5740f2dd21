package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type ToolKind int

const (
	// ToolEmpty means no tool is configured.
	ToolEmpty ToolKind = iota
	// ToolSimple is a bare command string with no arguments.
	ToolSimple
	// ToolFull is a command with an argument list.
	ToolFull
)

func (k ToolKind) String() string {
	switch k {
	case ToolSimple:
		return "simple"
	case ToolFull:
		return "full"
	default:
		return "empty"
	}
}

// Tool is the deployment command run inside the checkout. In YAML it is
// either a string or a mapping with command and arguments.
type Tool struct {
	Kind      ToolKind
	Command   string
	Arguments []string
}

func SimpleTool(command string) Tool {
	return Tool{Kind: ToolSimple, Command: command}
}

func FullTool(command string, arguments ...string) Tool {
	return Tool{Kind: ToolFull, Command: command, Arguments: arguments}
}

// IsEmpty reports whether there is no command to run, whatever the kind.
func (t Tool) IsEmpty() bool {
	return t.Command == ""
}

// IsZero lets yaml omit an unset tool.
func (t Tool) IsZero() bool {
	return t.Kind == ToolEmpty && t.Command == "" && len(t.Arguments) == 0
}

// Args returns the arguments to pass to the command. Only full tools have any.
func (t Tool) Args() []string {
	if t.Kind != ToolFull {
		return nil
	}
	return t.Arguments
}

func (t Tool) String() string {
	if len(t.Args()) == 0 {
		return t.Command
	}
	return t.Command + " " + strings.Join(t.Args(), " ")
}

type fullTool struct {
	Command   string   `yaml:"command"`
	Arguments []string `yaml:"arguments,omitempty"`
}

func (t *Tool) UnmarshalYAML(value *yaml.Node) error {
	invalid := fmt.Errorf("line %d: tool must be a command string or a mapping with command and arguments", value.Line)

	switch {
	case value.ShortTag() == "!!null":
		*t = Tool{}
		return nil
	case value.Kind == yaml.MappingNode:
		if !hasOnlyToolKeys(value) {
			return invalid
		}
		var full fullTool
		if err := value.Decode(&full); err != nil {
			return invalid
		}
		*t = FullTool(full.Command, full.Arguments...)
		return nil
	case value.Kind == yaml.ScalarNode:
		var command string
		if err := value.Decode(&command); err != nil {
			return invalid
		}
		*t = SimpleTool(command)
		return nil
	default:
		return invalid
	}
}

// hasOnlyToolKeys reports whether a mapping sets command and nothing besides
// command and arguments.
func hasOnlyToolKeys(mapping *yaml.Node) bool {
	var hasCommand bool
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		switch mapping.Content[i].Value {
		case "command":
			hasCommand = true
		case "arguments":
		default:
			return false
		}
	}
	return hasCommand
}

func (t Tool) MarshalYAML() (interface{}, error) {
	switch t.Kind {
	case ToolFull:
		return fullTool{Command: t.Command, Arguments: t.Arguments}, nil
	case ToolSimple:
		return t.Command, nil
	default:
		return nil, nil
	}
}
