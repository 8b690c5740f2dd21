package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// ResourcesDirName is the directory next to the config file that resource
// files are read from.
const ResourcesDirName = "resources"

var ErrConfigInvalid = errors.New("invalid configuration")

// Config is the top level of a deployment config file.
type Config struct {
	Release Release `yaml:"release"`
}

// Release describes a single deployment: where the code comes from, what
// to inject into it and what to run.
type Release struct {
	// Clean checks out into a new uniquely named directory instead of the
	// current directory.
	Clean bool `yaml:"clean"`

	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch"`

	// Merge fetches and merges the branch from origin into an existing checkout.
	Merge bool `yaml:"merge"`

	Resources []Resource `yaml:"resources,omitempty"`

	Tool Tool `yaml:"tool,omitempty"`

	// Tag is accepted but not acted on.
	Tag bool `yaml:"tag"`
}

// Resource is a file under the resources directory to be copied into the checkout.
type Resource struct {
	File string `yaml:"file"`
	// CopyPath is the destination relative to the checkout, File if empty.
	CopyPath string `yaml:"copy,omitempty"`
}

// Destination returns the path the resource is written to, relative to the checkout.
func (r Resource) Destination() string {
	if r.CopyPath != "" {
		return r.CopyPath
	}
	return r.File
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		return nil, fmt.Errorf("could not stat config file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file %s: %w", path, err)
	}

	log.Debug("Loaded config", "path", path, "repository", cfg.Release.Repository, "branch", cfg.Release.Branch)
	return cfg, nil
}

// Parse decodes a config document. Absent fields keep their zero values.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidationError describes a single problem with a config.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Validate checks the fields the deployment pipeline relies on.
func (c *Config) Validate() []error {
	var errs []error
	if c.Release.Repository == "" {
		errs = append(errs, ValidationError{Message: "Repository URL cannot be empty"})
	}
	if c.Release.Branch == "" {
		errs = append(errs, ValidationError{Message: "Branch name cannot be empty"})
	}
	for i, r := range c.Release.Resources {
		if r.File == "" {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("Resource %d has no file", i)})
		}
	}
	return errs
}

// Check runs Validate and combines any problems into a single error
// matching ErrConfigInvalid.
func (c *Config) Check() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(msgs, "; "))
}
