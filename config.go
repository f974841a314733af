package archon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ninthtower/archon/table"
)

// HandlerFailure selects how an external collaborator (a system, an
// event handler) should react when it encounters an error that archon
// itself is agnostic to — the core never chooses this for its own
// operations, it only carries the policy for callers to read.
type HandlerFailure int

const (
	// HandlerFailurePropagate returns the error to the caller.
	HandlerFailurePropagate HandlerFailure = iota
	// HandlerFailureLogAndContinue logs the error and proceeds.
	HandlerFailureLogAndContinue
)

// Config holds process-wide knobs, exposed as a package-level value
// with setter methods.
var Config = config{handlerFailure: HandlerFailurePropagate}

type config struct {
	tableEvents    table.TableEvents
	handlerFailure HandlerFailure
}

// SetTableEvents configures the table event callbacks fired as rows
// are created/destroyed in any archetype.
func (c *config) SetTableEvents(te table.TableEvents) {
	c.tableEvents = te
}

// SetHandlerFailure sets the policy external collaborators should
// consult when one of their own handlers fails.
func (c *config) SetHandlerFailure(p HandlerFailure) {
	c.handlerFailure = p
}

// HandlerFailure returns the current policy.
func (c *config) HandlerFailure() HandlerFailure {
	return c.handlerFailure
}

// DynamicSchemaDef is the YAML shape of one dynamic component
// definition, as loaded by LoadSchemaDefs.
type DynamicSchemaDef struct {
	Name    string         `yaml:"name"`
	Default map[string]any `yaml:"default"`
}

// LoadSchemaDefs reads a YAML document listing dynamic component
// schemas and registers each one against registry.
func LoadSchemaDefs(path string, registry *ComponentRegistry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("archon: reading schema defs: %w", err)
	}
	var defs []DynamicSchemaDef
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("archon: parsing schema defs: %w", err)
	}
	for _, d := range defs {
		if _, err := registry.DefineDynamic(d.Name, d.Default); err != nil {
			return err
		}
	}
	return nil
}

// DriverConfig is the YAML shape of driver tick-rate defaults, as
// loaded by LoadDriverConfig.
type DriverConfig struct {
	FixedDelta float64 `yaml:"fixed_delta"`
	MaxSteps   int     `yaml:"max_steps"`
}

// LoadDriverConfig reads a YAML document of driver defaults.
func LoadDriverConfig(path string) (DriverConfig, error) {
	var cfg DriverConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("archon: reading driver config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("archon: parsing driver config: %w", err)
	}
	return cfg, nil
}
