// Package runner executes rules against projects. Each rule kind has a
// narrow adapter owning that external tool's invocation and exit-code
// contract, so orchestration code never branches on raw exit codes.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/skillgate/skillgate/internal/execrun"
	"github.com/skillgate/skillgate/internal/faults"
	"github.com/skillgate/skillgate/internal/rules"
)

// Outcome is the shared result shape of both rule kinds.
type Outcome struct {
	// Grouped maps group keys to violation counts.
	Grouped map[string]int
	// RawMatches is the unfiltered count the tool reported, before
	// grouping. Under match=absent it carries the offending matches.
	RawMatches int
}

// Input is everything an adapter needs for one project run.
type Input struct {
	ProjectName string
	ProjectPath string
	// Selected is the project's include/exclude-filtered tracked-file
	// set, project-relative slash paths.
	Selected map[string]struct{}
	Include  []string
	Exclude  []string
	// Mode is the validation mode, passed through to scripts that
	// request it.
	Mode string
}

// Config carries tool settings shared by all adapters.
type Config struct {
	// StructuralTool is the structural scan binary.
	StructuralTool string
	// StructuralTimeout bounds one scan tool invocation.
	StructuralTimeout time.Duration
	// CustomTimeout bounds one custom script invocation.
	CustomTimeout time.Duration
}

// DefaultConfig returns the stock tool settings.
func DefaultConfig() Config {
	return Config{
		StructuralTool:    "ast-grep",
		StructuralTimeout: 600 * time.Second,
		CustomTimeout:     300 * time.Second,
	}
}

// Adapter runs one rule against one project.
type Adapter interface {
	Run(ctx context.Context, in Input) (*Outcome, error)
}

// Factory builds an adapter for a validated rule.
type Factory func(r rules.Rule, exec execrun.Runner, cfg Config) Adapter

var (
	registry     = make(map[rules.Kind]Factory)
	registryLock sync.RWMutex
)

// Register adds an adapter factory for a rule kind.
func Register(kind rules.Kind, factory Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[kind] = factory
}

// New builds the adapter for a rule via the registry.
func New(r rules.Rule, exec execrun.Runner, cfg Config) (Adapter, error) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	factory, ok := registry[r.RuleKind()]
	if !ok {
		return nil, faults.Usagef("no runner registered for rule kind %q", r.RuleKind())
	}
	return factory(r, exec, cfg), nil
}
