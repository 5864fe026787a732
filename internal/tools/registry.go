// ABOUTME: Thread-safe registry of invocable tools keyed by normalized name.
// ABOUTME: Providers declare tools explicitly; schemas are inferred once at registration.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrInvalidTool indicates a tool declaration cannot be registered.
var ErrInvalidTool = errors.New("invalid tool")

// Handler executes a tool. It is bound to its owning instance at
// registration time, so no lookup happens during invocation.
type Handler func(ctx context.Context, args Args) (any, error)

// Tool is the static declaration of one operation exposed by a provider.
type Tool struct {
	// Method is the declared operation name, e.g. "GetTime".
	Method string
	// Doc is markdown documentation; its first paragraph becomes the
	// tool description.
	Doc     string
	Params  []Param
	Handler Handler
}

// Provider exposes a set of tools backed by one instance.
type Provider interface {
	Name() string
	Tools() []Tool
}

// Descriptor is a registered tool. Descriptors are immutable.
type Descriptor struct {
	Name        string
	Description string
	Method      string
	Provider    string
	Params      []Param
	Schema      *Schema

	handler Handler
}

// Bind matches caller arguments to the descriptor's parameters.
func (d *Descriptor) Bind(args map[string]json.RawMessage, progress Progress) (Args, error) {
	return Bind(d.Params, args, progress)
}

// Invoke runs the tool's handler with bound arguments.
func (d *Descriptor) Invoke(ctx context.Context, args Args) (any, error) {
	return d.handler(ctx, args)
}

// Registry maintains the set of registered tools.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Descriptor
	order  []string
	logger *slog.Logger
}

// NewRegistry creates a new Registry instance.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*Descriptor),
		logger: logger,
	}
}

// Register adds every tool declared by the provider. All declarations are
// validated before any is stored, so a bad provider registers nothing.
func (r *Registry) Register(p Provider) error {
	decls := p.Tools()
	descs := make([]*Descriptor, 0, len(decls))
	for _, t := range decls {
		d, err := newDescriptor(p.Name(), t)
		if err != nil {
			return err
		}
		descs = append(descs, d)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range descs {
		r.putLocked(d)
	}

	r.logger.Info("=== PROVIDER REGISTERED ===",
		"provider", p.Name(),
		"tool_count", len(descs),
		"total_tools", len(r.tools),
	)
	return nil
}

// RegisterTool adds a single tool on behalf of the named provider.
func (r *Registry) RegisterTool(provider string, t Tool) (*Descriptor, error) {
	d, err := newDescriptor(provider, t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(d)
	return d, nil
}

// putLocked stores d, replacing any descriptor with the same name in place.
// Must be called with mu held.
func (r *Registry) putLocked(d *Descriptor) {
	if prev, exists := r.tools[d.Name]; exists {
		r.logger.Warn("tool name re-registered, replacing previous",
			"tool_name", d.Name,
			"previous_provider", prev.Provider,
			"provider", d.Provider,
		)
	} else {
		r.order = append(r.order, d.Name)
	}
	r.tools[d.Name] = d
}

// Lookup finds a tool by its normalized name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tools[name]
	return d, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

func newDescriptor(provider string, t Tool) (*Descriptor, error) {
	if t.Method == "" {
		return nil, fmt.Errorf("%w: provider '%s' declared a tool without a method name", ErrInvalidTool, provider)
	}
	if t.Handler == nil {
		return nil, fmt.Errorf("%w: tool '%s' has no handler", ErrInvalidTool, t.Method)
	}

	seen := make(map[string]struct{}, len(t.Params))
	for _, p := range t.Params {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: tool '%s' has an unnamed parameter", ErrInvalidTool, t.Method)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: tool '%s' declares parameter '%s' twice", ErrInvalidTool, t.Method, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	params := make([]Param, len(t.Params))
	copy(params, t.Params)

	return &Descriptor{
		Name:        Normalize(t.Method),
		Description: Summary(t.Doc),
		Method:      t.Method,
		Provider:    provider,
		Params:      params,
		Schema:      InferSchema(params),
		handler:     t.Handler,
	}, nil
}
