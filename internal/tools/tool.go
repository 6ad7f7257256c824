// Package tools implements the built-in tool contract and registry:
// bash, file read/write/edit, inspect, and skill-learning tools, plus
// input schema validation and provider-specific schema export.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/brynhild/brynhild/pkg/models"
)

// Tool is the contract every built-in and plugin-provided tool must
// satisfy.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	RequiresPermission() bool
	Execute(ctx context.Context, input json.RawMessage) (models.ToolResult, error)
}

// Registry holds every available tool, keyed by name, and validates
// tool input against each tool's declared schema before execution.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	compiled map[string]*jsonschema.Schema
}

// NewRegistry builds an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:    map[string]Tool{},
		compiled: map[string]*jsonschema.Schema{},
	}
}

// Register adds a tool, compiling its input schema eagerly so execution
// never pays the compile cost.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema := t.InputSchema()
	if schema != nil {
		data, err := json.Marshal(schema)
		if err != nil {
			return fmt.Errorf("tools: marshaling schema for %q: %w", t.Name(), err)
		}
		compiler := jsonschema.NewCompiler()
		url := "mem://" + t.Name() + ".json"
		if err := compiler.AddResource(url, bytesReader(data)); err != nil {
			return fmt.Errorf("tools: adding schema resource for %q: %w", t.Name(), err)
		}
		compiled, err := compiler.Compile(url)
		if err != nil {
			return fmt.Errorf("tools: compiling schema for %q: %w", t.Name(), err)
		}
		r.compiled[t.Name()] = compiled
	}

	r.tools[t.Name()] = t
	return nil
}

// Get returns the tool named name, or nil.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ValidateInput checks raw against the named tool's compiled schema.
func (r *Registry) ValidateInput(name string, raw json.RawMessage) error {
	r.mu.RLock()
	schema := r.compiled[name]
	r.mu.RUnlock()
	if schema == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("tools: invalid JSON input for %q: %w", name, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("tools: input for %q failed schema validation: %w", name, err)
	}
	return nil
}

// Execute validates input against the tool's schema, then calls it.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (models.ToolResult, error) {
	t := r.Get(name)
	if t == nil {
		return models.Failed(fmt.Sprintf("unknown tool %q", name)), nil
	}
	if err := r.ValidateInput(name, input); err != nil {
		return models.Failed(err.Error()), nil
	}
	return t.Execute(ctx, input)
}

// bytesReader adapts a byte slice to io.Reader for
// jsonschema.Compiler.AddResource, which decodes JSON from a reader.
func bytesReader(b []byte) io.Reader { return &bytesReaderImpl{data: b} }

type bytesReaderImpl struct {
	data []byte
	pos  int
}

func (b *bytesReaderImpl) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}
