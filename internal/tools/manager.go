// In file: internal/tools/manager.go
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	// ErrToolNotFound is returned when the model asks for a tool that is not registered.
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidArguments is returned when the model's arguments fail schema validation.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

type registeredTool struct {
	executor ToolExecutor
	schema   *jsonschema.Schema
}

// ToolManager holds a registry of all available tools.
type ToolManager struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
}

func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]registeredTool),
	}
}

// Register adds a new tool to the manager's registry. The tool's parameter
// schema is compiled once here so every call can be validated before it runs.
func (tm *ToolManager) Register(tool ToolExecutor) error {
	def := tool.Definition()
	name := def.Function.Name
	if name == "" {
		return errors.New("tool definition has no name")
	}

	compiled, err := compileSchema(def.Function.Parameters)
	if err != nil {
		return fmt.Errorf("compile schema for tool '%s': %w", name, err)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.tools[name] = registeredTool{executor: tool, schema: compiled}
	return nil
}

// MustRegister is like Register but panics on error. It is meant for the
// static tool set wired at startup.
func (tm *ToolManager) MustRegister(tool ToolExecutor) {
	if err := tm.Register(tool); err != nil {
		panic(err)
	}
}

// GetDefinitions returns all registered tool definitions sorted by name, so
// the request sent to the model is the same on every call.
func (tm *ToolManager) GetDefinitions() []Tool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	defs := make([]Tool, 0, len(tm.tools))
	for _, t := range tm.tools {
		defs = append(defs, t.executor.Definition())
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Function.Name < defs[j].Function.Name
	})
	return defs
}

// Execute runs a tool by name with the given arguments. Empty arguments are
// treated as an empty JSON object.
func (tm *ToolManager) Execute(ctx context.Context, name, arguments string) (string, error) {
	tm.mu.RLock()
	t, ok := tm.tools[name]
	tm.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrToolNotFound, name)
	}

	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	if err := validateArguments(t.schema, arguments); err != nil {
		return "", fmt.Errorf("%w for '%s': %v", ErrInvalidArguments, name, err)
	}
	return t.executor.Execute(ctx, arguments)
}

// ToolCount returns the number of registered tools.
func (tm *ToolManager) ToolCount() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.tools)
}

func compileSchema(params JSONSchema) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("schema.json")
}

func validateArguments(schema *jsonschema.Schema, arguments string) error {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(arguments))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	return schema.Validate(inst)
}
