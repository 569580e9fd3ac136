// In file: internal/tools/executor.go
package tools

import "context"

// ToolExecutor is implemented by every tool registered with the ToolManager.
type ToolExecutor interface {
	Definition() Tool

	// Execute receives the model's JSON arguments, already validated against
	// the definition's schema, and returns the observation text.
	Execute(ctx context.Context, arguments string) (string, error)
}
