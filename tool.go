package agent

import (
	"context"
	"fmt"
)

// TerminalToolName is the reserved name of the tool that ends the agent's
// internal loop and supplies the user-visible answer.
const TerminalToolName = "reply"

// ToolSpec describes a callable tool for registration and prompt injection.
type ToolSpec struct {
	Name        string
	Params      []string
	Description string
	Terminal    bool
}

// Tool is a callable the model can invoke by name with positional literal
// arguments. Invoke returns a value convertible to text or a domain error.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, args []any) (any, error)
}

// FuncTool adapts a plain function to the Tool interface.
type FuncTool struct {
	spec ToolSpec
	fn   func(ctx context.Context, args []any) (any, error)
}

// NewTool wraps fn as a registrable tool. params lists the positional
// parameter names in order; the dispatcher enforces their count.
func NewTool(name string, params []string, description string, fn func(ctx context.Context, args []any) (any, error)) *FuncTool {
	return &FuncTool{
		spec: ToolSpec{Name: name, Params: params, Description: description},
		fn:   fn,
	}
}

func (t *FuncTool) Spec() ToolSpec { return t.spec }

func (t *FuncTool) Invoke(ctx context.Context, args []any) (any, error) {
	if t.fn == nil {
		return nil, fmt.Errorf("tool %s has no implementation", t.spec.Name)
	}
	return t.fn(ctx, args)
}

// newReplyTool builds the always-present terminal tool. The dispatcher
// intercepts it before Invoke, so the body is identity-only.
func newReplyTool() *FuncTool {
	return &FuncTool{
		spec: ToolSpec{
			Name:        TerminalToolName,
			Params:      []string{"respuesta"},
			Description: "Entrega la respuesta final al usuario y termina el turno.",
			Terminal:    true,
		},
		fn: func(_ context.Context, args []any) (any, error) {
			if len(args) == 0 {
				return "", nil
			}
			return args[0], nil
		},
	}
}
