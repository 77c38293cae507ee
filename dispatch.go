package agent

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// runState is the transient bookkeeping for one turn. It is created at the
// start of SendMessage and never shared across turns.
type runState struct {
	iteration           int
	terminalFired       bool
	finalAnswer         string
	nonInvocationRounds int
}

// execute resolves one invocation against the catalog and normalizes every
// outcome to a string. Errors never cross the loop boundary: they come back as
// observations the model can read and self-correct on.
func (a *Agent) execute(ctx context.Context, inv Invocation, run *runState) string {
	if strings.EqualFold(strings.TrimSpace(inv.Name), TerminalToolName) {
		run.terminalFired = true
		run.finalAnswer = stripOuterQuotes(strings.TrimSpace(inv.Args))
		return "respuesta final registrada"
	}

	tool, spec, ok := a.catalog.Lookup(inv.Name)
	if !ok {
		return fmt.Sprintf("error: herramienta desconocida %q; las herramientas disponibles son: %s",
			inv.Name, strings.Join(a.catalog.Names(), ", "))
	}

	args, err := parseArgs(inv.Args)
	if err != nil {
		return fmt.Sprintf("error: %s: %v", spec.Name, err)
	}
	if len(args) != len(spec.Params) {
		return fmt.Sprintf("error: %s espera %d argumentos (%s) pero recibió %d",
			spec.Name, len(spec.Params), strings.Join(spec.Params, ", "), len(args))
	}

	result, err := safeInvoke(ctx, tool, args)
	if err != nil {
		return fmt.Sprintf("error: %s: %v", spec.Name, err)
	}
	return formatValue(result)
}

// safeInvoke shields the loop from panicking tool implementations.
func safeInvoke(ctx context.Context, tool Tool, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallo interno: %v", r)
		}
	}()
	return tool.Invoke(ctx, args)
}

// stripOuterQuotes removes one layer of matching quote characters, if present.
func stripOuterQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// formatValue renders a tool result as observation text. Whole floats keep one
// decimal (5.0, not 5) so arithmetic results stay unambiguous for the model.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatFloat(val, 'f', 1, 64)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
