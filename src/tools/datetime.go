package tools

import (
	"context"
	"time"

	agent "github.com/unrealJuanpa/llm-deep-recall"
)

// FechaActual reports the current local date and time.
func FechaActual() agent.Tool {
	return FechaActualClock(time.Now)
}

// FechaActualClock is FechaActual with an injectable clock.
func FechaActualClock(now func() time.Time) agent.Tool {
	return agent.NewTool("fecha_actual", nil, "Devuelve la fecha y hora actuales.", func(_ context.Context, _ []any) (any, error) {
		return now().Format("2006-01-02 15:04:05"), nil
	})
}
