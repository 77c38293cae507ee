package agent

// TraceKind classifies the events the loop emits while working a turn.
type TraceKind string

const (
	// TraceRound fires once per completion request with the model's raw text.
	TraceRound TraceKind = "round"
	// TraceInvocation fires per dispatched call; Call holds the exact call
	// text and Text the dispatch result.
	TraceInvocation TraceKind = "invocation"
	// TraceCorrective fires when the loop injects a termination reminder.
	TraceCorrective TraceKind = "corrective"
	// TraceFinal fires when the terminal tool captures the answer.
	TraceFinal TraceKind = "final"
	// TraceAbandoned fires when the iteration bound is reached.
	TraceAbandoned TraceKind = "abandoned"
)

// TraceEvent is the structured record of one loop step. The core never writes
// to the console; a presentation layer renders these instead.
type TraceEvent struct {
	Round int
	Kind  TraceKind
	Call  string
	Text  string
}

// Tracer receives trace events. Implementations must be fast; the loop calls
// them synchronously.
type Tracer func(TraceEvent)

func (a *Agent) emit(ev TraceEvent) {
	if a.tracer != nil {
		a.tracer(ev)
	}
}
