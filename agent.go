package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/unrealJuanpa/llm-deep-recall/src/models"
)

const defaultSystemPrompt = "Eres un asistente de IA servicial y amable. Responde con claridad, concisión y siempre en el lenguaje apropiado. Mantén un tono profesional pero accesible."

const defaultAbandonMessage = "Lo siento, no he podido completar la solicitud tras varios intentos. ¿Puedes reformular la pregunta?"

const (
	correctiveReminder = "Recuerda: para entregar tu respuesta final debes llamar a la herramienta reply, por ejemplo reply('tu respuesta'). Responde ahora usando reply."

	correctiveEscalated = "ATENCIÓN: no has usado la herramienta reply. Tu próximo mensaje debe contener únicamente una llamada reply('...') con la respuesta final para el usuario. No escribas nada más."
)

// finalAnswerMarkers are phrases that strongly suggest the model just wrote
// its answer as prose instead of calling reply. Seeing one skips straight to
// the escalated corrective instruction.
var finalAnswerMarkers = []string{
	"en conclusión",
	"por lo tanto",
	"la respuesta es",
	"in conclusion",
	"therefore",
	"the answer is",
}

// Agent mediates between a user and a local inference endpoint, augmenting
// the model with callable tools and a termination protocol. One instance owns
// one conversation; turns are serialized internally.
type Agent struct {
	model          models.Agent
	catalog        *Catalog
	parser         *Parser
	history        *History
	instructions   string
	historyLimit   int
	maxIterations  int
	acceptProse    bool
	abandonMessage string
	tracer         Tracer
	onDelta        func(string)
	stream         bool

	mu sync.Mutex
}

// Options configure a new Agent. The zero value selects the reinforced
// protocol: multi-strategy parsing plus forced-termination escalation.
type Options struct {
	// Model is the inference endpoint. Required.
	Model models.Agent

	// SystemPrompt replaces the default instruction text. Tool documentation
	// and the termination protocol are always appended to it.
	SystemPrompt string

	// HistoryLimit is the number of retained (user, assistant) exchanges
	// beyond the instruction block. Defaults to 5.
	HistoryLimit int

	// MaxIterations bounds the completion round-trips per turn. Defaults to 5.
	MaxIterations int

	// Tools are registered at construction; the catalog is immutable after.
	Tools []Tool

	// AcceptProseAnswer treats the first invocation-free completion as the
	// final answer, the original lightweight behavior, instead of injecting
	// corrective instructions.
	AcceptProseAnswer bool

	// StrictJSONProtocol switches the parser to the legacy single
	// {"function": "name(args)"} object mode.
	StrictJSONProtocol bool

	// PrimePair carries the instructions as a user/assistant priming pair
	// instead of a system-role message.
	PrimePair bool

	// AbandonMessage is returned when the iteration bound is reached.
	AbandonMessage string

	// Trace receives structured loop events. Optional.
	Trace Tracer

	// Stream requests streaming completions; OnDelta, when set, receives each
	// increment. The loop still consumes a stream as one atomic round result.
	Stream  bool
	OnDelta func(string)
}

// New creates an Agent with the provided options.
func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, errors.New("agent requires a language model")
	}

	historyLimit := opts.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 5
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 5
	}

	systemPrompt := strings.TrimSpace(opts.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	abandonMessage := strings.TrimSpace(opts.AbandonMessage)
	if abandonMessage == "" {
		abandonMessage = defaultAbandonMessage
	}

	catalog := NewCatalog()
	for _, tool := range opts.Tools {
		if tool == nil {
			continue
		}
		if err := catalog.Register(tool); err != nil {
			return nil, err
		}
	}

	mode := PrimeSystem
	if opts.PrimePair {
		mode = PrimePair
	}

	instructions := buildInstructions(systemPrompt, catalog.RenderDocs(), opts.AcceptProseAnswer)

	return &Agent{
		model:          opts.Model,
		catalog:        catalog,
		parser:         NewParser(catalog, opts.StrictJSONProtocol),
		history:        NewHistory(instructions, historyLimit, mode),
		instructions:   instructions,
		historyLimit:   historyLimit,
		maxIterations:  maxIterations,
		acceptProse:    opts.AcceptProseAnswer,
		abandonMessage: abandonMessage,
		tracer:         opts.Trace,
		onDelta:        opts.OnDelta,
		stream:         opts.Stream,
	}, nil
}

// buildInstructions splices the tool documentation and termination protocol
// into the instruction message.
func buildInstructions(systemPrompt, docs string, acceptProse bool) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	if docs != "" {
		sb.WriteString("\n\nTienes acceso a las siguientes herramientas:\n")
		sb.WriteString(docs)
		sb.WriteString("\nPara usar una herramienta escribe la llamada en una línea propia, con argumentos literales, por ejemplo: sumar(2, 5). El resultado llegará en el siguiente mensaje.")
	}
	if !acceptProse {
		sb.WriteString("\n\nCuando tengas la respuesta final para el usuario, entrégala llamando a la herramienta reply, por ejemplo: reply('tu respuesta'). Toda respuesta final debe pasar por reply; nunca la escribas como prosa suelta.")
	}
	return sb.String()
}

// SendMessage runs one full turn: it appends the user message, iterates
// completion rounds until the terminal tool fires, a prose answer is accepted,
// or the iteration bound is reached, and persists exactly one assistant
// message with the result. It always produces a response; transport failures
// come back as the response text, never as a mid-turn fault.
func (a *Agent) SendMessage(ctx context.Context, userInput string) (string, error) {
	trimmed := strings.TrimSpace(userInput)
	if trimmed == "" {
		return "", errors.New("user input is empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	window := a.history.Messages()
	window = append(window, models.Message{Role: models.RoleUser, Content: trimmed})

	answer := a.runTurn(ctx, window)

	a.history.Append(models.Message{Role: models.RoleUser, Content: trimmed})
	a.history.Append(models.Message{Role: models.RoleAssistant, Content: answer})
	a.history.Trim()
	return answer, nil
}

// runTurn drives the per-turn state machine over a working window. The
// intermediate scratch turns live only in the window and are discarded.
func (a *Agent) runTurn(ctx context.Context, window []models.Message) string {
	run := &runState{}

	for run.iteration = 0; run.iteration < a.maxIterations; run.iteration++ {
		round := run.iteration + 1

		completion, err := a.complete(ctx, window)
		if err != nil {
			text := fmt.Sprintf("Error al contactar el modelo: %v", err)
			a.emit(TraceEvent{Round: round, Kind: TraceFinal, Text: text})
			return text
		}
		a.emit(TraceEvent{Round: round, Kind: TraceRound, Text: completion})

		invocations := a.parser.Parse(completion)
		if len(invocations) == 0 {
			if a.acceptProse {
				answer := strings.TrimSpace(completion)
				a.emit(TraceEvent{Round: round, Kind: TraceFinal, Text: answer})
				return answer
			}
			window = append(window, models.Message{Role: models.RoleAssistant, Content: completion})
			window = append(window, models.Message{Role: models.RoleUser, Content: a.corrective(completion, run)})
			continue
		}

		var observations strings.Builder
		for _, inv := range invocations {
			result := a.execute(ctx, inv, run)
			a.emit(TraceEvent{Round: round, Kind: TraceInvocation, Call: inv.Call, Text: result})
			if run.terminalFired {
				a.emit(TraceEvent{Round: round, Kind: TraceFinal, Text: run.finalAnswer})
				return run.finalAnswer
			}
			observations.WriteString(fmt.Sprintf("%s => %s\n", inv.Call, result))
		}
		run.nonInvocationRounds = 0

		window = append(window, models.Message{Role: models.RoleAssistant, Content: completion})
		window = append(window, models.Message{
			Role:    models.RoleUser,
			Content: "Resultados de las herramientas:\n" + observations.String() + "Usa estos resultados para continuar. Cuando tengas la respuesta final, llámala con reply('...').",
		})
	}

	a.emit(TraceEvent{Round: a.maxIterations, Kind: TraceAbandoned, Text: a.abandonMessage})
	return a.abandonMessage
}

// corrective picks the reminder to inject after an invocation-free round.
// Two consecutive prose rounds, or one that reads like a finished answer,
// escalate immediately and reset the counter.
func (a *Agent) corrective(completion string, run *runState) string {
	run.nonInvocationRounds++
	escalate := run.nonInvocationRounds >= 2 || looksLikeFinalAnswer(completion)

	text := correctiveReminder
	if escalate {
		text = correctiveEscalated
		run.nonInvocationRounds = 0
	}
	a.emit(TraceEvent{Round: run.iteration + 1, Kind: TraceCorrective, Text: text})
	return text
}

func looksLikeFinalAnswer(completion string) bool {
	lower := strings.ToLower(completion)
	for _, marker := range finalAnswerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ClearHistory resets the conversation to just the instruction block.
func (a *Agent) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history.Clear()
}

// GetHistory returns a copy of the persisted conversation.
func (a *Agent) GetHistory() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Messages()
}

// ChangeModel swaps the underlying model id when the provider supports it.
func (a *Agent) ChangeModel(name string) error {
	sw, ok := a.model.(models.Switchable)
	if !ok {
		return errors.New("el proveedor actual no permite cambiar de modelo")
	}
	sw.SetModel(name)
	return nil
}

// Info reports the current agent configuration.
func (a *Agent) Info() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()

	info := map[string]any{
		"history_limit":       a.historyLimit,
		"max_iterations":      a.maxIterations,
		"messages_in_history": a.history.Len(),
		"tools":               a.catalog.Names(),
	}
	if sw, ok := a.model.(models.Switchable); ok {
		info["model"] = sw.ModelName()
	}
	if host, ok := a.model.(interface{ Host() string }); ok {
		info["host"] = host.Host()
	}
	return info
}

// ToolDocs exposes the documentation block injected into the instructions.
func (a *Agent) ToolDocs() string {
	return a.catalog.RenderDocs()
}
