package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/unrealJuanpa/llm-deep-recall/src/models"
)

// scriptedModel replays queued completions and records every window it saw.
type scriptedModel struct {
	responses []string
	err       error

	calls   int
	windows [][]models.Message
}

func (m *scriptedModel) next(msgs []models.Message) (models.Message, error) {
	m.windows = append(m.windows, append([]models.Message(nil), msgs...))
	m.calls++
	if m.err != nil {
		return models.Message{}, m.err
	}
	if len(m.responses) == 0 {
		return models.Message{Role: models.RoleAssistant}, nil
	}
	i := m.calls - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return models.Message{Role: models.RoleAssistant, Content: m.responses[i]}, nil
}

func (m *scriptedModel) Chat(_ context.Context, msgs []models.Message) (models.Message, error) {
	return m.next(msgs)
}

func (m *scriptedModel) ChatStream(_ context.Context, msgs []models.Message) (<-chan models.StreamChunk, error) {
	msg, err := m.next(msgs)
	ch := make(chan models.StreamChunk, 4)
	go func() {
		defer close(ch)
		if err != nil {
			ch <- models.StreamChunk{Done: true, Err: err}
			return
		}
		half := len(msg.Content) / 2
		if half > 0 {
			ch <- models.StreamChunk{Delta: msg.Content[:half]}
		}
		ch <- models.StreamChunk{Delta: msg.Content[half:]}
		ch <- models.StreamChunk{Done: true, FullText: msg.Content}
	}()
	return ch, nil
}

// switchableModel adds model switching on top of the scripted responses.
type switchableModel struct {
	scriptedModel
	mu   sync.Mutex
	name string
}

func (m *switchableModel) SetModel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
}

func (m *switchableModel) ModelName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

func sumarTool(calls *int) Tool {
	return NewTool("sumar", []string{"a", "b"}, "Devuelve la suma de a y b.", func(_ context.Context, args []any) (any, error) {
		if calls != nil {
			*calls++
		}
		return args[0].(float64) + args[1].(float64), nil
	})
}

func newTestAgent(t *testing.T, model models.Agent, opts Options) *Agent {
	t.Helper()
	opts.Model = model
	if opts.Tools == nil {
		opts.Tools = []Tool{sumarTool(nil)}
	}
	ag, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ag
}

func lastMessage(t *testing.T, window []models.Message) models.Message {
	t.Helper()
	if len(window) == 0 {
		t.Fatal("empty window")
	}
	return window[len(window)-1]
}

func TestSendMessageEndToEnd(t *testing.T) {
	model := &scriptedModel{responses: []string{"reply('7')"}}
	ag := newTestAgent(t, model, Options{})

	answer, err := ag.SendMessage(context.Background(), "suma 2 y 5")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "7" {
		t.Fatalf("answer = %q, want 7", answer)
	}

	history := ag.GetHistory()
	if len(history) != 3 {
		t.Fatalf("history has %d messages, want instruction + user + assistant", len(history))
	}
	if history[1].Role != models.RoleUser || history[1].Content != "suma 2 y 5" {
		t.Fatalf("user message = %+v", history[1])
	}
	if history[2].Role != models.RoleAssistant || history[2].Content != "7" {
		t.Fatalf("assistant message = %+v", history[2])
	}
}

func TestSendMessageAnswerFromProseLine(t *testing.T) {
	// A completion where the terminal call sits inside a prose line ending
	// in ')' must still yield the quoted answer, not the rest of the line.
	model := &scriptedModel{responses: []string{"reply('7') y además sumar(1, 2)"}}
	ag := newTestAgent(t, model, Options{})

	answer, err := ag.SendMessage(context.Background(), "suma 2 y 5")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "7" {
		t.Fatalf("answer = %q, want 7", answer)
	}
}

func TestToolRoundTripThenReply(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"Primero calculo sumar(2, 5) y espero el resultado.",
		"reply('7')",
	}}
	var toolCalls int
	ag := newTestAgent(t, model, Options{Tools: []Tool{sumarTool(&toolCalls)}})

	answer, err := ag.SendMessage(context.Background(), "suma 2 y 5")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "7" {
		t.Fatalf("answer = %q, want 7", answer)
	}
	if toolCalls != 1 {
		t.Fatalf("sumar invoked %d times, want 1", toolCalls)
	}
	if model.calls != 2 {
		t.Fatalf("model called %d times, want 2", model.calls)
	}

	observation := lastMessage(t, model.windows[1])
	if observation.Role != models.RoleUser || !strings.Contains(observation.Content, "sumar(2, 5) => 7.0") {
		t.Fatalf("observation = %+v", observation)
	}

	// Scratch rounds stay in the working window; only the final answer persists.
	if n := len(ag.GetHistory()); n != 3 {
		t.Fatalf("history has %d messages, want 3", n)
	}
}

func TestTerminalShortCircuitsBatch(t *testing.T) {
	model := &scriptedModel{responses: []string{"sumar(1, 2)\nreply('listo')\nsumar(3, 4)"}}
	var toolCalls int
	ag := newTestAgent(t, model, Options{Tools: []Tool{sumarTool(&toolCalls)}})

	answer, err := ag.SendMessage(context.Background(), "haz cosas")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "listo" {
		t.Fatalf("answer = %q", answer)
	}
	if toolCalls != 1 {
		t.Fatalf("sumar invoked %d times, want only the call before reply", toolCalls)
	}
	if model.calls != 1 {
		t.Fatalf("model called %d times, want 1", model.calls)
	}
}

func TestAcceptProseFinishesImmediately(t *testing.T) {
	model := &scriptedModel{responses: []string{"La suma de 2 y 5 es 7."}}
	ag := newTestAgent(t, model, Options{AcceptProseAnswer: true})

	answer, err := ag.SendMessage(context.Background(), "suma 2 y 5")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "La suma de 2 y 5 es 7." {
		t.Fatalf("answer = %q", answer)
	}
	if model.calls != 1 {
		t.Fatalf("model called %d times, want 1", model.calls)
	}
}

func TestForcedTerminationEscalatesAfterTwoProseRounds(t *testing.T) {
	model := &scriptedModel{responses: []string{"mmm", "sigo pensando", "reply('ok')"}}
	ag := newTestAgent(t, model, Options{})

	answer, err := ag.SendMessage(context.Background(), "hola")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "ok" {
		t.Fatalf("answer = %q", answer)
	}

	first := lastMessage(t, model.windows[1])
	if first.Content != correctiveReminder {
		t.Fatalf("first corrective = %q, want the plain reminder", first.Content)
	}
	second := lastMessage(t, model.windows[2])
	if second.Content != correctiveEscalated {
		t.Fatalf("second corrective = %q, want the escalated instruction", second.Content)
	}
}

func TestMarkerPhraseEscalatesImmediately(t *testing.T) {
	model := &scriptedModel{responses: []string{"Por lo tanto, el total es 7.", "reply('7')"}}
	ag := newTestAgent(t, model, Options{})

	if _, err := ag.SendMessage(context.Background(), "suma 2 y 5"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	corrective := lastMessage(t, model.windows[1])
	if corrective.Content != correctiveEscalated {
		t.Fatalf("corrective = %q, want immediate escalation on final-answer marker", corrective.Content)
	}
}

func TestAbandonedAfterExactlyMaxIterations(t *testing.T) {
	model := &scriptedModel{responses: []string{"nunca llamaré a reply"}}
	var abandoned bool
	ag := newTestAgent(t, model, Options{
		MaxIterations: 3,
		Trace: func(ev TraceEvent) {
			if ev.Kind == TraceAbandoned {
				abandoned = true
			}
		},
	})

	answer, err := ag.SendMessage(context.Background(), "hola")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != defaultAbandonMessage {
		t.Fatalf("answer = %q, want the abandonment text", answer)
	}
	if model.calls != 3 {
		t.Fatalf("model called %d times, want exactly max iterations", model.calls)
	}
	if !abandoned {
		t.Fatal("no abandoned trace event emitted")
	}

	history := ag.GetHistory()
	if got := history[len(history)-1].Content; got != defaultAbandonMessage {
		t.Fatalf("persisted answer = %q", got)
	}
}

func TestTransportErrorBecomesRoundResult(t *testing.T) {
	model := &scriptedModel{err: errors.New("connection refused")}
	ag := newTestAgent(t, model, Options{})

	answer, err := ag.SendMessage(context.Background(), "hola")
	if err != nil {
		t.Fatalf("SendMessage must not fail on transport errors: %v", err)
	}
	if !strings.Contains(answer, "connection refused") {
		t.Fatalf("answer = %q, want the transport error surfaced as text", answer)
	}
}

func TestSendMessageRejectsEmptyInput(t *testing.T) {
	ag := newTestAgent(t, &scriptedModel{}, Options{})
	if _, err := ag.SendMessage(context.Background(), "   "); err == nil {
		t.Fatal("empty input accepted")
	}
}

func TestRetentionAcrossTurns(t *testing.T) {
	model := &scriptedModel{responses: []string{"reply('ok')"}}
	ag := newTestAgent(t, model, Options{HistoryLimit: 2})

	for i := 0; i < 6; i++ {
		if _, err := ag.SendMessage(context.Background(), "otra pregunta"); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}

	history := ag.GetHistory()
	if len(history) > 2*2+1 {
		t.Fatalf("history has %d messages, want at most 2K+1", len(history))
	}
	if history[0].Role != models.RoleSystem {
		t.Fatalf("instruction block evicted: %+v", history[0])
	}
}

func TestClearHistoryRestoresInstructionBlock(t *testing.T) {
	model := &scriptedModel{responses: []string{"reply('ok')"}}
	ag := newTestAgent(t, model, Options{})

	for i := 0; i < 3; i++ {
		if _, err := ag.SendMessage(context.Background(), "hola"); err != nil {
			t.Fatal(err)
		}
	}

	ag.ClearHistory()
	history := ag.GetHistory()
	if len(history) != 1 || history[0].Role != models.RoleSystem {
		t.Fatalf("after ClearHistory: %+v", history)
	}
}

func TestInstructionsCarryToolDocsAndProtocol(t *testing.T) {
	ag := newTestAgent(t, &scriptedModel{}, Options{})
	instructions := ag.GetHistory()[0].Content
	if !strings.Contains(instructions, "- sumar(a, b):") {
		t.Fatalf("tool docs missing from instructions:\n%s", instructions)
	}
	if !strings.Contains(instructions, "reply(") {
		t.Fatalf("termination protocol missing from instructions:\n%s", instructions)
	}
	docs := ag.ToolDocs()
	if !strings.Contains(docs, "- sumar(a, b):") {
		t.Fatalf("ToolDocs = %q", docs)
	}
	if !strings.Contains(instructions, docs) {
		t.Fatalf("instructions do not embed the docs block:\n%s", instructions)
	}
}

func TestReservedToolNameSurfacesAtConstruction(t *testing.T) {
	_, err := New(Options{
		Model: &scriptedModel{},
		Tools: []Tool{noopTool("reply", nil, "impostor")},
	})
	if !errors.Is(err, ErrReservedName) {
		t.Fatalf("err = %v, want ErrReservedName", err)
	}
}

func TestStrictJSONProtocolLoop(t *testing.T) {
	model := &scriptedModel{responses: []string{`{"function": "reply('listo')"}`}}
	ag := newTestAgent(t, model, Options{StrictJSONProtocol: true})

	answer, err := ag.SendMessage(context.Background(), "termina")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "listo" {
		t.Fatalf("answer = %q", answer)
	}
}

func TestStreamingDeliversDeltasOnce(t *testing.T) {
	model := &scriptedModel{responses: []string{"reply('7')"}}
	var deltas strings.Builder
	ag := newTestAgent(t, model, Options{
		Stream:  true,
		OnDelta: func(d string) { deltas.WriteString(d) },
	})

	answer, err := ag.SendMessage(context.Background(), "suma 2 y 5")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "7" {
		t.Fatalf("answer = %q", answer)
	}
	if deltas.String() != "reply('7')" {
		t.Fatalf("streamed deltas = %q", deltas.String())
	}
}

func TestPrimePairConversation(t *testing.T) {
	model := &scriptedModel{responses: []string{"reply('hola')"}}
	ag := newTestAgent(t, model, Options{PrimePair: true})

	if _, err := ag.SendMessage(context.Background(), "hola"); err != nil {
		t.Fatal(err)
	}
	history := ag.GetHistory()
	if len(history) != 4 {
		t.Fatalf("history has %d messages, want pair + exchange", len(history))
	}
	if history[0].Role != models.RoleUser || history[1].Content != primeAck {
		t.Fatalf("priming pair = %+v, %+v", history[0], history[1])
	}
}

func TestChangeModelAndInfo(t *testing.T) {
	model := &switchableModel{name: "gemma3:latest"}
	model.responses = []string{"reply('ok')"}
	ag := newTestAgent(t, model, Options{HistoryLimit: 4})

	if err := ag.ChangeModel("qwen3:4b"); err != nil {
		t.Fatalf("ChangeModel: %v", err)
	}
	info := ag.Info()
	if info["model"] != "qwen3:4b" {
		t.Fatalf("info model = %v", info["model"])
	}
	if info["history_limit"] != 4 {
		t.Fatalf("info history_limit = %v", info["history_limit"])
	}

	plain := newTestAgent(t, &scriptedModel{}, Options{})
	if err := plain.ChangeModel("otro"); err == nil {
		t.Fatal("ChangeModel on a fixed-model provider must fail")
	}
}

func TestTraceEventsCoverTheTurn(t *testing.T) {
	model := &scriptedModel{responses: []string{"sumar(2, 5)", "reply('7')"}}
	var kinds []TraceKind
	ag := newTestAgent(t, model, Options{
		Trace: func(ev TraceEvent) { kinds = append(kinds, ev.Kind) },
	})

	if _, err := ag.SendMessage(context.Background(), "suma"); err != nil {
		t.Fatal(err)
	}

	var rounds, invocations, finals int
	for _, k := range kinds {
		switch k {
		case TraceRound:
			rounds++
		case TraceInvocation:
			invocations++
		case TraceFinal:
			finals++
		}
	}
	if rounds != 2 || invocations != 2 || finals != 1 {
		t.Fatalf("trace kinds = %v", kinds)
	}
}
