package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func dispatchAgent(t *testing.T, extra ...Tool) *Agent {
	t.Helper()
	tools := []Tool{
		NewTool("dividir", []string{"a", "b"}, "divide", func(_ context.Context, args []any) (any, error) {
			a := args[0].(float64)
			b := args[1].(float64)
			if b == 0 {
				return nil, errors.New("no se puede dividir entre cero")
			}
			return a / b, nil
		}),
	}
	tools = append(tools, extra...)
	ag, err := New(Options{Model: &scriptedModel{}, Tools: tools})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ag
}

func TestExecuteSuccessKeepsFloatText(t *testing.T) {
	ag := dispatchAgent(t)
	run := &runState{}
	got := ag.execute(context.Background(), Invocation{Name: "dividir", Args: "10, 2", Call: "dividir(10, 2)"}, run)
	if got != "5.0" {
		t.Fatalf("result = %q, want 5.0", got)
	}
}

func TestExecuteDomainErrorBecomesString(t *testing.T) {
	ag := dispatchAgent(t)
	run := &runState{}
	got := ag.execute(context.Background(), Invocation{Name: "dividir", Args: "10, 0", Call: "dividir(10, 0)"}, run)
	if !strings.Contains(got, "cero") || !strings.Contains(got, "dividir") {
		t.Fatalf("result = %q, want zero-division error naming the tool", got)
	}
	if run.terminalFired {
		t.Fatal("domain error must not fire the terminal state")
	}
}

func TestExecuteUnknownToolListsKnownNames(t *testing.T) {
	ag := dispatchAgent(t)
	run := &runState{}
	got := ag.execute(context.Background(), Invocation{Name: "volar", Args: "", Call: "volar()"}, run)
	if !strings.Contains(got, "volar") || !strings.Contains(got, "dividir") || !strings.Contains(got, TerminalToolName) {
		t.Fatalf("result = %q, want unknown-tool error listing known names", got)
	}
}

func TestExecuteArityMismatch(t *testing.T) {
	ag := dispatchAgent(t)
	run := &runState{}
	got := ag.execute(context.Background(), Invocation{Name: "dividir", Args: "10", Call: "dividir(10)"}, run)
	if !strings.Contains(got, "error") || !strings.Contains(got, "2") {
		t.Fatalf("result = %q, want arity error", got)
	}
}

func TestExecuteMalformedArguments(t *testing.T) {
	ag := dispatchAgent(t)
	run := &runState{}
	got := ag.execute(context.Background(), Invocation{Name: "dividir", Args: "x, y", Call: "dividir(x, y)"}, run)
	if !strings.HasPrefix(got, "error:") {
		t.Fatalf("result = %q, want argument error observation", got)
	}
}

func TestExecutePanicRecovered(t *testing.T) {
	boom := NewTool("boom", nil, "explota", func(_ context.Context, _ []any) (any, error) {
		panic("kaput")
	})
	ag := dispatchAgent(t, boom)
	run := &runState{}
	got := ag.execute(context.Background(), Invocation{Name: "boom", Args: "", Call: "boom()"}, run)
	if !strings.Contains(got, "kaput") {
		t.Fatalf("result = %q, want recovered panic message", got)
	}
}

func TestExecuteTerminalStripsOneQuoteLayer(t *testing.T) {
	ag := dispatchAgent(t)
	cases := []struct {
		args string
		want string
	}{
		{"'7'", "7"},
		{`"hola"`, "hola"},
		{"'\"anidado\"'", `"anidado"`},
		{"respuesta sin comillas", "respuesta sin comillas"},
		{"", ""},
	}
	for _, tc := range cases {
		run := &runState{}
		ag.execute(context.Background(), Invocation{Name: "reply", Args: tc.args, Call: "reply(" + tc.args + ")"}, run)
		if !run.terminalFired {
			t.Fatalf("reply(%q) did not fire terminal state", tc.args)
		}
		if run.finalAnswer != tc.want {
			t.Errorf("reply(%q) answer = %q, want %q", tc.args, run.finalAnswer, tc.want)
		}
	}
}
