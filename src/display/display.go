// Package display renders the conversational surface. The agent core is
// silent; everything printed here comes from its trace events and results.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	agent "github.com/unrealJuanpa/llm-deep-recall"
)

// Config is the injected display configuration consumed at the CLI boundary.
type Config struct {
	out     io.Writer
	color   bool
	verbose bool

	promptStyle lipgloss.Style
	agentStyle  lipgloss.Style
	toolStyle   lipgloss.Style
	noteStyle   lipgloss.Style
	errStyle    lipgloss.Style
}

// New builds a display. color toggles ANSI styling, verbose enables the
// per-round trace rendering.
func New(out io.Writer, color, verbose bool) *Config {
	c := &Config{out: out, color: color, verbose: verbose}
	if color {
		c.promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
		c.agentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
		c.toolStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
		c.noteStyle = lipgloss.NewStyle().Faint(true)
		c.errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	}
	return c
}

// Prompt returns the styled user prompt marker.
func (c *Config) Prompt() string {
	return c.promptStyle.Render("Tú: ")
}

// Answer prints the agent's final answer.
func (c *Config) Answer(text string) {
	fmt.Fprintf(c.out, "%s %s\n", c.agentStyle.Render("Agente:"), text)
}

// Delta prints one streaming increment without a newline.
func (c *Config) Delta(text string) {
	fmt.Fprint(c.out, c.agentStyle.Render(text))
}

// Note prints an informational line.
func (c *Config) Note(text string) {
	fmt.Fprintln(c.out, c.noteStyle.Render(text))
}

// Error prints a failure line.
func (c *Config) Error(err error) {
	fmt.Fprintln(c.out, c.errStyle.Render(fmt.Sprintf("error: %v", err)))
}

// Trace renders loop events when verbose mode is on.
func (c *Config) Trace(ev agent.TraceEvent) {
	if !c.verbose {
		return
	}
	switch ev.Kind {
	case agent.TraceInvocation:
		fmt.Fprintln(c.out, c.toolStyle.Render(fmt.Sprintf("[ronda %d] %s => %s", ev.Round, ev.Call, firstLine(ev.Text))))
	case agent.TraceCorrective:
		fmt.Fprintln(c.out, c.noteStyle.Render(fmt.Sprintf("[ronda %d] corrección inyectada", ev.Round)))
	case agent.TraceAbandoned:
		fmt.Fprintln(c.out, c.errStyle.Render(fmt.Sprintf("[ronda %d] turno abandonado", ev.Round)))
	case agent.TraceRound:
		fmt.Fprintln(c.out, c.noteStyle.Render(fmt.Sprintf("[ronda %d] %s", ev.Round, firstLine(ev.Text))))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " …"
	}
	return s
}
