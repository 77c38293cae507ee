package agent

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrDuplicateTool is returned when a tool name is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrReservedName is returned when a caller tool tries to take the
	// terminal tool's name. The conflict surfaces at registration time;
	// the terminal tool is never silently shadowed.
	ErrReservedName = errors.New("tool name is reserved for the terminal tool")
)

// Catalog holds the tools available to one agent, keyed on lower-cased name.
// It is populated at agent construction and immutable afterwards.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Tool
	specs map[string]ToolSpec
	order []string
}

// NewCatalog constructs a catalog pre-seeded with the terminal tool.
func NewCatalog() *Catalog {
	c := &Catalog{
		tools: make(map[string]Tool),
		specs: make(map[string]ToolSpec),
	}
	reply := newReplyTool()
	key := reply.Spec().Name
	c.tools[key] = reply
	c.specs[key] = reply.Spec()
	c.order = append(c.order, key)
	return c
}

// Register adds a tool to the catalog. Duplicate names and the reserved
// terminal name are errors.
func (c *Catalog) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	spec := tool.Spec()
	key := strings.ToLower(strings.TrimSpace(spec.Name))
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}
	if key == TerminalToolName {
		return fmt.Errorf("%w: %s", ErrReservedName, spec.Name)
	}
	if spec.Terminal {
		return fmt.Errorf("%w: %s declares itself terminal", ErrReservedName, spec.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, spec.Name)
	}
	c.tools[key] = tool
	c.specs[key] = spec
	c.order = append(c.order, key)
	return nil
}

// Lookup returns the tool and its specification if present.
func (c *Catalog) Lookup(name string) (Tool, ToolSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(name))
	tool, ok := c.tools[key]
	if !ok {
		return nil, ToolSpec{}, false
	}
	return tool, c.specs[key], true
}

// Names returns every registered tool name, terminal tool included, in
// registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Specs returns a snapshot of the tool specifications in registration order.
func (c *Catalog) Specs() []ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(c.order))
	for _, key := range c.order {
		specs = append(specs, c.specs[key])
	}
	return specs
}

// RenderDocs formats the non-terminal tools into the documentation block
// spliced into the instruction message. Empty when only the terminal tool is
// registered. This text is the only channel by which the model learns what it
// can call.
func (c *Catalog) RenderDocs() string {
	var sb strings.Builder
	for _, spec := range c.Specs() {
		if spec.Terminal {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s(%s): %s\n", spec.Name, strings.Join(spec.Params, ", "), spec.Description))
	}
	return sb.String()
}
