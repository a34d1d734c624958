// Package prompt builds the system frame sent with every completion.
package prompt

import (
	"strings"
)

// Builder renders the system frame from a fixed preamble plus per-turn context.
type Builder struct {
	preamble string
}

// NewBuilder returns a builder. An empty preamble selects DefaultPreamble.
func NewBuilder(preamble string) *Builder {
	if strings.TrimSpace(preamble) == "" {
		preamble = DefaultPreamble()
	}
	return &Builder{preamble: strings.TrimSpace(preamble)}
}

// SystemFrame joins the preamble, the retrieved-context block and a note naming the
// sources added since the last completion. Their bodies are already in the block.
// Empty sections are omitted.
func (b *Builder) SystemFrame(contextBlock, scraped string) string {
	var sb strings.Builder
	sb.WriteString(b.preamble)
	if block := strings.TrimSpace(contextBlock); block != "" {
		sb.WriteString("\n\n# Retrieved context\n\n")
		sb.WriteString(block)
	}
	if s := strings.TrimSpace(scraped); s != "" {
		sb.WriteString("\n\n# Newly added sources\n\n")
		sb.WriteString(s)
	}
	return sb.String()
}

// DefaultPreamble describes the directive protocol to the model.
func DefaultPreamble() string {
	return strings.TrimSpace(`
You are a learning-path planner. Talk with the user to understand what they want to learn,
their role, the outcome they are after, their current level and how much time they have.

You cannot call tools directly. Instead, put at most one of these tags in your reply:
- [RESEARCH: <topic>] to look up learning resources on a topic.
- [SEARCH_GOOGLE: <query>] to search the web and summarise what you find.
- [SUGGEST_LINKS: ["<url>", ...]] to offer specific links the user can add to context.
- [GENERATE_PATH] when you have enough information to build the learning path.

With [GENERATE_PATH], include the parameters as a JSON object in a fenced json block or after JSON_OUTPUT:,
using the keys goal, role, outcome, level and time. The tags and the JSON are hidden from the user,
so the rest of the reply must read naturally without them.

Use the retrieved context below, when present, as the primary source of truth about the user's material.
`)
}
