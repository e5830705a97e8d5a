package tui

import (
	"strings"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/markdown"
)

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders assistant text with markdown formatting. During
// streaming the content is replaced wholesale on every update; to avoid
// re-rendering the entire reply each time, the stable prefix ending at the
// last paragraph break is rendered once per width and cached, and only the
// trailing unfinalized text is re-rendered.
type AssistantBlock struct {
	raw   string
	theme ragchat.Theme

	finalizedRaw     string
	finalizedByWidth map[int]string
}

// NewAssistantBlock creates a block for assistant text.
func NewAssistantBlock(theme ragchat.Theme) *AssistantBlock {
	return &AssistantBlock{
		theme:            theme,
		finalizedByWidth: make(map[int]string),
	}
}

// SetContent replaces the block's text with the full accumulated reply.
func (b *AssistantBlock) SetContent(text string) {
	b.raw = text
	b.promoteFinalized()
}

func (b *AssistantBlock) View(width int) string {
	finalized := b.renderFinalized(width)
	trailing := b.trailingRaw()
	if hasUnclosedFence(trailing) {
		// Close the fence only for rendering so partial streams display
		// safely.
		trailing += "\n```"
	}
	if trailing == "" {
		return finalized
	}
	trailingRendered := markdown.Render(trailing, width, b.theme)
	if strings.TrimSpace(trailingRendered) == "" {
		return finalized
	}
	if finalized == "" {
		return trailingRendered
	}
	// Rejoin the independently-rendered fragments with a single paragraph
	// break so the seam matches full-document render output.
	return strings.TrimRight(finalized, "\n") + "\n\n" + strings.TrimLeft(trailingRendered, "\n")
}

// promoteFinalized scans for the last paragraph break that doesn't fall
// inside an unclosed fenced code block. Splitting inside a fence would
// leave the finalized prefix with an open fence and the trailing fragment
// starting mid-code-block.
func (b *AssistantBlock) promoteFinalized() {
	for end := len(b.raw); ; {
		idx := strings.LastIndex(b.raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := b.raw[:idx]
		if !hasUnclosedFence(candidate) {
			if candidate != b.finalizedRaw {
				b.finalizedRaw = candidate
				clear(b.finalizedByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *AssistantBlock) renderFinalized(width int) string {
	if width <= 0 || b.finalizedRaw == "" {
		return ""
	}
	if cached, ok := b.finalizedByWidth[width]; ok {
		return cached
	}
	rendered := markdown.Render(b.finalizedRaw, width, b.theme)
	b.finalizedByWidth[width] = rendered
	return rendered
}

func (b *AssistantBlock) trailingRaw() string {
	if b.finalizedRaw == "" {
		return b.raw
	}
	return strings.TrimPrefix(b.raw, b.finalizedRaw+"\n\n")
}

// hasUnclosedFence reports an odd number of "```" markers. Triple backticks
// inside inline code spans would confuse the count, but streamed replies
// rarely contain them.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
