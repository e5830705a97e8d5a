package tui_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/tui"
)

func TestAssistantBlock(t *testing.T) {
	t.Parallel()

	theme := ragchat.DefaultTheme()

	t.Run("renders plain text", func(t *testing.T) {
		t.Parallel()

		b := tui.NewAssistantBlock(theme)
		b.SetContent("a short reply")
		assert.Contains(t, b.View(80), "a short reply")
	})

	t.Run("empty content renders empty", func(t *testing.T) {
		t.Parallel()

		b := tui.NewAssistantBlock(theme)
		assert.Equal(t, "", b.View(80))
	})

	t.Run("growing content keeps earlier paragraphs", func(t *testing.T) {
		t.Parallel()

		b := tui.NewAssistantBlock(theme)
		b.SetContent("first paragraph.")
		b.SetContent("first paragraph.\n\nsecond")
		b.SetContent("first paragraph.\n\nsecond paragraph.")

		view := b.View(80)
		assert.Contains(t, view, "first paragraph.")
		assert.Contains(t, view, "second paragraph.")
	})

	t.Run("streamed view matches one-shot view", func(t *testing.T) {
		t.Parallel()

		full := "# Title\n\nSome **bold** prose here.\n\nAnd a closing line."

		streamed := tui.NewAssistantBlock(theme)
		for i := 1; i <= len(full); i++ {
			streamed.SetContent(full[:i])
		}

		oneShot := tui.NewAssistantBlock(theme)
		oneShot.SetContent(full)

		assert.Equal(t, oneShot.View(60), streamed.View(60))
	})

	t.Run("open code fence renders safely mid-stream", func(t *testing.T) {
		t.Parallel()

		b := tui.NewAssistantBlock(theme)
		b.SetContent("Look:\n\n```go\nfmt.Println(\"hi\")")

		view := b.View(80)
		assert.Contains(t, view, `fmt.Println("hi")`)
	})

	t.Run("paragraph break inside a fence is not a finalization point", func(t *testing.T) {
		t.Parallel()

		b := tui.NewAssistantBlock(theme)
		b.SetContent("```\nline one\n\nline two\n```\n\nafter")

		view := b.View(80)
		assert.Contains(t, view, "line one")
		assert.Contains(t, view, "line two")
		assert.Contains(t, view, "after")
		// The fenced block keeps its gutter on both lines, which would break
		// if the content were split at the inner blank line.
		assert.Equal(t, 2, strings.Count(view, "line"))
	})
}
