package markdown_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/markdown"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func plain(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

func TestMain(m *testing.M) {
	// Pin the color profile so styled output carries escape codes
	// regardless of the terminal the tests run in.
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

func TestRender(t *testing.T) {
	t.Parallel()

	theme := ragchat.DefaultTheme()

	t.Run("empty source", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", markdown.Render("", 80, theme))
	})

	t.Run("paragraph text survives", func(t *testing.T) {
		t.Parallel()
		out := markdown.Render("plain prose here", 80, theme)
		assert.Contains(t, plain(out), "plain prose here")
	})

	t.Run("paragraph wraps at the given width", func(t *testing.T) {
		t.Parallel()
		src := strings.Repeat("alpha beta gamma delta ", 4)
		out := markdown.Render(src, 24, theme)
		assert.Greater(t, len(strings.Split(out, "\n")), 1)
		for _, line := range strings.Split(plain(out), "\n") {
			assert.LessOrEqual(t, len(line), 24)
		}
	})

	t.Run("heading styled differently from body text", func(t *testing.T) {
		t.Parallel()
		heading := markdown.Render("# Summary", 80, theme)
		body := markdown.Render("Summary", 80, theme)
		assert.Contains(t, plain(heading), "Summary")
		assert.NotEqual(t, heading, body)
	})

	t.Run("emphasis keeps content", func(t *testing.T) {
		t.Parallel()
		out := markdown.Render("a **strong** and *slanted* word", 80, theme)
		stripped := plain(out)
		assert.Contains(t, stripped, "strong")
		assert.Contains(t, stripped, "slanted")
	})

	t.Run("inline code keeps content", func(t *testing.T) {
		t.Parallel()
		out := markdown.Render("run `go doc` first", 80, theme)
		assert.Contains(t, plain(out), "go doc")
	})

	t.Run("fenced code is never reflowed", func(t *testing.T) {
		t.Parallel()
		src := "```go\nfmt.Println(\"a fairly long line of code\")\n```"
		out := markdown.Render(src, 16, theme)
		assert.Contains(t, plain(out), `fmt.Println("a fairly long line of code")`)
	})

	t.Run("fenced code shows its language", func(t *testing.T) {
		t.Parallel()
		src := "```sql\nSELECT 1;\n```"
		out := markdown.Render(src, 80, theme)
		stripped := plain(out)
		assert.Contains(t, stripped, "sql")
		assert.Contains(t, stripped, "SELECT 1;")
	})

	t.Run("indented code block", func(t *testing.T) {
		t.Parallel()
		src := "intro\n\n    x := 1\n    y := 2"
		out := markdown.Render(src, 80, theme)
		stripped := plain(out)
		assert.Contains(t, stripped, "x := 1")
		assert.Contains(t, stripped, "y := 2")
	})

	t.Run("unordered list items", func(t *testing.T) {
		t.Parallel()
		out := plain(markdown.Render("- red\n- green\n- blue", 80, theme))
		assert.Contains(t, out, "- red")
		assert.Contains(t, out, "- green")
		assert.Contains(t, out, "- blue")
	})

	t.Run("ordered list numbering honors start", func(t *testing.T) {
		t.Parallel()
		out := plain(markdown.Render("3. third\n4. fourth", 80, theme))
		assert.Contains(t, out, "3. third")
		assert.Contains(t, out, "4. fourth")
	})

	t.Run("nested list indents inner items", func(t *testing.T) {
		t.Parallel()
		out := plain(markdown.Render("- top\n  - sub one\n  - sub two", 80, theme))
		assert.Contains(t, out, "- top")
		assert.Contains(t, out, "  - sub one")
		assert.Contains(t, out, "  - sub two")
	})

	t.Run("wrapped list item indents continuation lines", func(t *testing.T) {
		t.Parallel()
		src := "- a long entry with enough words to force wrapping onto a second line"
		lines := strings.Split(plain(markdown.Render(src, 28, theme)), "\n")
		assert.True(t, strings.HasPrefix(lines[0], "- "))
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) == "" {
				continue
			}
			assert.True(t, strings.HasPrefix(line, "  "), "expected indented continuation, got %q", line)
		}
	})

	t.Run("link renders text and destination", func(t *testing.T) {
		t.Parallel()
		out := plain(markdown.Render("[docs](https://pkg.go.dev)", 80, theme))
		assert.Contains(t, out, "docs")
		assert.Contains(t, out, "pkg.go.dev")
	})

	t.Run("thematic break separates sections", func(t *testing.T) {
		t.Parallel()
		out := plain(markdown.Render("one\n\n---\n\ntwo", 80, theme))
		assert.Contains(t, out, "one")
		assert.Contains(t, out, "─")
		assert.Contains(t, out, "two")
	})

	t.Run("blank line between paragraphs", func(t *testing.T) {
		t.Parallel()
		out := plain(markdown.Render("first\n\nsecond", 80, theme))
		lines := strings.Split(out, "\n")
		assert.GreaterOrEqual(t, len(lines), 3)
		assert.Contains(t, lines[0], "first")
		assert.Empty(t, strings.TrimSpace(lines[1]))
		assert.Contains(t, lines[2], "second")
	})

	t.Run("non-positive width falls back to default", func(t *testing.T) {
		t.Parallel()
		out := markdown.Render("still renders", -1, theme)
		assert.Contains(t, plain(out), "still renders")
	})
}
