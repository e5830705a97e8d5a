// Package markdown renders markdown text to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling. It targets the
// subset of markdown that assistant replies actually contain: paragraphs,
// headings, code, lists, emphasis, and links.
package markdown

import "github.com/fwojciec/ragchat"

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks are
// rendered at full width without reflow. Rendering partial markdown is
// safe: an in-flight reply re-renders cleanly as it grows.
func Render(source string, width int, theme ragchat.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := newRenderer(theme)
	return r.render([]byte(source), width)
}
