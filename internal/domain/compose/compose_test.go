package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeStructure(t *testing.T) {
	tests := []struct {
		name string
		html string
		css  string
		js   string
	}{
		{
			name: "seed document",
			html: "<!DOCTYPE html>\n<html><body><h1>Hello, World!</h1></body></html>",
			css:  "body {\n  background: #fff;\n}",
			js:   "console.log('Hello, World!');",
		},
		{name: "all empty"},
		{
			name: "syntactically invalid input",
			html: "<div><span",
			css:  "body { color: ",
			js:   "function (",
		},
		{
			name: "unicode and newlines",
			html: "<p>héllo 👋</p>\n",
			css:  "p::after { content: '→'; }",
			js:   "console.log(`multi\nline`)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Compose(tt.html, tt.css, tt.js)

			require.True(t, strings.HasPrefix(page, tt.html))
			rest := strings.TrimPrefix(page, tt.html)

			require.True(t, strings.HasPrefix(rest, StyleOpen))
			rest = strings.TrimPrefix(rest, StyleOpen)
			require.True(t, strings.HasPrefix(rest, tt.css+StyleClose))
			rest = strings.TrimPrefix(rest, tt.css+StyleClose)

			assert.Equal(t, ScriptOpen+Shim+tt.js+ScriptClose, rest)
		})
	}
}

func TestComposeIdempotent(t *testing.T) {
	a := Compose("<h1>x</h1>", "h1{}", "console.log(1)")
	b := Compose("<h1>x</h1>", "h1{}", "console.log(1)")

	assert.Equal(t, a, b)
}

func TestShimPostsLogMessages(t *testing.T) {
	assert.Contains(t, Shim, "const originalLog = console.log;")
	assert.Contains(t, Shim, "parent.postMessage({ type: 'log', message: args }, '*');")
	assert.Contains(t, Shim, "originalLog.apply(console, args);")
}
