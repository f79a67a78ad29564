// Package compose assembles the preview document from the three source
// fields.
package compose

import "strings"

// Shim intercepts console.log inside the preview and posts every call to
// the hosting page as {type: "log", message: args}. The saved original still
// receives the arguments.
const Shim = `
const originalLog = console.log;
console.log = function(...args) {
  parent.postMessage({ type: 'log', message: args }, '*');
  originalLog.apply(console, args);
};
`

const (
	StyleOpen   = "<style>"
	StyleClose  = "</style>"
	ScriptOpen  = "<script>"
	ScriptClose = "</script>"
)

// Compose returns html, then css wrapped in a style block, then a script
// block holding the console shim followed by js. Inputs are copied
// verbatim and never validated; broken markup or script only shows up when
// the sandbox runs the page.
func Compose(html, css, js string) string {
	var b strings.Builder
	b.Grow(len(html) + len(css) + len(js) + len(Shim) +
		len(StyleOpen) + len(StyleClose) + len(ScriptOpen) + len(ScriptClose))

	b.WriteString(html)
	b.WriteString(StyleOpen)
	b.WriteString(css)
	b.WriteString(StyleClose)
	b.WriteString(ScriptOpen)
	b.WriteString(Shim)
	b.WriteString(js)
	b.WriteString(ScriptClose)

	return b.String()
}
