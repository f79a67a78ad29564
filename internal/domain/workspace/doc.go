/*
Package workspace is the playground's application state: the active tab,
the prompt, the loading flag and the request lifecycle, bound to the
source store, the preview sandbox and the console log.

# Data flow

	SetField ──► source.Store.Set ──► persisted ──► OnChange ──► Compose ──► Render
	                                                                     │
	sandbox postMessage {type:"log"} ◄───────────────────────────────────┘
	        │
	        └──► console.Store.Append

Every field change produces exactly one render, and renders are serialized
with the mutations that trigger them.

# Prompt requests

Ask sends the prompt for the tab that was active at submission. A success
replaces that tab's source wholesale; a failure is logged and changes no
source. Loading and the prompt are cleared either way. When two requests
overlap the last one to resolve wins unless DiscardStale is set, in which
case only the most recently issued request may apply its result.
*/
package workspace
