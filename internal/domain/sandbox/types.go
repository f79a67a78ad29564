package sandbox

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a render exceeds Config.Timeout.
var ErrTimeout = errors.New("sandbox: render timeout exceeded")

// MessageTypeLog is the only message type the host acts on.
const MessageTypeLog = "log"

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration // Execution timeout per render
	MaxCallStackSize int           // Maximum JS call stack depth
	MaxTimerTasks    int           // Maximum setTimeout callbacks run per render
	EnableConsole    bool          // Provide console.log/warn/error/info
	EnableDOM        bool          // Provide the document proxy
}

// DefaultConfig returns the default sandbox configuration
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxCallStackSize: 1024,
		MaxTimerTasks:    1000,
		EnableConsole:    true,
		EnableDOM:        true,
	}
}

// Message is one value posted from the sandbox to its host.
//
// Message holds the JavaScript string form of each element when the posted
// value carried a "message" array; null and undefined become "" as in
// Array.prototype.join. It is nil when no array was posted.
type Message struct {
	Type    string   `json:"type"`
	Message []string `json:"message"`
	Origin  string   `json:"-"`
}

// Listener receives messages posted by sandboxed scripts.
type Listener func(Message)

// Result describes one render
type Result struct {
	Scripts    int           // Inline scripts executed
	Messages   int           // Messages posted to the host
	Console    []LogEntry    // Output of the sandbox's own console
	Errors     []ScriptError // Uncaught script errors
	DOMChanges []DOMChange   // DOM modifications made by scripts
	Duration   time.Duration // Render time
}

// LogEntry represents output of the sandbox's own console
type LogEntry struct {
	Level   string    // log, warn, error, info, alert
	Message string    // Arguments joined by a space
	Time    time.Time // Timestamp
}

// ScriptError is an uncaught error raised by one script
type ScriptError struct {
	Script  int    // Index of the script in document order, -1 for timer callbacks
	Message string // Error as reported by the runtime
}

// DOMChange represents a DOM modification
type DOMChange struct {
	Type     string      // set_attribute, set_text, append_child
	Selector string      // Selector identifying the target element
	Property string      // Attribute or property name
	Value    interface{} // New value
}

// Sandbox defines the preview rendering interface
type Sandbox interface {
	Render(ctx context.Context, page string) (*Result, error)
	Listen(fn Listener) (cancel func())
}
