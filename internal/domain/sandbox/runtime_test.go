package sandbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashide/flashide/internal/domain/compose"
)

type recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *recorder) listen(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) all() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	return New(DefaultConfig(), nil)
}

func TestRenderForwardsConsoleLogThroughShim(t *testing.T) {
	rt := newTestRuntime(t)
	rec := &recorder{}
	cancel := rt.Listen(rec.listen)
	defer cancel()

	page := compose.Compose("<p>x</p>", "", "console.log('a', 1); console.log();")
	result, err := rt.Render(context.Background(), page)
	require.NoError(t, err)

	messages := rec.all()
	require.Len(t, messages, 2)
	assert.Equal(t, Message{Type: MessageTypeLog, Message: []string{"a", "1"}, Origin: "*"}, messages[0])
	assert.Equal(t, MessageTypeLog, messages[1].Type)
	assert.NotNil(t, messages[1].Message)
	assert.Empty(t, messages[1].Message)

	// The original console still sees the call
	require.Len(t, result.Console, 2)
	assert.Equal(t, "a 1", result.Console[0].Message)
	assert.Equal(t, 2, result.Messages)
	assert.Empty(t, result.Errors)
}

func TestRenderMessageConversion(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   Message
	}{
		{
			name:   "null and undefined become empty",
			script: "parent.postMessage({type: 'log', message: [null, undefined, true, {}]}, '*')",
			want:   Message{Type: "log", Message: []string{"", "", "true", "[object Object]"}, Origin: "*"},
		},
		{
			name:   "non-array payload",
			script: "parent.postMessage({type: 'log', message: 'hi'}, '*')",
			want:   Message{Type: "log", Origin: "*"},
		},
		{
			name:   "other type",
			script: "parent.postMessage({type: 'ready'}, 'http://host')",
			want:   Message{Type: "ready", Origin: "http://host"},
		},
		{
			name:   "primitive value",
			script: "parent.postMessage(42)",
			want:   Message{Origin: "*"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newTestRuntime(t)
			rec := &recorder{}
			defer rt.Listen(rec.listen)()

			_, err := rt.Render(context.Background(), "<script>"+tt.script+"</script>")
			require.NoError(t, err)

			messages := rec.all()
			require.Len(t, messages, 1)
			assert.Equal(t, tt.want, messages[0])
		})
	}
}

func TestRenderContinuesAfterScriptError(t *testing.T) {
	rt := newTestRuntime(t)
	rec := &recorder{}
	defer rt.Listen(rec.listen)()

	page := `<script>throw new Error("boom")</script>` +
		`<script>parent.postMessage({type: 'log', message: ['after']}, '*')</script>`
	result, err := rt.Render(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Scripts)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 0, result.Errors[0].Script)
	assert.Contains(t, result.Errors[0].Message, "boom")

	messages := rec.all()
	require.Len(t, messages, 1)
	assert.Equal(t, []string{"after"}, messages[0].Message)
}

func TestRenderSkipsExternalAndNonScriptTypes(t *testing.T) {
	rt := newTestRuntime(t)

	page := `<script src="app.js">console.log('external')</script>` +
		`<script type="text/template">console.log('template')</script>` +
		`<script type="text/javascript">console.log('inline')</script>`
	result, err := rt.Render(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Scripts)
	require.Len(t, result.Console, 1)
	assert.Equal(t, "inline", result.Console[0].Message)
}

func TestRenderTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 50 * time.Millisecond
	rt := New(config, nil)

	start := time.Now()
	_, err := rt.Render(context.Background(), "<script>while (true) {}</script>")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRenderContextCancelled(t *testing.T) {
	rt := newTestRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.Render(ctx, "<script>while (true) {}</script>")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderDOMAccess(t *testing.T) {
	rt := newTestRuntime(t)

	page := `<html><head><title>Live Preview</title></head><body>` +
		`<h1 id="greeting" class="big title">Hello</h1>` +
		`<script>
			const h = document.getElementById('greeting');
			console.log(h.textContent, h.tagName, document.title);
			console.log(document.getElementById('greeting') === h);
			h.textContent = 'Bye';
			console.log(h.textContent);
			console.log(document.getElementsByClassName('title').length);
			console.log(document.querySelector('#missing'));
			const p = document.createElement('p');
			p.textContent = 'added';
			document.body.appendChild(p);
			console.log(document.getElementsByTagName('p').length);
		</script></body></html>`
	result, err := rt.Render(context.Background(), page)
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	var lines []string
	for _, entry := range result.Console {
		lines = append(lines, entry.Message)
	}
	assert.Equal(t, []string{"Hello H1 Live Preview", "true", "Bye", "1", "null", "1"}, lines)

	require.NotEmpty(t, result.DOMChanges)
	assert.Equal(t, DOMChange{Type: "set_text", Selector: "#greeting", Property: "textContent", Value: "Bye"}, result.DOMChanges[0])
}

func TestRenderTimersRunAfterScriptsInDelayOrder(t *testing.T) {
	rt := newTestRuntime(t)

	page := `<script>
		setTimeout(function () { console.log('late'); }, 100);
		setTimeout(function (v) { console.log('early', v); }, 10, 'x');
		const dropped = setTimeout(function () { console.log('dropped'); }, 5);
		clearTimeout(dropped);
		console.log('sync');
	</script>`
	result, err := rt.Render(context.Background(), page)
	require.NoError(t, err)

	var lines []string
	for _, entry := range result.Console {
		lines = append(lines, entry.Message)
	}
	assert.Equal(t, []string{"sync", "early x", "late"}, lines)
}

func TestRenderTimerLimit(t *testing.T) {
	config := DefaultConfig()
	config.MaxTimerTasks = 3
	rt := New(config, nil)

	result, err := rt.Render(context.Background(),
		`<script>function tick() { console.log('t'); setTimeout(tick, 0); } setTimeout(tick, 0);</script>`)
	require.NoError(t, err)
	assert.Len(t, result.Console, 3)
}

func TestRenderIsolatesGlobals(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := rt.Render(context.Background(), "<script>var leaked = 1;</script>")
	require.NoError(t, err)

	result, err := rt.Render(context.Background(),
		"<script>console.log(typeof leaked, typeof require, typeof process, window === self);</script>")
	require.NoError(t, err)
	require.Len(t, result.Console, 1)
	assert.Equal(t, "undefined undefined undefined true", result.Console[0].Message)
}

func TestListenCancel(t *testing.T) {
	rt := newTestRuntime(t)
	first := &recorder{}
	second := &recorder{}

	cancelFirst := rt.Listen(first.listen)
	cancelSecond := rt.Listen(second.listen)
	defer cancelSecond()

	page := "<script>parent.postMessage({type: 'log', message: ['m']}, '*')</script>"
	_, err := rt.Render(context.Background(), page)
	require.NoError(t, err)

	cancelFirst()
	cancelFirst()

	_, err = rt.Render(context.Background(), page)
	require.NoError(t, err)

	assert.Len(t, first.all(), 1)
	assert.Len(t, second.all(), 2)
	assert.Equal(t, page, rt.Page())
}
