package workspace

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/flashide/flashide/internal/domain/compose"
	"github.com/flashide/flashide/internal/domain/console"
	"github.com/flashide/flashide/internal/domain/sandbox"
	"github.com/flashide/flashide/internal/domain/source"
	"github.com/flashide/flashide/internal/infrastructure/monitoring"
)

// Status is the lifecycle of the latest prompt request.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
	StatusStale    Status = "stale"
)

// State is the UI-facing part of the workspace.
type State struct {
	Tab     source.Field `json:"tab"`
	Prompt  string       `json:"prompt"`
	Loading bool         `json:"loading"`
	Status  Status       `json:"status"`
	Error   string       `json:"error,omitempty"`
}

// Snapshot is the state together with the current sources.
type Snapshot struct {
	State
	Fields source.Document `json:"fields"`
}

// Asker turns a prompt into source code for a tab.
type Asker interface {
	Ask(ctx context.Context, prompt, tab string) (string, error)
}

// Options tunes optional behaviour.
type Options struct {
	DiscardStale  bool
	SurfaceErrors bool
	Metrics       *monitoring.Metrics
	Logger        *zap.Logger
}

// Workspace binds state, sources, preview and console together.
type Workspace struct {
	store   *source.Store
	console *console.Store
	sandbox sandbox.Sandbox
	asker   Asker
	opts    Options
	logger  *zap.Logger

	mu         sync.RWMutex
	state      State
	preview    string
	lastRender *sandbox.Result
	requestSeq uint64

	baseCtx context.Context
	cancel  context.CancelFunc
	unbind  []func()
	asks    sync.WaitGroup
}

// New creates a workspace. Call Mount before use.
func New(store *source.Store, log *console.Store, sb sandbox.Sandbox, asker Asker, opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Workspace{
		store:   store,
		console: log,
		sandbox: sb,
		asker:   asker,
		opts:    opts,
		logger:  logger,
		state: State{
			Tab:    source.HTML,
			Status: StatusIdle,
		},
	}
}

// Mount attaches the console listener and the re-render hook, then
// renders the current document once.
func (w *Workspace) Mount(ctx context.Context) error {
	w.baseCtx, w.cancel = context.WithCancel(ctx)

	w.unbind = append(w.unbind,
		w.sandbox.Listen(w.onMessage),
		w.store.OnChange(func(source.Field, string) { w.render(w.baseCtx) }),
	)

	return w.render(w.baseCtx)
}

// Close detaches listeners, cancels in-flight requests and waits for them.
func (w *Workspace) Close() {
	for _, fn := range w.unbind {
		fn()
	}
	w.unbind = nil
	if w.cancel != nil {
		w.cancel()
	}
	w.asks.Wait()
}

func (w *Workspace) onMessage(msg sandbox.Message) {
	if msg.Type != sandbox.MessageTypeLog || msg.Message == nil {
		return
	}

	entry := w.console.Append(msg.Message)
	if w.opts.Metrics != nil {
		w.opts.Metrics.IncConsoleEntries()
	}
	w.logger.Debug("Console entry", zap.String("entry", entry))
}

func (w *Workspace) render(ctx context.Context) error {
	doc := w.store.Document()
	page := compose.Compose(doc.HTML, doc.CSS, doc.JS)

	w.mu.Lock()
	w.preview = page
	w.mu.Unlock()

	result, err := w.sandbox.Render(ctx, page)
	if result != nil {
		w.mu.Lock()
		w.lastRender = result
		w.mu.Unlock()

		if w.opts.Metrics != nil {
			w.opts.Metrics.RecordRender(result.Duration, len(result.Errors))
		}
	}
	if err != nil {
		w.logger.Warn("Preview render aborted", zap.Error(err))
		return fmt.Errorf("failed to render preview: %w", err)
	}
	return nil
}

// SetTab switches the active tab. Sources are untouched.
func (w *Workspace) SetTab(tab string) error {
	field, err := source.ParseField(tab)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.state.Tab = field
	w.mu.Unlock()
	return nil
}

// SetField records a user edit. It returns once the edit is persisted and
// the preview has been rendered.
func (w *Workspace) SetField(ctx context.Context, name, value string) error {
	field, err := source.ParseField(name)
	if err != nil {
		return err
	}
	return w.store.Set(ctx, field, value)
}

// SetPrompt replaces the prompt text.
func (w *Workspace) SetPrompt(prompt string) {
	w.mu.Lock()
	w.state.Prompt = prompt
	w.mu.Unlock()
}

// SetLoading sets the loading flag.
func (w *Workspace) SetLoading(loading bool) {
	w.mu.Lock()
	w.state.Loading = loading
	w.mu.Unlock()
}

// State returns the current state.
func (w *Workspace) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Snapshot returns the state and the current sources.
func (w *Workspace) Snapshot() Snapshot {
	return Snapshot{State: w.State(), Fields: w.store.Document()}
}

// Preview returns the last composed page.
func (w *Workspace) Preview() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.preview
}

// LastRender returns the result of the last render, if any.
func (w *Workspace) LastRender() *sandbox.Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRender
}

// Console returns the console log.
func (w *Workspace) Console() *console.Store {
	return w.console
}

// Ask sends the current prompt for the active tab and applies the result.
// A blank prompt does nothing. The returned error is also logged.
func (w *Workspace) Ask(ctx context.Context) error {
	req, ok := w.begin()
	if !ok {
		return nil
	}
	return w.complete(ctx, req)
}

// AskAsync moves the workspace to pending and finishes the request in the
// background on the workspace's own context. It reports whether a request
// was started.
func (w *Workspace) AskAsync() bool {
	req, ok := w.begin()
	if !ok {
		return false
	}

	ctx := w.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}

	w.asks.Add(1)
	go func() {
		defer w.asks.Done()
		_ = w.complete(ctx, req)
	}()
	return true
}

type askRequest struct {
	id     uint64
	tab    source.Field
	prompt string
}

func (w *Workspace) begin() (askRequest, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if strings.TrimSpace(w.state.Prompt) == "" {
		return askRequest{}, false
	}

	w.requestSeq++
	req := askRequest{id: w.requestSeq, tab: w.state.Tab, prompt: w.state.Prompt}
	w.state.Loading = true
	w.state.Status = StatusPending
	w.state.Error = ""

	if w.opts.Metrics != nil {
		w.opts.Metrics.AskStarted()
	}
	return req, true
}

func (w *Workspace) complete(ctx context.Context, req askRequest) error {
	status, err := w.apply(ctx, req)

	w.mu.Lock()
	w.state.Loading = false
	w.state.Prompt = ""
	w.state.Status = status
	if err != nil && w.opts.SurfaceErrors {
		w.state.Error = err.Error()
	}
	w.mu.Unlock()

	if w.opts.Metrics != nil {
		w.opts.Metrics.AskFinished(string(status))
	}
	return err
}

func (w *Workspace) apply(ctx context.Context, req askRequest) (Status, error) {
	tab := req.tab
	result, err := w.asker.Ask(ctx, req.prompt, tab.String())
	if err != nil {
		w.logger.Error("AI Error", zap.String("tab", tab.String()), zap.Error(err))
		return StatusFailed, err
	}

	if w.opts.DiscardStale && !w.isLatest(req.id) {
		w.logger.Info("Discarding stale AI result", zap.String("tab", tab.String()), zap.Uint64("request", req.id))
		return StatusStale, nil
	}

	if err := w.store.Set(ctx, tab, result); err != nil {
		w.logger.Error("AI Error", zap.String("tab", tab.String()), zap.Error(err))
		return StatusFailed, err
	}
	return StatusResolved, nil
}

func (w *Workspace) isLatest(id uint64) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return id == w.requestSeq
}
