package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Runtime renders pages in fresh goja VMs and relays posted messages to
// host listeners
type Runtime struct {
	config Config
	logger *zap.Logger

	// One render at a time; each completes before the next starts.
	renderMu sync.Mutex
	page     string

	listenersMu  sync.RWMutex
	listeners    []listenerEntry
	nextListener uint64
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// New creates a new sandbox runtime
func New(config Config, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{
		config: config,
		logger: logger,
	}
}

// Listen registers a host listener for posted messages. The returned
// function deregisters it and is safe to call more than once.
func (r *Runtime) Listen(fn Listener) func() {
	r.listenersMu.Lock()
	id := r.nextListener
	r.nextListener++
	r.listeners = append(r.listeners, listenerEntry{id: id, fn: fn})
	r.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.listenersMu.Lock()
			defer r.listenersMu.Unlock()
			for i, l := range r.listeners {
				if l.id == id {
					r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Page returns the document currently loaded in the sandbox
func (r *Runtime) Page() string {
	r.renderMu.Lock()
	defer r.renderMu.Unlock()
	return r.page
}

func (r *Runtime) dispatch(msg Message) {
	r.listenersMu.RLock()
	listeners := append([]listenerEntry(nil), r.listeners...)
	r.listenersMu.RUnlock()

	for _, l := range listeners {
		l.fn(msg)
	}
}

// Render replaces the sandbox document with page and runs it from scratch.
// Script errors are recorded in the result; only a timeout or a cancelled
// context aborts the render with an error.
func (r *Runtime) Render(ctx context.Context, page string) (*Result, error) {
	r.renderMu.Lock()
	defer r.renderMu.Unlock()

	start := time.Now()
	result := &Result{
		Console:    []LogEntry{},
		Errors:     []ScriptError{},
		DOMChanges: []DOMChange{},
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	r.page = page

	f := newFrame(r, ParseDOM(doc), result)
	f.setupGlobals()

	stop := r.watch(ctx, f.vm)
	defer stop()

	finish := func(err error) (*Result, error) {
		result.DOMChanges = f.dom.GetChanges()
		result.Duration = time.Since(start)
		return result, err
	}

	for i, src := range extractScripts(doc) {
		result.Scripts++
		_, err := f.vm.RunString(src)
		if err := f.handle(i, err); err != nil {
			return finish(err)
		}
	}

	return finish(f.drainTimers())
}

// watch interrupts vm on timeout or cancellation until the returned stop
// function is called
func (r *Runtime) watch(ctx context.Context, vm *goja.Runtime) func() {
	done := make(chan struct{})

	var timeout <-chan time.Time
	var timer *time.Timer
	if r.config.Timeout > 0 {
		timer = time.NewTimer(r.config.Timeout)
		timeout = timer.C
	}

	go func() {
		if timer != nil {
			defer timer.Stop()
		}
		select {
		case <-timeout:
			vm.Interrupt(ErrTimeout)
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	return func() { close(done) }
}

func extractScripts(doc *goquery.Document) []string {
	var scripts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if !isClassicScript(s.AttrOr("type", "")) {
			return
		}
		scripts = append(scripts, s.Text())
	})
	return scripts
}

func isClassicScript(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
		return true
	}
	return false
}

// frame is the per-render browsing context
type frame struct {
	vm      *goja.Runtime
	runtime *Runtime
	dom     *DOM
	result  *Result

	proxies  map[*Element]*goja.Object
	elements map[*goja.Object]*Element

	timers   []*timerTask
	timerSeq int64
	clock    int64
}

type timerTask struct {
	id   int64
	at   int64
	fn   goja.Callable
	args []goja.Value
}

func newFrame(r *Runtime, dom *DOM, result *Result) *frame {
	return &frame{
		vm:       goja.New(),
		runtime:  r,
		dom:      dom,
		result:   result,
		proxies:  make(map[*Element]*goja.Object),
		elements: make(map[*goja.Object]*Element),
	}
}

// handle records a script error, or returns the abort cause when the VM
// was interrupted
func (f *frame) handle(script int, err error) error {
	if err == nil {
		return nil
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
		return ErrTimeout
	}

	f.result.Errors = append(f.result.Errors, ScriptError{Script: script, Message: err.Error()})
	f.runtime.logger.Warn("preview script error", zap.Int("script", script), zap.Error(err))
	return nil
}

func (f *frame) setupGlobals() {
	vm := f.vm
	cfg := f.runtime.config
	global := vm.GlobalObject()

	if cfg.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(cfg.MaxCallStackSize)
	}

	// Remove dangerous globals
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	if cfg.EnableConsole {
		console := vm.NewObject()
		for _, level := range []string{"log", "warn", "error", "info", "debug"} {
			console.Set(level, f.consoleFunc(level))
		}
		vm.Set("console", console)
	}

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }

	// The host page sits behind parent (and top) as it does for an iframe.
	parent := vm.NewObject()
	parent.Set("postMessage", f.postMessage)
	vm.Set("parent", parent)
	vm.Set("top", parent)
	vm.Set("window", global)
	vm.Set("self", global)
	vm.Set("addEventListener", noop)
	vm.Set("removeEventListener", noop)
	vm.Set("alert", f.consoleFunc("alert"))

	vm.Set("setTimeout", f.setTimeout)
	vm.Set("clearTimeout", f.clearTimeout)
	vm.Set("setInterval", func(goja.FunctionCall) goja.Value { return vm.ToValue(0) })
	vm.Set("clearInterval", noop)

	if cfg.EnableDOM {
		vm.Set("document", f.document())
	}
}

func (f *frame) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		f.result.Console = append(f.result.Console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})

		return goja.Undefined()
	}
}

func (f *frame) postMessage(call goja.FunctionCall) goja.Value {
	msg := toMessage(call.Argument(0))
	msg.Origin = "*"
	if origin := call.Argument(1); !goja.IsUndefined(origin) {
		msg.Origin = origin.String()
	}

	f.result.Messages++
	f.runtime.dispatch(msg)
	return goja.Undefined()
}

func toMessage(data goja.Value) Message {
	var msg Message

	obj, ok := data.(*goja.Object)
	if !ok {
		return msg
	}
	if t := obj.Get("type"); t != nil {
		msg.Type, _ = t.Export().(string)
	}

	payload, ok := obj.Get("message").(*goja.Object)
	if !ok || payload.ClassName() != "Array" {
		return msg
	}

	n := payload.Get("length").ToInteger()
	msg.Message = make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		msg.Message = append(msg.Message, joinString(payload.Get(strconv.FormatInt(i, 10))))
	}
	return msg
}

// joinString converts v the way Array.prototype.join converts elements
func joinString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func (f *frame) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		return f.vm.ToValue(0)
	}

	delay := call.Argument(1).ToInteger()
	if delay < 0 {
		delay = 0
	}

	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	f.timerSeq++
	f.timers = append(f.timers, &timerTask{id: f.timerSeq, at: f.clock + delay, fn: fn, args: args})
	return f.vm.ToValue(f.timerSeq)
}

func (f *frame) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	for i, task := range f.timers {
		if task.id == id {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			break
		}
	}
	return goja.Undefined()
}

// drainTimers runs queued setTimeout callbacks on a virtual clock
func (f *frame) drainTimers() error {
	limit := f.runtime.config.MaxTimerTasks
	for ran := 0; len(f.timers) > 0; ran++ {
		if limit > 0 && ran >= limit {
			f.runtime.logger.Warn("preview timer limit reached, dropping callbacks",
				zap.Int("pending", len(f.timers)))
			f.timers = nil
			return nil
		}

		next := 0
		for i, task := range f.timers {
			if task.at < f.timers[next].at || (task.at == f.timers[next].at && task.id < f.timers[next].id) {
				next = i
			}
		}
		task := f.timers[next]
		f.timers = append(f.timers[:next], f.timers[next+1:]...)
		f.clock = task.at

		_, err := task.fn(goja.Undefined(), task.args...)
		if err := f.handle(-1, err); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) document() *goja.Object {
	vm := f.vm
	doc := vm.NewObject()

	first := func(found []*Element) goja.Value {
		if len(found) == 0 {
			return goja.Null()
		}
		return f.proxy(found[0])
	}

	doc.Set("title", f.dom.Title())
	doc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		if el := f.dom.ByID(call.Argument(0).String()); el != nil {
			return f.proxy(el)
		}
		return goja.Null()
	})
	doc.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return first(f.dom.Query(call.Argument(0).String()))
	})
	doc.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return f.proxyList(f.dom.Query(call.Argument(0).String()))
	})
	doc.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		return f.proxyList(f.dom.ByClass(call.Argument(0).String()))
	})
	doc.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return f.proxyList(f.dom.ByTag(call.Argument(0).String()))
	})
	doc.Set("createElement", func(call goja.FunctionCall) goja.Value {
		return f.proxy(newElement(call.Argument(0).String()))
	})
	doc.Set("addEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	if body := f.dom.Body(); body != nil {
		doc.Set("body", f.proxy(body))
	}

	return doc
}

func (f *frame) proxyList(found []*Element) goja.Value {
	items := make([]interface{}, len(found))
	for i, el := range found {
		items[i] = f.proxy(el)
	}
	return f.vm.NewArray(items...)
}

// proxy returns the script-facing object for el; the same element always
// maps to the same object
func (f *frame) proxy(el *Element) *goja.Object {
	if obj, ok := f.proxies[el]; ok {
		return obj
	}

	vm := f.vm
	obj := vm.NewObject()
	f.proxies[el] = obj
	f.elements[obj] = el

	accessor := func(name string, get func() string, set func(string)) {
		getter := vm.ToValue(func(goja.FunctionCall) goja.Value { return vm.ToValue(get()) })
		setter := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0).String())
			return goja.Undefined()
		})
		obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
	}

	text := func() string { return el.TextContent }
	setText := func(v string) { f.dom.SetText(el, v) }

	obj.Set("tagName", el.TagName)
	accessor("id", func() string { return el.ID }, func(v string) { f.dom.SetAttribute(el, "id", v) })
	accessor("className", func() string { return el.ClassName }, func(v string) { f.dom.SetAttribute(el, "class", v) })
	accessor("textContent", text, setText)
	accessor("innerText", text, setText)
	accessor("innerHTML", text, setText)

	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := el.GetAttribute(call.Argument(0).String()); ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		f.dom.SetAttribute(el, call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		childObj, _ := call.Argument(0).(*goja.Object)
		child, ok := f.elements[childObj]
		if !ok {
			panic(vm.NewTypeError("appendChild: argument is not an element"))
		}
		f.dom.Append(el, child)
		return childObj
	})
	obj.Set("addEventListener", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	obj.Set("style", vm.NewObject())

	return obj
}
