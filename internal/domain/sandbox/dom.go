package sandbox

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// DOM provides a lightweight document proxy for sandboxed JavaScript
type DOM struct {
	root    *Element
	title   string
	changes []DOMChange
	mu      sync.RWMutex
}

// Element represents a DOM element
type Element struct {
	TagName     string
	ID          string
	ClassName   string
	TextContent string
	Attributes  map[string]string
	Children    []*Element
	Parent      *Element
}

// NewDOM creates an empty document
func NewDOM() *DOM {
	return &DOM{
		root:    newElement("#document"),
		changes: []DOMChange{},
	}
}

// ParseDOM builds the document tree from a parsed page
func ParseDOM(doc *goquery.Document) *DOM {
	d := NewDOM()
	d.title = strings.TrimSpace(doc.Find("title").First().Text())
	appendChildren(doc.Selection, d.root)
	return d
}

func appendChildren(sel *goquery.Selection, parent *Element) {
	sel.Children().Each(func(_ int, child *goquery.Selection) {
		el := newElement(goquery.NodeName(child))
		for _, attr := range child.Get(0).Attr {
			el.Attributes[attr.Key] = attr.Val
		}
		el.ID = el.Attributes["id"]
		el.ClassName = el.Attributes["class"]
		el.TextContent = child.Text()

		parent.AddElement(el)
		appendChildren(child, el)
	})
}

func newElement(tag string) *Element {
	return &Element{
		TagName:    strings.ToUpper(tag),
		Attributes: make(map[string]string),
		Children:   []*Element{},
	}
}

// Root returns the document node
func (d *DOM) Root() *Element {
	return d.root
}

// Title returns the document title
func (d *DOM) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

// Body returns the body element, if any
func (d *DOM) Body() *Element {
	if found := d.ByTag("body"); len(found) > 0 {
		return found[0]
	}
	return nil
}

// Query finds elements by a simple selector: #id, .class or tag
func (d *DOM) Query(selector string) []*Element {
	selector = strings.TrimSpace(selector)
	switch {
	case strings.HasPrefix(selector, "#"):
		if elem := d.ByID(strings.TrimPrefix(selector, "#")); elem != nil {
			return []*Element{elem}
		}
		return []*Element{}
	case strings.HasPrefix(selector, "."):
		return d.ByClass(strings.TrimPrefix(selector, "."))
	default:
		return d.ByTag(selector)
	}
}

// ByID returns the first element with the given id
func (d *DOM) ByID(id string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return findByID(d.root, id)
}

// ByClass returns elements carrying the given class
func (d *DOM) ByClass(class string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return findByClass(d.root, class)
}

// ByTag returns elements with the given tag name; "*" matches all elements
func (d *DOM) ByTag(tag string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return findByTag(d.root, tag)
}

// SetText replaces an element's text content and records the change
func (d *DOM) SetText(elem *Element, text string) {
	d.mu.Lock()
	elem.TextContent = text
	elem.Children = []*Element{}
	d.changes = append(d.changes, DOMChange{
		Type:     "set_text",
		Selector: selectorFor(elem),
		Property: "textContent",
		Value:    text,
	})
	d.mu.Unlock()
}

// SetAttribute sets an attribute and records the change
func (d *DOM) SetAttribute(elem *Element, name, value string) {
	d.mu.Lock()
	elem.SetAttribute(name, value)
	d.changes = append(d.changes, DOMChange{
		Type:     "set_attribute",
		Selector: selectorFor(elem),
		Property: name,
		Value:    value,
	})
	d.mu.Unlock()
}

// Append attaches child to parent and records the change
func (d *DOM) Append(parent, child *Element) {
	d.mu.Lock()
	if child.Parent != nil {
		child.Remove()
	}
	parent.AddElement(child)
	d.changes = append(d.changes, DOMChange{
		Type:     "append_child",
		Selector: selectorFor(parent),
		Property: strings.ToLower(child.TagName),
		Value:    child.TextContent,
	})
	d.mu.Unlock()
}

// GetChanges returns accumulated DOM changes
func (d *DOM) GetChanges() []DOMChange {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]DOMChange{}, d.changes...)
}

// GetAttribute retrieves attribute value
func (e *Element) GetAttribute(name string) (string, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// SetAttribute sets attribute value, keeping id and class in sync
func (e *Element) SetAttribute(name, value string) {
	e.Attributes[name] = value
	switch name {
	case "id":
		e.ID = value
	case "class":
		e.ClassName = value
	}
}

// AddElement adds a child element
func (e *Element) AddElement(child *Element) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// Remove removes element from parent
func (e *Element) Remove() {
	if e.Parent == nil {
		return
	}
	children := e.Parent.Children[:0]
	for _, child := range e.Parent.Children {
		if child != e {
			children = append(children, child)
		}
	}
	e.Parent.Children = children
	e.Parent = nil
}

func selectorFor(e *Element) string {
	if e.ID != "" {
		return "#" + e.ID
	}
	return strings.ToLower(e.TagName)
}

func findByID(elem *Element, id string) *Element {
	if id != "" && elem.ID == id {
		return elem
	}
	for _, child := range elem.Children {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(elem *Element, class string) []*Element {
	var result []*Element
	for _, c := range strings.Fields(elem.ClassName) {
		if c == class {
			result = append(result, elem)
			break
		}
	}
	for _, child := range elem.Children {
		result = append(result, findByClass(child, class)...)
	}
	return result
}

func findByTag(elem *Element, tag string) []*Element {
	var result []*Element
	for _, child := range elem.Children {
		if tag == "*" || strings.EqualFold(child.TagName, tag) {
			result = append(result, child)
		}
		result = append(result, findByTag(child, tag)...)
	}
	return result
}
