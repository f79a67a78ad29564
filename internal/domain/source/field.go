package source

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownField is returned for a field name other than html, css or js.
var ErrUnknownField = errors.New("unknown source field")

// Field names one of the three editable sources. It doubles as the tab name.
type Field string

const (
	HTML Field = "html"
	CSS  Field = "css"
	JS   Field = "js"
)

// Fields lists every field in display order.
var Fields = []Field{HTML, CSS, JS}

// ParseField accepts a field or tab name, case-insensitively.
func ParseField(name string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(name))); f {
	case HTML, CSS, JS:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Key returns the stable persistence key (htmlCode, cssCode, jsCode).
func (f Field) Key() string {
	return string(f) + "Code"
}

func (f Field) valid() bool {
	return f == HTML || f == CSS || f == JS
}

func (f Field) String() string {
	return string(f)
}
