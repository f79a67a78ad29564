package source

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Document is the full set of sources at one point in time.
type Document struct {
	HTML string `json:"html" yaml:"html"`
	CSS  string `json:"css" yaml:"css"`
	JS   string `json:"js" yaml:"js"`
}

// Get returns the value of one field.
func (d Document) Get(f Field) string {
	switch f {
	case HTML:
		return d.HTML
	case CSS:
		return d.CSS
	case JS:
		return d.JS
	}
	return ""
}

func (d *Document) set(f Field, value string) {
	switch f {
	case HTML:
		d.HTML = value
	case CSS:
		d.CSS = value
	case JS:
		d.JS = value
	}
}

const defaultHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>Live Preview</title>
</head>
<body>
  <h1>Hello, World!</h1>
</body>
</html>`

const defaultCSS = `body {
  background: #fff;
  color: #000;
}`

const defaultJS = `console.log('Hello, World!');`

// Defaults returns the seed document used for fields with no stored value.
func Defaults() Document {
	return Document{HTML: defaultHTML, CSS: defaultCSS, JS: defaultJS}
}

// seedFile mirrors Document with optional fields so a seed file may
// override any subset of the defaults.
type seedFile struct {
	HTML *string `yaml:"html"`
	CSS  *string `yaml:"css"`
	JS   *string `yaml:"js"`
}

// LoadSeed reads a YAML seed file and applies it over Defaults.
// An empty path returns Defaults unchanged.
func LoadSeed(path string) (Document, error) {
	doc := Defaults()
	if path == "" {
		return doc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed applies YAML seed content over Defaults.
func ParseSeed(data []byte) (Document, error) {
	doc := Defaults()

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return doc, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if seed.HTML != nil {
		doc.HTML = *seed.HTML
	}
	if seed.CSS != nil {
		doc.CSS = *seed.CSS
	}
	if seed.JS != nil {
		doc.JS = *seed.JS
	}
	return doc, nil
}
