/*
Package dialect describes the two markup dialects the engine understands.

Hosts label tokens with dialect-specific category names. A Dialect answers
the three questions the engine asks of a category (delimiter, element name,
attribute name) and says how a qualified name like p:Foo is tokenized:

	XML   <p:Foo>   ->  "<" [p:Foo] ">"          colon inside the name token
	XAML  <p:Foo>   ->  "<" [p] ":" [Foo] ">"    colon is its own delimiter
*/
package dialect

import (
	"path"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ColonSplit says how a qualified name reaches the engine.
type ColonSplit int

const (
	// ColonInName: prefix, colon and local name arrive as one name token.
	ColonInName ColonSplit = iota
	// ColonSeparate: prefix and local name are separate name tokens with a
	// colon delimiter token between them.
	ColonSeparate
)

func (c ColonSplit) String() string {
	switch c {
	case ColonInName:
		return "in-name"
	case ColonSeparate:
		return "separate"
	default:
		return "unknown"
	}
}

// Labels are the category names a dialect's classifier emits.
type Labels struct {
	Delimiter string
	Name      string
	Attribute string
	Text      string
}

type Dialect interface {
	Name() string
	Labels() Labels
	ColonSplit() ColonSplit

	IsDelimiter(category string) bool
	IsName(category string) bool
	IsAttribute(category string) bool
}

// ClosingOpener is the delimiter that opens a closing tag in both dialects.
const ClosingOpener = "</"

type markup struct {
	name   string
	labels Labels
	split  ColonSplit
}

func (m *markup) Name() string { return m.name }

func (m *markup) Labels() Labels { return m.labels }

func (m *markup) ColonSplit() ColonSplit { return m.split }

func (m *markup) IsDelimiter(category string) bool { return category == m.labels.Delimiter }

func (m *markup) IsName(category string) bool { return category == m.labels.Name }

func (m *markup) IsAttribute(category string) bool { return category == m.labels.Attribute }

func (m *markup) String() string { return m.name }

var (
	XML Dialect = &markup{
		name: "xml",
		labels: Labels{
			Delimiter: "XML Delimiter",
			Name:      "XML Name",
			Attribute: "XML Attribute",
			Text:      "XML Text",
		},
		split: ColonInName,
	}

	XAML Dialect = &markup{
		name: "xaml",
		labels: Labels{
			Delimiter: "XAML Delimiter",
			Name:      "XAML Name",
			Attribute: "XAML Attribute",
			Text:      "XAML Text",
		},
		split: ColonSeparate,
	}
)

var ErrUnknownDialect = errors.Base("unknown dialect")

// All returns the supported dialects.
func All() []Dialect {
	return []Dialect{XML, XAML}
}

// Lookup finds a dialect by name, ignoring case.
func Lookup(name string) (Dialect, error) {
	for _, d := range All() {
		if strings.EqualFold(d.Name(), name) {
			return d, nil
		}
	}
	return nil, errors.Errorf("looking up %q: %w", name, ErrUnknownDialect)
}

// ForPath picks a dialect from a file extension; anything but .xaml is XML.
func ForPath(p string) Dialect {
	if strings.EqualFold(path.Ext(p), ".xaml") {
		return XAML
	}
	return XML
}
