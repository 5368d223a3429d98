package fragment

import (
	"fmt"
)

// Kind is the kind of structural event.
type Kind int

const (
	KindStartElement Kind = iota + 1
	KindEndElement
	KindAttribute
)

func (k Kind) String() string {
	switch k {
	case KindStartElement:
		return "StartElement"
	case KindEndElement:
		return "EndElement"
	case KindAttribute:
		return "Attribute"
	default:
		return "Unknown"
	}
}

// Name is a possibly prefixed element or attribute name.
type Name struct {
	Prefix string
	Local  string
}

func ParseName(qualified string) Name {
	for i := 1; i < len(qualified); i++ {
		if qualified[i] == ':' {
			return Name{Prefix: qualified[:i], Local: qualified[i+1:]}
		}
	}
	return Name{Local: qualified}
}

func (n Name) String() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// Event is one structural event of a fragment. Offsets are byte offsets into
// the parsed text; lines and columns are 1-based, columns count grapheme
// clusters.
type Event struct {
	Kind         Kind
	Name         Name
	NamespaceURI string

	// Value is the entity-decoded value of an attribute.
	Value string

	// Depth is 1 for the elements at the fragment's top level. Attributes carry
	// their element's depth; an end tag with nothing open has depth 0.
	Depth int

	// SelfClosing start elements have no matching end event.
	SelfClosing bool
	// Mismatched end events closed an element with a different name.
	Mismatched bool
	// Implicit end events close elements left open inside an ancestor that an
	// end tag closed. They are zero-width at that end tag.
	Implicit bool

	Offset    int
	EndOffset int
	Line      int
	Column    int
	EndLine   int
	EndColumn int

	// OpenOffset and OpenEndOffset bound the start tag an end event closes,
	// -1 when the end tag closed nothing.
	OpenOffset    int
	OpenEndOffset int
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s depth=%d %d:%d-%d:%d)", e.Kind, e.Name, e.Depth, e.Line, e.Column, e.EndLine, e.EndColumn)
}

// IssueCode classifies a structural irregularity.
type IssueCode int

const (
	IssueMalformedMarkup IssueCode = iota + 1
	IssueUnterminated
	IssueMismatchedEnd
	IssueImplicitClose
	IssueStrayEnd
	IssueUnclosedElement
	IssueUndeclaredPrefix
	IssueDuplicateAttribute
	IssueTooMany
)

func (c IssueCode) String() string {
	switch c {
	case IssueMalformedMarkup:
		return "malformed-markup"
	case IssueUnterminated:
		return "unterminated"
	case IssueMismatchedEnd:
		return "mismatched-end"
	case IssueImplicitClose:
		return "implicit-close"
	case IssueStrayEnd:
		return "stray-end"
	case IssueUnclosedElement:
		return "unclosed-element"
	case IssueUndeclaredPrefix:
		return "undeclared-prefix"
	case IssueDuplicateAttribute:
		return "duplicate-attribute"
	case IssueTooMany:
		return "too-many-issues"
	default:
		return "unknown"
	}
}

// Structural reports whether the issue means tags do not pair up as written.
func (c IssueCode) Structural() bool {
	switch c {
	case IssueMismatchedEnd, IssueImplicitClose, IssueStrayEnd, IssueUnclosedElement:
		return true
	default:
		return false
	}
}

// Issue is an irregularity the parser recovered from.
type Issue struct {
	Code    IssueCode
	Message string
	Offset  int
	Line    int
	Column  int
}

func (i Issue) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", i.Line, i.Column, i.Code, i.Message)
}
