package semtok

import (
	"github.com/walteh/tagmatch/pkg/position"
)

// TokenType is the kind of derived annotation.
type TokenType uint32

const (
	// TokenNamespacePrefix marks the prefix of a qualified name (e.g. "x" in x:Name)
	TokenNamespacePrefix TokenType = iota + 1

	// TokenClosingTagName marks an element name inside a closing tag
	TokenClosingTagName
)

// Token is a derived annotation over a span of the classified region.
type Token struct {
	Type  TokenType
	Range position.Span
}

func (t TokenType) String() string {
	switch t {
	case TokenNamespacePrefix:
		return "namespace-prefix"
	case TokenClosingTagName:
		return "closing-tag-name"
	default:
		return "unknown"
	}
}

func (t Token) String() string {
	return t.Type.String() + " " + t.Range.String()
}

// State is the normalizer's position relative to tag structure.
type State int

const (
	StateNeutral State = iota
	StateAfterClosingDelimiter
	StateAfterDelimiterAwaitingName
)

func (s State) String() string {
	switch s {
	case StateNeutral:
		return "Neutral"
	case StateAfterClosingDelimiter:
		return "AfterClosingDelimiter"
	case StateAfterDelimiterAwaitingName:
		return "AfterDelimiterAwaitingName"
	default:
		return "Unknown"
	}
}

// Machine is the value threaded through a normalization walk.
type Machine struct {
	State State

	// InsideClosingTag is set by "</" and cleared at the tag's end.
	InsideClosingTag bool

	// Last is the most recent name span in the separate-colon layout.
	Last    position.Span
	HasLast bool
}
