/*
Package semtok derives markup-specific annotations from a classified token
stream.

Host classifiers know delimiters, names and attributes. Editors want two
more things highlighted: namespace prefixes, and element names that sit in
closing tags. The normalizer walks the tokens of a region once and emits:

	TokenNamespacePrefix   the "p" of p:Foo (element or attribute)
	TokenClosingTagName    the element name after "</"

Two strategies, one per colon layout:

	in-name (XML)      [</] [p:Foo] [>]
	                          |  |
	                          |  +-- closing-tag-name ":Foo"
	                          +----- namespace-prefix "p"

	separate (XAML)    [</] [p] [:] [Foo] [>]
	                         |   |    |    |
	                         |   |    |    +-- emits closing-tag-name for "Foo"
	                         |   |    +------- remembered
	                         |   +------------ emits namespace-prefix for "p"
	                         +---------------- remembered

State machine:

	            "</"                  name
	Neutral ----------> AfterClosingDelimiter -----> Neutral (closing kept)
	   |                                               |
	   | ":" after a name                              | ":" after a name
	   v                                               v
	AfterDelimiterAwaitingName -------- name -----> Neutral

Transitions are pure functions of (Machine, Token); the only memory is the
Machine value threaded through the walk.
*/
package semtok
