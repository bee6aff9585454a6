// Package parser discovers documentable units (functions, methods,
// classes) in source files using Tree-sitter.
package parser

// Kind classifies a documentable unit.
type Kind string

const (
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
	KindClass    Kind = "class"
)

// Unit describes one documentable unit found in a source file. Line
// numbers are 1-indexed; columns are 0-indexed byte offsets.
type Unit struct {
	Name          string
	QualifiedName string
	Kind          Kind
	Path          string

	// StartLine and EndLine span the whole unit, decorators included.
	StartLine int
	EndLine   int

	// DefEndLine is the line holding the colon that opens the body.
	DefEndLine int

	// BodyStartLine and BodyStartCol locate the first body statement.
	// BodyStartLine == DefEndLine for one-liners like "def f(): pass".
	BodyStartLine int
	BodyStartCol  int

	// BodyIndent is the indentation for statements in the unit's body.
	BodyIndent string

	// Source is the full unit text, used for prompting.
	Source string

	// Docstring is the dedented content of an existing docstring.
	// DocstringStart and DocstringEnd span the docstring statement's
	// lines; both are 0 when the unit has no docstring.
	Docstring      string
	DocstringStart int
	DocstringEnd   int

	// QuoteStyle is the triple-quote style of the existing docstring,
	// `"""` when there is none or it uses single quotes.
	QuoteStyle string
}

// HasDocstring reports whether the unit already carries a docstring.
func (u Unit) HasDocstring() bool {
	return u.DocstringStart > 0
}

// CodeParser extracts documentable units from source files of one
// language.
type CodeParser interface {
	// Parse extracts units from a file's content in source order.
	Parse(path string, content []byte) ([]Unit, error)
	// SupportedExtensions returns the file extensions this parser handles.
	SupportedExtensions() []string
	// Language returns the language name.
	Language() string
}
