package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParser implements CodeParser for Python source files.
type PythonParser struct{}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	return &PythonParser{}
}

// Language returns "python".
func (p *PythonParser) Language() string {
	return "python"
}

// SupportedExtensions returns [".py", ".pyw"].
func (p *PythonParser) SupportedExtensions() []string {
	return []string{".py", ".pyw"}
}

// Parse extracts functions, methods, and classes at every nesting
// level. A Tree-sitter parser instance is not safe for concurrent use,
// so each call creates its own.
func (p *PythonParser) Parse(path string, content []byte) ([]Unit, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("syntax error in %s", path)
	}

	var units []Unit
	p.walkNode(root, path, "", false, content, &units)
	return units, nil
}

// walkNode recursively walks the AST and collects documentable units.
// prefix carries the qualified-name chain; inClass marks direct class
// body members as methods.
func (p *PythonParser) walkNode(node *sitter.Node, path, prefix string, inClass bool, content []byte, units *[]Unit) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "function_definition":
			p.collectFunction(child, child, path, prefix, inClass, content, units)

		case "class_definition":
			p.collectClass(child, child, path, prefix, content, units)

		case "decorated_definition":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				inner := child.NamedChild(j)
				if inner.Type() == "function_definition" {
					p.collectFunction(child, inner, path, prefix, inClass, content, units)
				} else if inner.Type() == "class_definition" {
					p.collectClass(child, inner, path, prefix, content, units)
				}
			}

		default:
			// Recurse into other compound statements so defs inside
			// if/try/with blocks keep their enclosing scope.
			p.walkNode(child, path, prefix, inClass, content, units)
		}
	}
}

func (p *PythonParser) collectFunction(outer, def *sitter.Node, path, prefix string, inClass bool, content []byte, units *[]Unit) {
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := string(content[nameNode.StartByte():nameNode.EndByte()])

	kind := KindFunction
	if inClass {
		kind = KindMethod
	}

	unit := p.buildUnit(outer, def, name, prefix, kind, path, content)
	*units = append(*units, unit)

	// Nested defs belong to the function's scope, not the class's.
	if body := def.ChildByFieldName("body"); body != nil {
		p.walkNode(body, path, unit.QualifiedName, false, content, units)
	}
}

func (p *PythonParser) collectClass(outer, def *sitter.Node, path, prefix string, content []byte, units *[]Unit) {
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := string(content[nameNode.StartByte():nameNode.EndByte()])

	unit := p.buildUnit(outer, def, name, prefix, KindClass, path, content)
	*units = append(*units, unit)

	if body := def.ChildByFieldName("body"); body != nil {
		p.walkNode(body, path, unit.QualifiedName, true, content, units)
	}
}

// buildUnit assembles a Unit from a definition node. outer includes
// decorators when present; def is the bare definition.
func (p *PythonParser) buildUnit(outer, def *sitter.Node, name, prefix string, kind Kind, path string, content []byte) Unit {
	qualified := name
	if prefix != "" {
		qualified = prefix + "." + name
	}

	unit := Unit{
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		Path:          path,
		StartLine:     int(outer.StartPoint().Row) + 1,
		EndLine:       int(outer.EndPoint().Row) + 1,
		Source:        string(content[outer.StartByte():outer.EndByte()]),
		QuoteStyle:    `"""`,
	}

	// The header colon is a direct anonymous child of the definition;
	// colons in parameter annotations sit deeper in the tree.
	colonRow := def.StartPoint().Row
	for i := 0; i < int(def.ChildCount()); i++ {
		if c := def.Child(i); c.Type() == ":" {
			colonRow = c.EndPoint().Row
			break
		}
	}
	unit.DefEndLine = int(colonRow) + 1

	body := def.ChildByFieldName("body")
	if body == nil {
		unit.BodyStartLine = unit.DefEndLine
		unit.BodyIndent = strings.Repeat(" ", int(def.StartPoint().Column)+4)
		return unit
	}

	unit.BodyStartLine = int(body.StartPoint().Row) + 1
	unit.BodyStartCol = int(body.StartPoint().Column)
	if unit.BodyStartLine == unit.DefEndLine {
		// One-liner body; splicing later rewrites it into block form.
		unit.BodyIndent = strings.Repeat(" ", int(def.StartPoint().Column)+4)
	} else {
		unit.BodyIndent = strings.Repeat(" ", unit.BodyStartCol)
	}

	p.detectDocstring(body, content, &unit)
	return unit
}

// detectDocstring checks whether the first body statement is a plain
// string expression and records its span, content, and quote style.
func (p *PythonParser) detectDocstring(body *sitter.Node, content []byte, unit *Unit) {
	if body.NamedChildCount() == 0 {
		return
	}
	stmt := body.NamedChild(0)
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return
	}
	str := stmt.NamedChild(0)
	if str.Type() != "string" {
		return
	}

	raw := string(content[str.StartByte():str.EndByte()])
	delim, inner := splitStringLiteral(raw)

	unit.DocstringStart = int(stmt.StartPoint().Row) + 1
	unit.DocstringEnd = int(stmt.EndPoint().Row) + 1
	unit.Docstring = dedentDocstring(inner)
	if delim == "'''" {
		unit.QuoteStyle = "'''"
	}
}

// splitStringLiteral separates a Python string literal into its quote
// delimiter and inner content, skipping any r/b/u/f prefix.
func splitStringLiteral(raw string) (delim, inner string) {
	i := 0
	for i < len(raw) && raw[i] != '"' && raw[i] != '\'' {
		i++
	}
	rest := raw[i:]

	switch {
	case strings.HasPrefix(rest, `"""`):
		delim = `"""`
	case strings.HasPrefix(rest, "'''"):
		delim = "'''"
	case strings.HasPrefix(rest, `"`):
		delim = `"`
	case strings.HasPrefix(rest, "'"):
		delim = "'"
	default:
		return `"""`, ""
	}

	inner = strings.TrimPrefix(rest, delim)
	if len(inner) >= len(delim) && strings.HasSuffix(inner, delim) {
		inner = inner[:len(inner)-len(delim)]
	}
	return delim, inner
}

// dedentDocstring normalizes extracted docstring content: drops the
// blank line after opening quotes, strips the common indentation from
// continuation lines, and trims trailing blanks.
func dedentDocstring(inner string) string {
	lines := strings.Split(inner, "\n")
	if len(lines) == 1 {
		return strings.TrimSpace(inner)
	}

	keepFirst := true
	if strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
		keepFirst = false
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}

	start := 0
	if keepFirst {
		start = 1
	}
	indent := -1
	for _, line := range lines[start:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if keepFirst && i == 0 {
			out = append(out, strings.TrimRight(line, " \t"))
			continue
		}
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}
		if indent > 0 && len(line) >= indent {
			line = line[indent:]
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}
