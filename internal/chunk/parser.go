package chunk

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// node is a lightweight copy of a tree-sitter node, detached from the parser
// so trees can outlive it.
type node struct {
	kind      string
	startByte int
	endByte   int
	startRow  int
	endRow    int
	children  []*node
}

// parse runs tree-sitter and converts the tree. Returns an error when the
// language has no grammar or parsing fails outright; a tree with syntax
// errors still converts (structural chunking degrades gracefully).
func parse(ctx context.Context, source []byte, lang string) (*node, error) {
	grammar, ok := DefaultRegistry().Grammar(lang)
	if !ok {
		return nil, fmt.Errorf("no grammar for language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse: nil tree")
	}
	defer tree.Close()

	return convert(tree.RootNode()), nil
}

func convert(ts *sitter.Node) *node {
	if ts == nil {
		return nil
	}
	n := &node{
		kind:      ts.Type(),
		startByte: int(ts.StartByte()),
		endByte:   int(ts.EndByte()),
		startRow:  int(ts.StartPoint().Row),
		endRow:    int(ts.EndPoint().Row),
	}
	count := int(ts.ChildCount())
	if count > 0 {
		n.children = make([]*node, 0, count)
		for i := 0; i < count; i++ {
			if c := ts.Child(i); c != nil {
				n.children = append(n.children, convert(c))
			}
		}
	}
	return n
}

// walk traverses depth-first; fn returns false to skip a subtree.
func (n *node) walk(fn func(*node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.walk(fn)
	}
}

func (n *node) content(source []byte) string {
	if n.startByte >= n.endByte || n.endByte > len(source) {
		return ""
	}
	return string(source[n.startByte:n.endByte])
}

// symbolName extracts the declared name of a definition node: the first
// shallow child whose kind names an identifier.
func (n *node) symbolName(source []byte) string {
	for _, c := range n.children {
		if isIdentifierKind(c.kind) {
			return c.content(source)
		}
		// One level deeper covers wrappers like Go's type_spec and Rust's
		// generic declarators.
		for _, gc := range c.children {
			if isIdentifierKind(gc.kind) {
				return gc.content(source)
			}
		}
	}
	return ""
}

func isIdentifierKind(kind string) bool {
	switch kind {
	case "identifier", "field_identifier", "type_identifier", "property_identifier", "constant":
		return true
	}
	return strings.HasSuffix(kind, "_identifier")
}
