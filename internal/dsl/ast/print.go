package ast

import (
	"fmt"
	"strings"
)

// Print renders the subtree rooted at id as an indented, human-readable
// listing. It is the single non-member dispatch function used in place of
// a virtual print method per node kind.
func Print(t *Tree, id ID) string {
	var sb strings.Builder
	printNode(t, id, 0, &sb)
	return sb.String()
}

func printNode(t *Tree, id ID, depth int, sb *strings.Builder) {
	if id == NoID {
		return
	}
	n := t.Node(id)
	sb.WriteString(strings.Repeat("  ", depth))
	if n.Value != "" {
		fmt.Fprintf(sb, "%s(%q) L%d\n", n.Kind, n.Value, n.Line)
	} else {
		fmt.Fprintf(sb, "%s L%d\n", n.Kind, n.Line)
	}
	for _, c := range n.Children {
		printNode(t, c, depth+1, sb)
	}
}

// Walk calls visit for id and every descendant, in pre-order.
func Walk(t *Tree, id ID, visit func(ID, Node)) {
	if id == NoID {
		return
	}
	n := t.Node(id)
	visit(id, n)
	for _, c := range n.Children {
		Walk(t, c, visit)
	}
}

// OverlayAnnotation is a named directive attached to the next function
// declaration encountered during parsing. It is represented in the arena
// as a KindOverlay node whose Value is the
// overlay name and whose Children are its literal/number/identifier
// arguments (each a leaf expression node); this type is a convenience view
// over that representation for the parser's pending-overlay buffer.
type OverlayAnnotation struct {
	Name ID // a KindOverlay node ID
	Line int
}
