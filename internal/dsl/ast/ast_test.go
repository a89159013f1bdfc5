package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Tree_buildAndPrint(t *testing.T) {
	tree := NewTree()

	lit := tree.New(KindIntLiteral, "42", 1)
	ident := tree.New(KindIdentifier, "x", 1)
	let := tree.New(KindLet, "x", 1, lit)
	_ = ident

	prog := tree.New(KindProgram, "", 1, let)
	tree.SetRoot(prog)

	assert.Equal(t, prog, tree.Root())

	out := Print(tree, tree.Root())
	assert.Contains(t, out, "Program")
	assert.Contains(t, out, `Let("x")`)
	assert.Contains(t, out, `IntLiteral("42")`)
}

func Test_Tree_walkVisitsAllDescendants(t *testing.T) {
	tree := NewTree()
	a := tree.New(KindIntLiteral, "1", 1)
	b := tree.New(KindIntLiteral, "2", 1)
	bin := tree.New(KindBinary, "+", 1, a, b)

	var kinds []Kind
	Walk(tree, bin, func(id ID, n Node) {
		kinds = append(kinds, n.Kind)
	})

	assert.Equal(t, []Kind{KindBinary, KindIntLiteral, KindIntLiteral}, kinds)
}

func Test_Tree_noIDStopsWalk(t *testing.T) {
	tree := NewTree()
	assert.NotPanics(t, func() {
		Walk(tree, NoID, func(id ID, n Node) {
			t.Fatal("should not visit NoID")
		})
	})
}
