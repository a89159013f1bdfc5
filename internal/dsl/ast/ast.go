// Package ast defines the tagged-variant AST node tree that is the contract
// between the parser and IR lowering: a tagged variant over a closed set of
// kinds, arena-owned, with a single non-member dispatch function for
// printing instead of a virtual method per kind.
package ast

// Kind discriminates an AST node's shape. Every non-leaf Kind has a fixed
// child-count contract, enforced by the parser and lowering (see Node).
type Kind int

const (
	KindProgram Kind = iota

	// literals and references
	KindIdentifier
	KindIntLiteral
	KindFloatLiteral
	KindStringLiteral
	KindBoolLiteral

	// expressions
	KindBinary
	KindUnary
	KindTernary
	KindCallExpr
	KindIndexExpr
	KindMemberExpr

	// overlay
	KindOverlay

	// statements
	KindBlock
	KindPrint
	KindLet
	KindFnDecl
	KindParam
	KindCallStmt
	KindReturn
	KindIf
	KindWhile
	KindBreak
	KindContinue
	KindSwitch
	KindCase
	KindDefault
	KindLoop

	// I/O
	KindOpen
	KindWrite
	KindWriteln
	KindRead
	KindClose
	KindInput

	// concurrency
	KindThread
	KindAsync
	KindChannel
	KindSend
	KindRecv
	KindSync
	KindParallel
	KindSchedule
	KindBatch

	// types
	KindStructDecl
	KindField
	KindEnumDecl
	KindEnumValue
	KindUnionDecl
	KindTypedef
	KindClassDecl

	// data / monitoring
	KindMutate
	KindScale
	KindBounds
	KindCheckpoint
	KindVBreak
	KindMatrix
	KindSanitize
	KindPing
	KindAudit
	KindTemperature
	KindPressure
	KindGauge

	// opaque trailing sentinel content, kept only so source round-trips
	// through diagnostics cleanly; semantically inert.
	KindSentinel
)

var kindNames = map[Kind]string{
	KindProgram:       "Program",
	KindIdentifier:    "Identifier",
	KindIntLiteral:    "IntLiteral",
	KindFloatLiteral:  "FloatLiteral",
	KindStringLiteral: "StringLiteral",
	KindBoolLiteral:   "BoolLiteral",
	KindBinary:        "Binary",
	KindUnary:         "Unary",
	KindTernary:       "Ternary",
	KindCallExpr:      "CallExpr",
	KindIndexExpr:     "IndexExpr",
	KindMemberExpr:    "MemberExpr",
	KindOverlay:       "Overlay",
	KindBlock:         "Block",
	KindPrint:         "Print",
	KindLet:           "Let",
	KindFnDecl:        "FnDecl",
	KindParam:         "Param",
	KindCallStmt:      "CallStmt",
	KindReturn:        "Return",
	KindIf:            "If",
	KindWhile:         "While",
	KindBreak:         "Break",
	KindContinue:      "Continue",
	KindSwitch:        "Switch",
	KindCase:          "Case",
	KindDefault:       "Default",
	KindLoop:          "Loop",
	KindOpen:          "Open",
	KindWrite:         "Write",
	KindWriteln:       "Writeln",
	KindRead:          "Read",
	KindClose:         "Close",
	KindInput:         "Input",
	KindThread:        "Thread",
	KindAsync:         "Async",
	KindChannel:       "Channel",
	KindSend:          "Send",
	KindRecv:          "Recv",
	KindSync:          "Sync",
	KindParallel:      "Parallel",
	KindSchedule:      "Schedule",
	KindBatch:         "Batch",
	KindStructDecl:    "StructDecl",
	KindField:         "Field",
	KindEnumDecl:      "EnumDecl",
	KindEnumValue:     "EnumValue",
	KindUnionDecl:     "UnionDecl",
	KindTypedef:       "Typedef",
	KindClassDecl:     "ClassDecl",
	KindMutate:        "Mutate",
	KindScale:         "Scale",
	KindBounds:        "Bounds",
	KindCheckpoint:    "Checkpoint",
	KindVBreak:        "VBreak",
	KindMatrix:        "Matrix",
	KindSanitize:      "Sanitize",
	KindPing:          "Ping",
	KindAudit:         "Audit",
	KindTemperature:   "Temperature",
	KindPressure:      "Pressure",
	KindGauge:         "Gauge",
	KindSentinel:      "Sentinel",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// ID is an index into a Tree's node arena. IDs start at 0; the negative
// NoID is never a valid node.
type ID int

// NoID marks the absence of a child, e.g. an if-statement with no else
// branch.
const NoID ID = -1

// Node is a tagged value: a discriminator, an optional lexical value (the
// name/literal text, for leaf-ish kinds), an ordered list of children, and
// the source line it came from. There is no per-kind Go struct: the fixed
// child-count contract is documented and enforced by the parser and
// lowering, not by the type system.
type Node struct {
	Kind     Kind
	Value    string
	Children []ID
	Line     int
}

// Tree is the arena that owns every Node in a translation unit. Nodes are
// referenced by ID; there are no pointers and therefore no possibility of a
// reference cycle. The arena is released in one bulk free (simply letting
// the Tree go out of scope) once IR lowering has consumed it.
type Tree struct {
	nodes []Node
	root  ID
}

// NewTree returns an empty arena with no root set yet.
func NewTree() *Tree {
	return &Tree{root: NoID}
}

// New allocates a node of the given kind in the arena and returns its ID.
func (t *Tree) New(kind Kind, value string, line int, children ...ID) ID {
	id := ID(len(t.nodes))
	t.nodes = append(t.nodes, Node{Kind: kind, Value: value, Line: line, Children: children})
	return id
}

// Node dereferences id. It panics on an out-of-range ID: that indicates a
// compiler bug (a dangling reference into the wrong arena), never a user
// error.
func (t *Tree) Node(id ID) Node {
	return t.nodes[id]
}

// SetChildren replaces id's child list in place, used by passes (e.g.
// overlay draining) that rewrite a node after its initial construction.
func (t *Tree) SetChildren(id ID, children []ID) {
	n := t.nodes[id]
	n.Children = children
	t.nodes[id] = n
}

// SetValue replaces id's lexical value in place, used by passes (e.g. the
// class-member access-tagging done during parsing) that annotate a node
// after its initial construction.
func (t *Tree) SetValue(id ID, value string) {
	n := t.nodes[id]
	n.Value = value
	t.nodes[id] = n
}

// SetRoot designates id as the translation unit's root.
func (t *Tree) SetRoot(id ID) { t.root = id }

// Root returns the translation unit's root node ID.
func (t *Tree) Root() ID { return t.root }

// Len returns the number of nodes allocated in the arena.
func (t *Tree) Len() int { return len(t.nodes) }
