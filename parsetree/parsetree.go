// Package parsetree is the flat pre-order parse-tree span view shared
// between the parser and the interpreter: nodes live in one flat
// array, children are found by sibling strides rather than pointers,
// and a Span is a zero-copy sub-range comparable by value. This shape
// is grounded on the silva::parse_tree_span_t model described
// throughout original_source/cpp/zoo/lox (e.g. function_t::parameters
// / body in object.cpp, which walk a tree this way).
package parsetree

import (
	"github.com/loxlang/lox/token"
	"github.com/loxlang/lox/ward"
)

// Node is one entry in a Tree's flat pre-order node array.
type Node struct {
	RuleName    ward.NameID
	TokenBegin  int // index into the owning Tokenization
	TokenLength int
	SubtreeSize int // number of Nodes in this node's own subtree, including itself
	NumChildren int
}

// Tree is an immutable flat pre-order array of Nodes produced by the
// parser for one Tokenization.
type Tree struct {
	Tokenization *token.Tokenization
	Nodes        []Node
}

// Span is a zero-copy view of a contiguous run of Nodes within a Tree,
// rooted at local index 0 of that run. Two Spans are equal iff they
// share a Tree pointer and have equal Start/Length — this makes Span a
// valid map key (the key type of interp.Session's resolved map, which
// nothing populates yet).
type Span struct {
	Tree   *Tree
	Start  int
	Length int
}

// Root returns the span covering the entire tree.
func (t *Tree) Root() Span {
	return Span{Tree: t, Start: 0, Length: len(t.Nodes)}
}

// Node returns the root Node of the span.
func (s Span) Node() Node {
	return s.Tree.Nodes[s.Start]
}

// RuleName returns the dotted rule name of the span's root node.
func (s Span) RuleName(w *ward.Ward) string {
	return w.NameString(s.Node().RuleName)
}

// IsValid reports whether the span refers to a real range.
func (s Span) IsValid() bool {
	return s.Tree != nil && s.Length > 0
}

// TokenID returns the interned text id of the span's own leading token
// (valid for single-token atom spans).
func (s Span) TokenID() ward.TokenID {
	return s.Tree.Tokenization.Tokens[s.Node().TokenBegin].ID
}

// Category returns the lexical category of the span's own leading token.
func (s Span) Category() token.Category {
	return s.Tree.Tokenization.Tokens[s.Node().TokenBegin].Category
}

// Text returns the raw source text spanned by this node's own token
// range (not including children), valid only for leaf/atom spans whose
// node covers exactly one token.
func (s Span) Text() string {
	n := s.Node()
	return s.Tree.Tokenization.Text(n.TokenBegin)
}

// SubSpanAt returns the sub-span rooted at local index i within s,
// i.e. the node at s.Start+i together with its own subtree. This is
// the Go twin of parse_tree_span_t::sub_tree_span_at.
func (s Span) SubSpanAt(i int) Span {
	abs := s.Start + i
	n := s.Tree.Nodes[abs]
	return Span{Tree: s.Tree, Start: abs, Length: n.SubtreeSize}
}

// Children returns the direct children of s's root node, walking
// sibling strides of each child's own SubtreeSize. This is the Go twin
// of parse_tree_span_t::children_range.
func (s Span) Children() []Span {
	root := s.Node()
	out := make([]Span, 0, root.NumChildren)
	i := 1 // skip the root node itself
	for c := 0; c < root.NumChildren; c++ {
		child := s.SubSpanAt(i)
		out = append(out, child)
		i += child.Length
	}
	return out
}

// Child returns the i-th direct child of s (0-based), panicking if out
// of range — callers are expected to have validated arity already, the
// same assumption original_source's own accessors make.
func (s Span) Child(i int) Span {
	return s.Children()[i]
}

// Equal reports whether two spans refer to the identical tree range.
func (s Span) Equal(o Span) bool {
	return s.Tree == o.Tree && s.Start == o.Start && s.Length == o.Length
}

// Builder accumulates Nodes in pre-order as a recursive-descent parser
// descends and backtracks, patching in SubtreeSize/NumChildren once
// each node's children are known. Grounded on the same
// append-then-patch shape robfig/soy's parse/parse.go uses for its
// own list-building (newList/append), generalized to flat arrays.
type Builder struct {
	Tokenization *token.Tokenization
	nodes        []Node
}

// NewBuilder creates a Builder over a scanned Tokenization.
func NewBuilder(tz *token.Tokenization) *Builder {
	return &Builder{Tokenization: tz}
}

// Mark reserves a slot for a node that callers will fill in via Close
// once its children have been appended, returning the slot's index.
func (b *Builder) Mark(rule ward.NameID, tokenBegin int) int {
	b.nodes = append(b.nodes, Node{RuleName: rule, TokenBegin: tokenBegin})
	return len(b.nodes) - 1
}

// Close finalizes the node at idx: tokenLength is the number of tokens
// its own leaf (if any) spans, and numChildren is how many direct
// children were appended between Mark and Close.
func (b *Builder) Close(idx, tokenLength, numChildren int) {
	b.nodes[idx].TokenLength = tokenLength
	b.nodes[idx].NumChildren = numChildren
	b.nodes[idx].SubtreeSize = len(b.nodes) - idx
}

// Build finishes the tree.
func (b *Builder) Build() *Tree {
	return &Tree{Tokenization: b.Tokenization, Nodes: b.nodes}
}

// NodeCount reports how many nodes have been appended so far.
func (b *Builder) NodeCount() int {
	return len(b.nodes)
}

// InsertRoot inserts a new placeholder node at index at, shifting
// every node currently at or after at one slot to the right. This is
// how left-associative binary expressions are built in a flat
// pre-order array: the left operand's nodes are parsed and appended
// first, then the operator node is retroactively inserted before them
// once the operator token is seen, and the right operand is appended
// normally afterward — producing the correct pre-order layout
// (operator, then left subtree, then right subtree) without needing
// two passes.
func (b *Builder) InsertRoot(at int, rule ward.NameID, tokenBegin int) int {
	b.nodes = append(b.nodes, Node{})
	copy(b.nodes[at+1:], b.nodes[at:len(b.nodes)-1])
	b.nodes[at] = Node{RuleName: rule, TokenBegin: tokenBegin}
	return at
}
