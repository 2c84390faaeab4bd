// Package interp is the tree-walking evaluator, executor, and builtin
// registry: the part of the system that actually runs a parsed Lox
// program. Its dispatch-by-rule-name shape is grounded on state.walk's
// big type switch in robfig/soy/exec.go (there dispatching on Go
// types, here on ward.NameID because the AST is untyped parsetree
// spans); its expression/statement semantics — operator dispatch,
// call_function's arity-checked scope framing, class
// instantiation-plus-init, the Normal/Returning control-flow state —
// are ported from evaluation_t/execution_t in
// original_source/cpp/zoo/lox/interpreter.cpp.
package interp

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/loxlang/lox/loxerr"
	"github.com/loxlang/lox/object"
	"github.com/loxlang/lox/parser"
	"github.com/loxlang/lox/parsetree"
	"github.com/loxlang/lox/scope"
	"github.com/loxlang/lox/ward"
)

// Logger is the package-level logger every Session writes lifecycle
// notices to, following the bare *log.Logger-to-stderr convention
// robfig/soy's own package-level Logger (exec.go, bundle.go) uses
// rather than a structured logging library.
var Logger = log.New(os.Stderr, "[lox] ", 0)

// Session is one interpretation session: a single object pool and
// scope cactus, plus the compiled rule-name table needed to dispatch
// on parsed spans. Each Session is tagged with a UUID so that
// cmd/lox's concurrent batch mode can tell sessions' log lines apart.
type Session struct {
	ID     uuid.UUID
	Ward   *ward.Ward
	Rules  *parser.Rules
	Pool   *object.Pool
	Cactus *scope.Cactus
	Out    io.Writer

	globals scope.Handle
	tiThis  ward.TokenID
	tiInit  ward.TokenID

	resolved map[parsetree.Span]int
}

// NewSession creates a Session with builtins already loaded into its
// global scope.
func NewSession(w *ward.Ward, rules *parser.Rules, out io.Writer) *Session {
	pool := object.NewPool()
	s := &Session{
		ID:     uuid.New(),
		Ward:   w,
		Rules:  rules,
		Pool:   pool,
		Cactus: scope.NewCactus(pool),
		Out:    out,
		tiThis: w.Intern("this"),
		tiInit: w.Intern("init"),
	}
	s.globals = s.Cactus.Root()
	s.loadBuiltins()
	Logger.Printf("session %s opened", s.ID)
	return s
}

// Close releases the session's root scope handle. Safe to call once.
func (s *Session) Close() {
	s.globals.Release()
	Logger.Printf("session %s closed", s.ID)
}

// Interpret runs an entire parsed program: tree's root span's children
// are declarations or statements, executed in order against the
// global scope — the Go twin of execution_t::go dispatching on
// ni_lox.
func (s *Session) Interpret(tree *parsetree.Tree) (err error) {
	defer loxerr.Recover(&err)
	root := tree.Root()
	cur := s.globals
	for _, child := range root.Children() {
		_, _ = s.execNode(child, cur)
	}
	return nil
}

// control is the Normal/Returning executor state: hasReturn
// distinguishes falling off the end of a block from an explicit
// `return`, mirroring silva's return_t<object_ref_t> optional.
type control struct {
	value     object.Ref
	hasReturn bool
}

func noControl() control { return control{} }

func returning(v object.Ref) control { return control{value: v, hasReturn: true} }

// severityError pins the loxerr.Severity a plain error returned from
// Eval should be reported at, overriding evalChecked's Major default.
// Only the handful of call sites spec §7 puts in the Minor bucket
// (undefined name, arity mismatch) construct one via minorf.
type severityError struct {
	sev loxerr.Severity
	err error
}

func (e *severityError) Error() string { return e.err.Error() }
func (e *severityError) Unwrap() error { return e.err }

// minorf builds a Minor-severity error, per spec §7's "recoverable
// syntactic/lookup issues (undefined name... arity mismatch...)" bucket.
func minorf(format string, args ...any) error {
	return &severityError{sev: loxerr.Minor, err: fmt.Errorf(format, args...)}
}

// execNode executes one Decl or Stmt node (or the Lox root, for
// nested use), returning the current scope handle (declarations may
// extend it, per scope.define's value-semantics in the original) and
// whether a `return` propagated out of it.
func (s *Session) execNode(n parsetree.Span, cur scope.Handle) (scope.Handle, control) {
	rules := s.Rules
	switch n.Node().RuleName {
	case rules.DeclVar:
		return s.execDeclVar(n, cur), noControl()
	case rules.DeclFun:
		return s.execDeclFun(n, cur), noControl()
	case rules.DeclClass:
		return s.execDeclClass(n, cur), noControl()
	case rules.StmtPrint:
		s.execPrint(n, cur)
		return cur, noControl()
	case rules.StmtIf:
		return s.execIf(n, cur)
	case rules.StmtFor:
		return s.execFor(n, cur)
	case rules.StmtWhile:
		return s.execWhile(n, cur)
	case rules.StmtReturn:
		return cur, s.execReturn(n, cur)
	case rules.StmtBlock:
		return cur, s.execBlock(n, cur)
	case rules.StmtExprStmt:
		s.evalChecked(n.Child(0), cur)
		return cur, noControl()
	default:
		s.fail(n, loxerr.Major, "unknown statement/declaration rule %q", n.RuleName(s.Ward))
		panic("unreachable")
	}
}

func (s *Session) fail(n parsetree.Span, sev loxerr.Severity, format string, args ...any) {
	loxerr.Raise(sev, n.Tree.Tokenization, n.Node().TokenBegin, format, args...)
}

func (s *Session) varName(n parsetree.Span, offset int) ward.TokenID {
	return n.Tree.Tokenization.Tokens[n.Node().TokenBegin+offset].ID
}

func (s *Session) execDeclVar(n parsetree.Span, cur scope.Handle) scope.Handle {
	name := s.varName(n, 1) // token 0 is 'var', token 1 is the identifier
	init := object.Ref(0)
	if n.Node().NumChildren == 1 {
		init = s.evalChecked(n.Child(0), cur)
	} else {
		init = s.Pool.Make(object.None{})
	}
	s.Pool.Retain(init)
	cur.Define(name, init)
	return cur
}

func (s *Session) execDeclFun(n parsetree.Span, cur scope.Handle) scope.Handle {
	fnSpan := n.Child(0) // Function node
	name := fnSpan.TokenID()
	placeholder := s.Pool.Make(object.None{})
	cur.Define(name, placeholder)
	fn := s.makeFunction(fnSpan, cur)
	ref := s.Pool.Make(fn)
	cur.Assign(name, ref)
	s.Pool.Release(placeholder)
	return cur
}

// makeFunction builds a *object.Function closing over cur (retained),
// matching function_t{func_pts, scope} in execution_t::decl.
func (s *Session) makeFunction(fnSpan parsetree.Span, cur scope.Handle) *object.Function {
	return &object.Function{
		Name:        fnSpan.Node().RuleName,
		DisplayName: s.Ward.Text(fnSpan.TokenID()),
		Params:      fnSpan.Child(0),
		Body:        fnSpan.Child(1),
		Closure:     cur.Retain().AsClosure(),
	}
}

func (s *Session) execDeclClass(n parsetree.Span, cur scope.Handle) scope.Handle {
	className := s.varName(n, 1)
	placeholder := s.Pool.Make(object.None{})
	cur.Define(className, placeholder)

	children := n.Children()
	superSpan := children[0] // always present: the Super node, possibly empty
	var super *object.Class
	if superSpan.Node().TokenLength > 0 {
		superName := superSpan.TokenID()
		superRef, ok := cur.Get(superName)
		if !ok {
			s.fail(n, loxerr.Minor, "superclass %q is not defined", s.Ward.Text(superName))
		}
		sc, ok := s.Pool.Get(superRef).(*object.Class)
		if !ok {
			s.fail(n, loxerr.Minor, "superclass %q is not a class", s.Ward.Text(superName))
		}
		super = sc
	}

	class := &object.Class{
		Name:       s.Ward.Text(className),
		Methods:    make(map[ward.TokenID]*object.Function),
		Superclass: super,
	}
	for _, methodSpan := range children[1:] {
		methodName := methodSpan.TokenID()
		class.Methods[methodName] = s.makeFunction(methodSpan, cur)
	}

	ref := s.Pool.Make(class)
	cur.Assign(className, ref)
	s.Pool.Release(placeholder)
	return cur
}

func (s *Session) execPrint(n parsetree.Span, cur scope.Handle) {
	v := s.evalChecked(n.Child(0), cur)
	fmt.Fprintln(s.Out, s.Pool.Get(v).String())
}

func (s *Session) execIf(n parsetree.Span, cur scope.Handle) (scope.Handle, control) {
	children := n.Children()
	cond := s.evalChecked(children[0], cur)
	if s.Pool.Get(cond).Truthy() {
		_, c := s.execNode(children[1], cur)
		return cur, c
	}
	if len(children) == 3 {
		_, c := s.execNode(children[2], cur)
		return cur, c
	}
	return cur, noControl()
}

// isOmittedSlot reports whether span is the zero-length ExprAtom
// placeholder the parser's none() helper emits for an omitted
// for-clause or superclass slot, as opposed to a real (possibly
// zero-TokenLength, e.g. DeclVar/StmtExprStmt) node.
func (s *Session) isOmittedSlot(span parsetree.Span) bool {
	node := span.Node()
	return node.RuleName == s.Rules.ExprAtom && node.TokenLength == 0 && node.NumChildren == 0
}

func (s *Session) execFor(n parsetree.Span, cur scope.Handle) (scope.Handle, control) {
	children := n.Children()
	initSpan, condSpan, incSpan, bodySpan := children[0], children[1], children[2], children[3]

	loopScope := cur
	if !s.isOmittedSlot(initSpan) {
		loopScope, _ = s.execNode(initSpan, cur)
	}
	for {
		if !s.isOmittedSlot(condSpan) {
			cond := s.evalChecked(condSpan, loopScope)
			if !s.Pool.Get(cond).Truthy() {
				break
			}
		}
		_, c := s.execNode(bodySpan, loopScope)
		if c.hasReturn {
			return cur, c
		}
		if !s.isOmittedSlot(incSpan) {
			s.evalChecked(incSpan, loopScope)
		}
	}
	return cur, noControl()
}

func (s *Session) execWhile(n parsetree.Span, cur scope.Handle) (scope.Handle, control) {
	children := n.Children()
	condSpan, bodySpan := children[0], children[1]
	for {
		cond := s.evalChecked(condSpan, cur)
		if !s.Pool.Get(cond).Truthy() {
			break
		}
		_, c := s.execNode(bodySpan, cur)
		if c.hasReturn {
			return cur, c
		}
	}
	return cur, noControl()
}

func (s *Session) execReturn(n parsetree.Span, cur scope.Handle) control {
	if n.Node().NumChildren == 0 {
		return returning(s.Pool.Make(object.None{}))
	}
	v := s.evalChecked(n.Child(0), cur)
	return returning(v)
}

func (s *Session) execBlock(n parsetree.Span, cur scope.Handle) control {
	inner := cur.MakeChild()
	defer inner.Release()
	return s.execStmts(n.Children(), inner)
}

// execStmts runs a statement list directly against cur, without opening
// a further child scope — used both by execBlock (whose caller already
// opened the block's own arm) and by callFunction (whose parameter
// frame IS the function body's outermost scope, per call_function in
// interpreter.cpp).
func (s *Session) execStmts(stmts []parsetree.Span, cur scope.Handle) control {
	for _, child := range stmts {
		var c control
		cur, c = s.execNode(child, cur)
		if c.hasReturn {
			return c
		}
	}
	return noControl()
}

// evalChecked evaluates an expression span and panics with a located
// *loxerr.Error if it errors, so callers in the exec* methods above
// (which mirror execution_t's unchecked SILVA_EXPECT_FWD style) don't
// need their own error plumbing. A plain error's severity defaults to
// Major, per spec §7's "runtime type errors, non-callable callee,
// member access on non-instance" bucket; the handful of sites that
// should instead land on Minor (undefined name, arity mismatch) tag
// themselves with minorf so that default can be overridden.
func (s *Session) evalChecked(n parsetree.Span, cur scope.Handle) object.Ref {
	v, err := s.Eval(n, cur)
	if err != nil {
		if le, ok := err.(*loxerr.Error); ok {
			panic(le)
		}
		sev := loxerr.Major
		if se, ok := err.(*severityError); ok {
			sev = se.sev
		}
		s.fail(n, sev, "%s", err)
	}
	return v
}
