// Eval and the builtin registry: the expression half of the
// tree-walking interpreter, ported from evaluation_t's expr() dispatch
// in original_source/cpp/zoo/lox/interpreter.cpp, and
// interpreter_t::load_builtins for the native function table.
package interp

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/loxlang/lox/loxerr"
	"github.com/loxlang/lox/object"
	"github.com/loxlang/lox/parsetree"
	"github.com/loxlang/lox/scope"
	"github.com/loxlang/lox/token"
	"github.com/loxlang/lox/ward"
)

// Eval evaluates one Expr span against cur, returning a pool Ref to the
// result. Errors returned here are plain errors, not located
// *loxerr.Errors — evalChecked (interp.go) attaches a token location
// once at the statement boundary, the same way evaluation_t::expr lets
// SILVA_EXPECT_FWD propagate up to a single catch point.
func (s *Session) Eval(n parsetree.Span, cur scope.Handle) (object.Ref, error) {
	rules := s.Rules
	switch n.Node().RuleName {
	case rules.ExprAtom:
		return s.evalAtom(n, cur)
	case rules.ExprPrimary:
		return s.Eval(n.Child(0), cur)
	case rules.ExprNeg:
		return s.evalUnary(n, cur, object.Neg)
	case rules.ExprNot:
		return s.evalUnaryPure(n, cur, object.Not)
	case rules.ExprMul:
		return s.evalBinary(n, cur, object.Mul)
	case rules.ExprDiv:
		return s.evalBinary(n, cur, object.Div)
	case rules.ExprAdd:
		return s.evalBinary(n, cur, object.Add)
	case rules.ExprSub:
		return s.evalBinary(n, cur, object.Sub)
	case rules.ExprLt:
		return s.evalBinary(n, cur, object.Lt)
	case rules.ExprGt:
		return s.evalBinary(n, cur, object.Gt)
	case rules.ExprLte:
		return s.evalBinary(n, cur, object.Lte)
	case rules.ExprGte:
		return s.evalBinary(n, cur, object.Gte)
	case rules.ExprEq:
		return s.evalBinaryPure(n, cur, object.Eq)
	case rules.ExprNeq:
		return s.evalBinaryPure(n, cur, object.Neq)
	case rules.ExprAnd:
		return s.evalAnd(n, cur)
	case rules.ExprOr:
		return s.evalOr(n, cur)
	case rules.ExprAssign:
		return s.evalAssign(n, cur)
	case rules.ExprCall:
		return s.evalCall(n, cur)
	case rules.ExprGet:
		return s.evalGet(n, cur)
	default:
		s.fail(n, loxerr.Major, "unknown expression rule %q", n.RuleName(s.Ward))
		panic("unreachable")
	}
}

func (s *Session) evalAtom(n parsetree.Span, cur scope.Handle) (object.Ref, error) {
	if n.Node().TokenLength == 0 {
		// the for-clause/superclass omitted-slot placeholder; reachable
		// only from statement execution paths that check TokenLength
		// themselves first, never actually evaluated in practice.
		return s.Pool.Make(object.None{}), nil
	}
	switch n.Text() {
	case "true":
		return s.Pool.Make(object.Bool(true)), nil
	case "false":
		return s.Pool.Make(object.Bool(false)), nil
	case "none":
		return s.Pool.Make(object.None{}), nil
	case "this":
		return s.lookupVar(cur, s.tiThis)
	}
	switch n.Category() {
	case token.Number:
		raw := token.DecodeNumber(n.Text())
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number literal %q: %w", n.Text(), err)
		}
		return s.Pool.Make(object.Number(f)), nil
	case token.String:
		return s.Pool.Make(object.Str(token.Decode(n.Text()))), nil
	default: // identifier
		return s.lookupVar(cur, n.TokenID())
	}
}

func (s *Session) lookupVar(cur scope.Handle, id ward.TokenID) (object.Ref, error) {
	if v, ok := cur.Get(id); ok {
		return v, nil
	}
	return 0, minorf("undefined variable %q", s.Ward.Text(id))
}

func (s *Session) evalUnary(n parsetree.Span, cur scope.Handle, op func(object.Value) (object.Value, error)) (object.Ref, error) {
	v, err := s.Eval(n.Child(0), cur)
	if err != nil {
		return 0, err
	}
	res, err := op(s.Pool.Get(v))
	if err != nil {
		return 0, err
	}
	return s.Pool.Make(res), nil
}

func (s *Session) evalUnaryPure(n parsetree.Span, cur scope.Handle, op func(object.Value) object.Value) (object.Ref, error) {
	v, err := s.Eval(n.Child(0), cur)
	if err != nil {
		return 0, err
	}
	return s.Pool.Make(op(s.Pool.Get(v))), nil
}

func (s *Session) evalBinary(n parsetree.Span, cur scope.Handle, op func(a, b object.Value) (object.Value, error)) (object.Ref, error) {
	children := n.Children()
	l, err := s.Eval(children[0], cur)
	if err != nil {
		return 0, err
	}
	r, err := s.Eval(children[1], cur)
	if err != nil {
		return 0, err
	}
	res, err := op(s.Pool.Get(l), s.Pool.Get(r))
	if err != nil {
		return 0, err
	}
	return s.Pool.Make(res), nil
}

func (s *Session) evalBinaryPure(n parsetree.Span, cur scope.Handle, op func(a, b object.Value) object.Value) (object.Ref, error) {
	children := n.Children()
	l, err := s.Eval(children[0], cur)
	if err != nil {
		return 0, err
	}
	r, err := s.Eval(children[1], cur)
	if err != nil {
		return 0, err
	}
	return s.Pool.Make(op(s.Pool.Get(l), s.Pool.Get(r))), nil
}

// evalAnd and evalOr short-circuit: the right operand is only evaluated
// once the left one fails to decide the result, per expr()'s
// ni_expr_b_and/ni_expr_b_or case in interpreter.cpp.
func (s *Session) evalAnd(n parsetree.Span, cur scope.Handle) (object.Ref, error) {
	children := n.Children()
	l, err := s.Eval(children[0], cur)
	if err != nil {
		return 0, err
	}
	if !s.Pool.Get(l).Truthy() {
		return l, nil
	}
	return s.Eval(children[1], cur)
}

func (s *Session) evalOr(n parsetree.Span, cur scope.Handle) (object.Ref, error) {
	children := n.Children()
	l, err := s.Eval(children[0], cur)
	if err != nil {
		return 0, err
	}
	if s.Pool.Get(l).Truthy() {
		return l, nil
	}
	return s.Eval(children[1], cur)
}

// evalAssign handles both targets an lvalue can be: a bare identifier
// (resolved up the cactus via Assign) or a member-access expression
// (resolved by writing the instance's Fields map directly), matching
// expr()'s ni_expr_assign case which dispatches on whether its left
// child is itself an ni_expr_get.
func (s *Session) evalAssign(n parsetree.Span, cur scope.Handle) (object.Ref, error) {
	children := n.Children()
	target, valueSpan := children[0], children[1]
	val, err := s.Eval(valueSpan, cur)
	if err != nil {
		return 0, err
	}

	switch target.Node().RuleName {
	case s.Rules.ExprAtom:
		id := target.TokenID()
		old, hadOld := cur.Get(id)
		s.Pool.Retain(val)
		if !cur.Assign(id, val) {
			return 0, minorf("undefined variable %q", s.Ward.Text(id))
		}
		if hadOld {
			s.Pool.Release(old)
		}
		return val, nil

	case s.Rules.ExprGet:
		objSpan, fieldSpan := target.Child(0), target.Child(1)
		objRef, err := s.Eval(objSpan, cur)
		if err != nil {
			return 0, err
		}
		inst, ok := s.Pool.Get(objRef).(*object.Instance)
		if !ok {
			return 0, fmt.Errorf("only class instances have settable fields, not %s", s.Pool.Get(objRef))
		}
		field := fieldSpan.TokenID()
		old, hadOld := inst.Fields[field]
		s.Pool.Retain(val)
		inst.Fields[field] = val
		if hadOld {
			s.Pool.Release(old)
		}
		return val, nil

	default:
		return 0, fmt.Errorf("invalid assignment target")
	}
}

// evalGet reads a field or bound method off an instance.
func (s *Session) evalGet(n parsetree.Span, cur scope.Handle) (object.Ref, error) {
	children := n.Children()
	objRef, err := s.Eval(children[0], cur)
	if err != nil {
		return 0, err
	}
	field := children[1].TokenID()
	return object.MemberGet(s.Pool, objRef, field, s.tiThis)
}

// evalCall evaluates the callee and arguments and dispatches on the
// callee's runtime type: a user function, a builtin, or a class
// (instantiation), matching expr()'s ni_expr_call case.
func (s *Session) evalCall(n parsetree.Span, cur scope.Handle) (object.Ref, error) {
	children := n.Children()
	calleeRef, err := s.Eval(children[0], cur)
	if err != nil {
		return 0, err
	}
	args := make([]object.Ref, 0, len(children)-1)
	for _, argSpan := range children[1:] {
		v, err := s.Eval(argSpan, cur)
		if err != nil {
			return 0, err
		}
		args = append(args, v)
	}

	switch callee := s.Pool.Get(calleeRef).(type) {
	case *object.Function:
		return s.callFunction(callee, args)
	case *object.Builtin:
		return callee.Fn(s.Pool, args)
	case *object.Class:
		return s.instantiate(callee, args)
	default:
		return 0, fmt.Errorf("can only call functions and classes, not %s", callee)
	}
}

// closureUnwrapper lets callFunction recover the concrete scope.Handle
// backing a *object.Function's closure: object.ClosureHandle is kept as
// an interface precisely so object needn't import scope, but execNode's
// own signature needs the concrete type back, so scope.adapter exposes
// Unwrap and this package asserts to it structurally.
type closureUnwrapper interface {
	Unwrap() scope.Handle
}

func (s *Session) toScopeHandle(ch object.ClosureHandle) scope.Handle {
	u, ok := ch.(closureUnwrapper)
	if !ok {
		panic("closure handle not backed by a scope.Handle")
	}
	return u.Unwrap()
}

// callFunction implements call_function: a fresh child arm of the
// closure, parameters bound by position, the body executed directly in
// that frame (no further nested block scope — the parameter frame IS
// the body's outermost scope), and the call's result is the returned
// value or none if control fell off the end.
func (s *Session) callFunction(fn *object.Function, args []object.Ref) (object.Ref, error) {
	if len(args) != fn.Arity() {
		return 0, minorf("%s: expected %d arguments but got %d", fn.DisplayName, fn.Arity(), len(args))
	}
	frame := s.toScopeHandle(fn.Closure.MakeChild())
	defer frame.Release()
	for i, param := range fn.Params.Children() {
		s.Pool.Retain(args[i])
		frame.Define(param.TokenID(), args[i])
	}
	c := s.execStmts(fn.Body.Children(), frame)
	if c.hasReturn {
		return c.value, nil
	}
	return s.Pool.Make(object.None{}), nil
}

// instantiate implements class instantiation: build the instance, then
// look up and call init() (if the class or any ancestor declares one),
// discarding its return value and returning the instance itself — per
// expr()'s ni_expr_call dispatch when the callee is a class_t.
func (s *Session) instantiate(class *object.Class, args []object.Ref) (object.Ref, error) {
	inst := &object.Instance{Class: class, Fields: make(map[ward.TokenID]object.Ref)}
	ref := s.Pool.Make(inst)

	initRef, err := object.MemberBind(s.Pool, ref, class, s.tiInit, s.tiThis)
	if err == nil {
		initFn, ok := s.Pool.Get(initRef).(*object.Function)
		if !ok {
			return 0, fmt.Errorf("%s.init is not callable", class.Name)
		}
		if _, err := s.callFunction(initFn, args); err != nil {
			return 0, err
		}
	}
	return ref, nil
}

// loadBuiltins registers the native function table every Session starts
// with: clock, getc, chr, exit, print_error, ported from
// interpreter_t::load_builtins.
func (s *Session) loadBuiltins() {
	register := func(name string, fn func(p *object.Pool, args []object.Ref) (object.Ref, error)) {
		id := s.Ward.Intern(name)
		ref := s.Pool.Make(&object.Builtin{Name: name, Fn: fn})
		s.globals.Define(id, ref)
	}

	register("clock", func(p *object.Pool, args []object.Ref) (object.Ref, error) {
		return p.Make(object.Number(float64(time.Now().UnixNano()) / 1e9)), nil
	})

	stdin := bufio.NewReader(os.Stdin)
	register("getc", func(p *object.Pool, args []object.Ref) (object.Ref, error) {
		b, err := stdin.ReadByte()
		if err != nil {
			return p.Make(object.Number(-1)), nil
		}
		return p.Make(object.Number(float64(b))), nil
	})

	register("chr", func(p *object.Pool, args []object.Ref) (object.Ref, error) {
		if len(args) != 1 {
			return 0, minorf("chr: expected 1 argument but got %d", len(args))
		}
		n, ok := p.Get(args[0]).(object.Number)
		if !ok {
			return 0, fmt.Errorf("chr: expected a number argument")
		}
		if n < 0 || n > 255 || n != object.Number(int(n)) {
			return 0, fmt.Errorf("chr: argument must be an integer in 0..255, got %s", n)
		}
		return p.Make(object.Str(string([]byte{byte(n)}))), nil
	})

	register("exit", func(p *object.Pool, args []object.Ref) (object.Ref, error) {
		code := 0
		if len(args) == 1 {
			if n, ok := p.Get(args[0]).(object.Number); ok {
				code = int(n)
			}
		}
		os.Exit(code)
		return 0, nil
	})

	register("print_error", func(p *object.Pool, args []object.Ref) (object.Ref, error) {
		if len(args) != 1 {
			return 0, minorf("print_error: expected 1 argument but got %d", len(args))
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", p.Get(args[0]).String())
		return p.Make(object.None{}), nil
	})
}
