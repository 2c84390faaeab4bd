package parser

import (
	"testing"

	"github.com/loxlang/lox/parsetree"
	"github.com/loxlang/lox/source"
	"github.com/loxlang/lox/token"
	"github.com/loxlang/lox/ward"
)

func parseExpr(t *testing.T, src string) (parsetree.Span, *Rules, *ward.Ward) {
	t.Helper()
	w := ward.New()
	tz, err := token.Tokenize(source.New("t", src), w)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	rules := NewRules(w)
	tree, err := Parse(tz, w, rules)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	root := tree.Root()
	// root is Lox -> one ExprStmt -> its one Expr child
	stmt := root.Child(0)
	return stmt.Child(0), rules, w
}

func TestPrecedenceMulBeforeAdd(t *testing.T) {
	expr, rules, _ := parseExpr(t, "1+2*3;")
	if expr.Node().RuleName != rules.ExprAdd {
		t.Fatalf("root rule = %d, want ExprAdd", expr.Node().RuleName)
	}
	children := expr.Children()
	if children[1].Node().RuleName != rules.ExprMul {
		t.Errorf("right child rule = %d, want ExprMul (1+(2*3))", children[1].Node().RuleName)
	}
}

func TestLeftAssociativeSubtraction(t *testing.T) {
	expr, rules, _ := parseExpr(t, "1-2-3;")
	if expr.Node().RuleName != rules.ExprSub {
		t.Fatalf("root rule = %d, want ExprSub", expr.Node().RuleName)
	}
	children := expr.Children()
	if children[0].Node().RuleName != rules.ExprSub {
		t.Errorf("left child rule = %d, want ExprSub: (1-2)-3 expected, got right-deep tree", children[0].Node().RuleName)
	}
}

func TestBangEqualProducesNeq(t *testing.T) {
	expr, rules, _ := parseExpr(t, "1!=2;")
	if expr.Node().RuleName != rules.ExprNeq {
		t.Fatalf("root rule = %d, want ExprNeq (from the two-token '!' '=' sequence)", expr.Node().RuleName)
	}
}

func TestDoubleEqualProducesEq(t *testing.T) {
	expr, rules, _ := parseExpr(t, "1==2;")
	if expr.Node().RuleName != rules.ExprEq {
		t.Fatalf("root rule = %d, want ExprEq", expr.Node().RuleName)
	}
}

func TestUnaryNotVsNeg(t *testing.T) {
	expr, rules, _ := parseExpr(t, "!true;")
	if expr.Node().RuleName != rules.ExprNot {
		t.Errorf("'!' root rule = %d, want ExprNot", expr.Node().RuleName)
	}
	expr2, rules2, _ := parseExpr(t, "-1;")
	if expr2.Node().RuleName != rules2.ExprNeg {
		t.Errorf("'-' root rule = %d, want ExprNeg", expr2.Node().RuleName)
	}
}

func TestCallVsGetDistinctRules(t *testing.T) {
	expr, rules, _ := parseExpr(t, "f();")
	if expr.Node().RuleName != rules.ExprCall {
		t.Fatalf("f() root rule = %d, want ExprCall", expr.Node().RuleName)
	}

	expr2, rules2, _ := parseExpr(t, "o.field;")
	if expr2.Node().RuleName != rules2.ExprGet {
		t.Fatalf("o.field root rule = %d, want ExprGet", expr2.Node().RuleName)
	}
}

func TestGetThenCallChain(t *testing.T) {
	expr, rules, _ := parseExpr(t, "o.method();")
	if expr.Node().RuleName != rules.ExprCall {
		t.Fatalf("o.method() root rule = %d, want ExprCall", expr.Node().RuleName)
	}
	callee := expr.Child(0)
	if callee.Node().RuleName != rules.ExprGet {
		t.Errorf("callee rule = %d, want ExprGet (o.method before the call)", callee.Node().RuleName)
	}
}

func TestRightAssociativeAssign(t *testing.T) {
	expr, rules, _ := parseExpr(t, "a=b=1;")
	if expr.Node().RuleName != rules.ExprAssign {
		t.Fatalf("root rule = %d, want ExprAssign", expr.Node().RuleName)
	}
	rhs := expr.Child(1)
	if rhs.Node().RuleName != rules.ExprAssign {
		t.Errorf("rhs rule = %d, want ExprAssign (a=(b=1))", rhs.Node().RuleName)
	}
}

func TestClassDeclAlwaysEmitsSuperSlot(t *testing.T) {
	w := ward.New()
	tz, err := token.Tokenize(source.New("t", "class A {} class B < A {}"), w)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	rules := NewRules(w)
	tree, err := Parse(tz, w, rules)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root()
	declA := root.Child(0)
	declB := root.Child(1)

	superA := declA.Child(0)
	if superA.Node().TokenLength != 0 {
		t.Errorf("class A's super slot should be an empty placeholder, got TokenLength=%d", superA.Node().TokenLength)
	}
	superB := declB.Child(0)
	if superB.Node().TokenLength != 1 {
		t.Errorf("class B's super slot should be a 1-token Atom, got TokenLength=%d", superB.Node().TokenLength)
	}
}

func TestForLoopOmittedClausesAreEmptyPlaceholders(t *testing.T) {
	w := ward.New()
	tz, err := token.Tokenize(source.New("t", "for(;;){}"), w)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	rules := NewRules(w)
	tree, err := Parse(tz, w, rules)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	forNode := tree.Root().Child(0)
	children := forNode.Children()
	if len(children) != 4 {
		t.Fatalf("for-stmt has %d children, want 4 (init, cond, incr, body)", len(children))
	}
	for i, name := range []string{"init", "cond", "incr"} {
		if children[i].Node().TokenLength != 0 || children[i].Node().NumChildren != 0 {
			t.Errorf("%s slot is not an empty placeholder: %+v", name, children[i].Node())
		}
	}
}

func FuzzParse(f *testing.F) {
	f.Add(`print 1 + 2;`)
	f.Add(`class A{ greet(){ print "hi"; } } A().greet();`)
	f.Add(`fun f(a,b){ return a+b; } print f(1,2);`)
	f.Fuzz(func(t *testing.T, src string) {
		w := ward.New()
		tz, err := token.Tokenize(source.New("fuzz", src), w)
		if err != nil {
			return
		}
		rules := NewRules(w)
		_, _ = Parse(tz, w, rules)
	})
}
