package interp

import (
	"bytes"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/loxlang/lox/loxerr"
	"github.com/loxlang/lox/parser"
	"github.com/loxlang/lox/source"
	"github.com/loxlang/lox/token"
	"github.com/loxlang/lox/ward"
)

// run tokenizes, parses, and interprets src, returning everything it
// printed via `print`.
func run(t *testing.T, src string) string {
	t.Helper()
	w := ward.New()
	tz, err := token.Tokenize(source.New("t", src), w)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	rules := parser.NewRules(w)
	tree, err := parser.Parse(tz, w, rules)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	var out bytes.Buffer
	sess := NewSession(w, rules, &out)
	defer sess.Close()
	if err := sess.Interpret(tree); err != nil {
		t.Fatalf("Interpret(%q): %v", src, err)
	}
	return out.String()
}

// TestEndToEndScenarios runs the six literal input/output pairs given
// as the spec's end-to-end scenarios.
func TestEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"arithmetic",
			`print 1 + 2;`,
			"3\n",
		},
		{
			"string concat",
			`var a = "hi"; var b = " there"; print a + b;`,
			"hi there\n",
		},
		{
			"recursive fibonacci",
			`fun fib(n){ if (n<2) return n; return fib(n-1)+fib(n-2);} print fib(10);`,
			"55\n",
		},
		{
			"closure mutable capture",
			`fun make(){var c=0; fun inc(){c=c+1; return c;} return inc;} var f=make(); print f(); print f(); print f();`,
			"1\n2\n3\n",
		},
		{
			"inherited method",
			`class A{ greet(){ print "hi";}} class B < A {} B().greet();`,
			"hi\n",
		},
		{
			"bound method with init",
			`class Counter{ init(){this.n=0;} bump(){this.n=this.n+1; return this.n;}} var c=Counter(); print c.bump(); print c.bump();`,
			"1\n2\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := run(t, test.src)
			if got != test.want {
				t.Errorf("output mismatch for %q:\n%s", test.src, diff.LineDiff(test.want, got))
			}
		})
	}
}

func TestWhileLoop(t *testing.T) {
	got := run(t, `var i = 0; while (i < 3) { print i; i = i + 1; }`)
	want := "0\n1\n2\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestForLoopWithRealCompoundCondition guards against a case where a
// real comparison condition (TokenLength==0, same as the omitted-slot
// placeholder) could be mistaken for "condition omitted" and the loop
// never terminates.
func TestForLoopWithRealCompoundCondition(t *testing.T) {
	got := run(t, `for (var i = 0; i < 3; i = i + 1) { print i; }`)
	want := "0\n1\n2\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestForLoopWithOmittedClauses(t *testing.T) {
	got := run(t, `var i = 0; for (;;) { if (i >= 3) return; print i; i = i + 1; }`)
	want := "0\n1\n2\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLogicalShortCircuit(t *testing.T) {
	got := run(t, `fun boom(){ print "called"; return true; } print false and boom(); print true or boom();`)
	want := "false\ntrue\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFieldAssignment(t *testing.T) {
	got := run(t, `class P{} var p = P(); p.x = 10; p.x = p.x + 5; print p.x;`)
	want := "15\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUndefinedVariableErrors(t *testing.T) {
	w := ward.New()
	tz, err := token.Tokenize(source.New("t", "print nope;"), w)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	rules := parser.NewRules(w)
	tree, err := parser.Parse(tz, w, rules)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var out bytes.Buffer
	sess := NewSession(w, rules, &out)
	defer sess.Close()
	if err := sess.Interpret(tree); err == nil {
		t.Fatal("expected an error referencing an undefined variable")
	}
}

// severityOf interprets src expecting it to fail, and returns the
// loxerr.Severity Interpret reported.
func severityOf(t *testing.T, src string) loxerr.Severity {
	t.Helper()
	w := ward.New()
	tz, err := token.Tokenize(source.New("t", src), w)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	rules := parser.NewRules(w)
	tree, err := parser.Parse(tz, w, rules)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	var out bytes.Buffer
	sess := NewSession(w, rules, &out)
	defer sess.Close()
	err = sess.Interpret(tree)
	if err == nil {
		t.Fatalf("Interpret(%q): expected an error, got none", src)
	}
	le, ok := err.(*loxerr.Error)
	if !ok {
		t.Fatalf("Interpret(%q) error type = %T, want *loxerr.Error", src, err)
	}
	return le.Severity
}

// TestErrorSeverityClassification checks the spec's severity taxonomy
// is actually wired through Eval -> evalChecked: undefined-name and
// arity-mismatch failures land on Minor, while runtime type errors and
// non-callable-callee failures land on Major.
func TestErrorSeverityClassification(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want loxerr.Severity
	}{
		{"undefined variable", `print nope;`, loxerr.Minor},
		{"arity mismatch", `fun f(a, b) { return a + b; } f(1);`, loxerr.Minor},
		{"wrong operand types", `print 1 + "x";`, loxerr.Major},
		{"non-callable callee", `var n = 1; n();`, loxerr.Major},
		{"member access on non-instance", `var n = 1; print n.x;`, loxerr.Major},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := severityOf(t, test.src); got != test.want {
				t.Errorf("severity for %q = %v, want %v", test.src, got, test.want)
			}
		})
	}
}
