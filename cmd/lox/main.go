// Command lox runs one or more Lox source files. Its argument handling
// follows ccuetoh-maqui-lang/cmd/main.go's plain os.Args style, widened
// to stdlib flag for the -batch switch; -batch runs every file as its
// own Session concurrently via errgroup.Group, never sharing a pool or
// cactus between goroutines.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/loxlang/lox/interp"
	"github.com/loxlang/lox/loxerr"
	"github.com/loxlang/lox/parser"
	"github.com/loxlang/lox/source"
	"github.com/loxlang/lox/token"
	"github.com/loxlang/lox/ward"
)

func main() {
	batch := flag.Bool("batch", false, "run multiple files concurrently, one Session each")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: lox [-batch] file.lox [file2.lox ...]")
		os.Exit(64)
	}

	var err error
	if *batch && len(paths) > 1 {
		err = runBatch(paths)
	} else {
		for _, p := range paths {
			if e := runFile(p); e != nil {
				err = e
			}
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

func runBatch(paths []string) error {
	var g errgroup.Group
	for _, p := range paths {
		p := p
		g.Go(func() error { return runFile(p) })
	}
	return g.Wait()
}

func runFile(path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return err
	}

	w := ward.New()
	src := source.New(path, string(text))
	tz, err := token.Tokenize(src, w)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return err
	}

	rules := parser.NewRules(w)
	tree, err := parser.Parse(tz, w, rules)
	if err != nil {
		reportErr(path, err)
		return err
	}

	sess := interp.NewSession(w, rules, os.Stdout)
	defer sess.Close()
	if err := sess.Interpret(tree); err != nil {
		reportErr(path, err)
		return err
	}
	return nil
}

func reportErr(path string, err error) {
	le, ok := err.(*loxerr.Error)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return
	}
	if line, col, ok := le.Location(); ok {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s: %s\n", path, line+1, col+1, le.Severity, le.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %s: %s\n", path, le.Severity, le.Message)
}
