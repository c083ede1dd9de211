package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/thomasrohde/itmoscript/pkg/ast"
	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
	"github.com/thomasrohde/itmoscript/pkg/evaluator"
	"github.com/thomasrohde/itmoscript/pkg/parser"
	"github.com/thomasrohde/itmoscript/pkg/runtime"
)

const (
	promptMain = "its> "
	promptCont = "...> "
	replFile   = "<repl>"
)

func cmdRepl(_ []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return exitUsage
	}
	fmt.Println("ITMOScript REPL. Type :help for commands, :quit to exit.")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if cfg.History != "" {
		if f, err := os.Open(cfg.History); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer saveHistory(ln, cfg.History)
	}

	sigc := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer func() {
		signal.Stop(sigc)
		close(done)
	}()
	go watchSignals(ln, sigc, done)

	sess := runtime.New(runtime.WithConfig(cfg), runtime.WithRunID("repl")).NewSession()

	for {
		code, prog, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if handleReplCommand(sess, trimmed) {
				return exitOK
			}
			continue
		}

		res, err := sess.Eval(context.Background(), code, replFile)
		if err != nil {
			for _, d := range runtime.Diagnostics(err) {
				fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostic(d, cfg.Pretty))
			}
			continue
		}
		if res != nil && shouldEcho(prog, res.Value) {
			fmt.Println(evaluator.Format(res.Value))
		}
	}
	return exitOK
}

// handleReplCommand runs a :command and reports whether the REPL should exit.
func handleReplCommand(sess *runtime.Session, line string) (exit bool) {
	switch strings.ToLower(line) {
	case ":quit", ":q", ":exit":
		return true
	case ":env":
		globals := sess.Globals()
		var names []string
		for _, name := range globals.Names() {
			if v, _ := globals.Get(name); !isBuiltin(v) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			v, _ := globals.Get(name)
			fmt.Printf("%s = %s\n", name, evaluator.Format(v))
		}
	case ":help":
		fmt.Println(":env   list global bindings")
		fmt.Println(":quit  leave the REPL")
	default:
		fmt.Println("unknown command. Type :help for a list.")
	}
	return false
}

func isBuiltin(v evaluator.Value) bool {
	_, ok := v.(evaluator.Builtin)
	return ok
}

// shouldEcho reports whether the snippet ended in a bare expression whose
// value is worth printing.
func shouldEcho(prog *ast.Program, v evaluator.Value) bool {
	if prog == nil || prog.Body == nil || len(prog.Body.Statements) == 0 {
		return false
	}
	if _, isNil := v.(evaluator.Nil); isNil || v == nil {
		return false
	}
	switch prog.Body.Statements[len(prog.Body.Statements)-1].(type) {
	case *ast.Assignment, *ast.PrintStmt, *ast.IfStmt, *ast.WhileStmt, *ast.ForStmt,
		*ast.ReturnStmt, *ast.BreakStmt, *ast.ContinueStmt:
		return false
	}
	return true
}

// readByParseProbe keeps reading lines while the accumulated input parses
// as incomplete, such as an open `if` block.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, *ast.Program, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", nil, false
		}
		if err != nil {
			// Ctrl-C drops the pending input.
			return "", nil, true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, nil, true
		}
		prog, diags := parser.Parse(src, replFile)
		if len(diags) == 0 {
			return src, prog, true
		}
		if parser.IsIncomplete(diags) {
			continue
		}
		// Hand the broken input to Eval so the error is reported.
		return src, nil, true
	}
}

// watchSignals restores the terminal and exits on a termination signal. It
// returns once done is closed.
func watchSignals(ln io.Closer, sigc <-chan os.Signal, done <-chan struct{}) {
	select {
	case <-sigc:
		ln.Close()
		os.Exit(130)
	case <-done:
	}
}

func saveHistory(ln *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	if f, err := os.Create(path); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
}
