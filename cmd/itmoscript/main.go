// Command itmoscript is the ITMOScript CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/thomasrohde/itmoscript/pkg/config"
	"github.com/thomasrohde/itmoscript/pkg/diagnostics"
	"github.com/thomasrohde/itmoscript/pkg/evaluator"
	"github.com/thomasrohde/itmoscript/pkg/formatter"
	"github.com/thomasrohde/itmoscript/pkg/help"
	"github.com/thomasrohde/itmoscript/pkg/runtime"
	"github.com/thomasrohde/itmoscript/pkg/stdlib"
)

// Exit codes.
const (
	exitOK      = 0
	exitUsage   = 1
	exitDiag    = 2
	exitBudget  = 3
	exitRuntime = 4
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: itmoscript <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, repl, trace, config, help")
		os.Exit(exitUsage)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "trace":
		os.Exit(cmdTrace(os.Args[2:]))
	case "config":
		os.Exit(cmdConfig(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(exitUsage)
	}
}

// loadConfig reads settings relative to the working directory. A broken
// config file is reported as E_CONFIG.
func loadConfig() (*config.Config, bool) {
	cwd, _ := os.Getwd()
	cfg, err := config.Load(cwd)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostic(diag, true))
		return nil, false
	}
	return cfg, true
}

func cmdRun(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return exitUsage
	}

	var file string
	pretty := cfg.Pretty
	jsonResult := false
	traceEnabled := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--json":
			pretty = false
			jsonResult = true
		case "--trace":
			traceEnabled = true
		case "--seed", "--max-iterations", "--max-depth", "--timeout-ms":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "missing value for %s\n", args[i])
				return exitUsage
			}
			n, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil || n < 0 {
				fmt.Fprintf(os.Stderr, "invalid value for %s: %s\n", args[i], args[i+1])
				return exitUsage
			}
			applyNumericFlag(cfg, args[i], n)
			i++
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: itmoscript run <file> [--pretty] [--json] [--trace] [--seed N]")
		fmt.Fprintln(os.Stderr, "                             [--max-iterations N] [--max-depth N] [--timeout-ms N]")
		return exitUsage
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	opts := []runtime.Option{runtime.WithConfig(cfg)}
	if file == "-" {
		// The program came from stdin, so read() sees end of input.
		opts = append(opts, runtime.WithIO(strings.NewReader(""), nil))
	}
	if traceEnabled {
		opts = append(opts, runtime.WithTrace(ndjsonTrace(os.Stderr)))
	}
	rt := runtime.New(opts...)

	result, execErr := rt.Run(context.Background(), source, filename)
	if execErr != nil {
		diags := runtime.Diagnostics(execErr)
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		var diagErr *runtime.DiagnosticError
		if errors.As(execErr, &diagErr) {
			return exitDiag
		}
		return exitCodeForDiag(diags[0].Code)
	}

	if jsonResult && result != nil && result.Value != nil {
		jsonBytes, err := evaluator.ValueToJSON(result.Value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error serializing result: %s\n", err)
			return exitRuntime
		}
		fmt.Println(string(jsonBytes))
	}
	return exitOK
}

func applyNumericFlag(cfg *config.Config, flag string, n int64) {
	switch flag {
	case "--seed":
		cfg.Seed = n
	case "--max-iterations":
		cfg.Budget.MaxIterations = n
	case "--max-depth":
		cfg.Budget.MaxCallDepth = int(n)
	case "--timeout-ms":
		cfg.Budget.TimeMs = n
	}
}

// ndjsonTrace writes one JSON object per trace event.
func ndjsonTrace(w io.Writer) func(evaluator.TraceEvent) {
	enc := json.NewEncoder(w)
	return func(ev evaluator.TraceEvent) {
		_ = enc.Encode(ev)
	}
}

func cmdCheck(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return exitUsage
	}

	var file string
	pretty := cfg.Pretty

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--json":
			pretty = false
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: itmoscript check <file> [--pretty|--json]")
		return exitUsage
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return exitDiag
	}

	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return exitOK
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write", "-w":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: itmoscript fmt <file> [--write]")
		return exitUsage
	}

	sourceBytes, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostic(diag, true))
		return exitUsage
	}
	source := string(sourceBytes)

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, file)
	if fmtErr != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(fmtErr), true))
		return exitDiag
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return exitUsage
		}
	} else {
		fmt.Print(formatted)
	}
	return exitOK
}

func cmdConfig(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return exitUsage
	}
	if len(args) > 0 && args[0] == "--path" {
		if cfg.Path == "" {
			fmt.Println("(defaults)")
		} else {
			fmt.Println(cfg.Path)
		}
		return exitOK
	}

	data, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return exitUsage
	}
	fmt.Print(string(data))
	return exitOK
}

func cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return exitOK
	}

	name, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitUsage
	}
	if showIndex {
		if name != "builtins" {
			fmt.Fprintln(os.Stderr, "error: --index is only supported for the builtins topic")
			return exitUsage
		}
		fmt.Print(help.BuiltinIndex(stdlib.Default()))
		return exitOK
	}
	fmt.Print(content)
	return exitOK
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", exitUsage
		}
		return string(data), "<stdin>", exitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return "", "", exitUsage
	}
	return string(source), file, exitOK
}

func exitCodeForDiag(code string) int {
	switch {
	case code == diagnostics.EBudget:
		return exitBudget
	case diagnostics.IsSyntax(code):
		return exitDiag
	default:
		return exitRuntime
	}
}
