// rtmcc - RT-Micro-C compiler driver
//
// Usage: rtmcc [flags] file.rtmc
//
// The compiler pipeline runs entirely in-process (lexer -> parser -> import
// driver -> semantic analyzer -> optimizer -> codegen -> .vmb writer), a
// deliberate collapse of the teacher's ya/main.go multi-binary
// exec.Command staging (ylex -> yparse -> ysem -> ygen -> yasm -> yld) into
// direct function calls, since RT-Micro-C has only one process and no
// separate assembler/linker stage.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/bytecode"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/codegen"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/diag"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/importer"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/optimizer"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/sema"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/token"
)

var (
	outputFile  = flag.String("o", "", "output .vmb file (default: input with .vmb suffix)")
	verbose     = flag.Bool("v", false, "verbose stage tracing")
	dumpAST     = flag.Bool("ast", false, "dump the resolved AST instead of compiling")
	dumpTokens  = flag.Bool("tokens", false, "dump the token stream instead of compiling")
	noOptimize  = flag.Bool("no-optimize", false, "skip the optimizer stage")
	noSemantic  = flag.Bool("no-semantic", false, "skip semantic analysis (diagnostic use only; codegen will be skipped too)")
	release     = flag.Bool("release", false, "strip debug info (CompileMode RELEASE instead of DEBUG)")
	runAfter    = flag.Bool("run", false, "run the compiled program after writing it (reserved, unimplemented: the VM is out of scope)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] file.rtmc\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "RT-Micro-C ahead-of-time compiler\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(flag.Arg(0)))
}

func verbosef(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// run executes the full pipeline for one input file and returns the
// process exit code: 0 success, 1 compilation error, 2 usage error.
func run(sourceFile string) int {
	if _, err := os.Stat(sourceFile); err != nil {
		fmt.Fprintf(os.Stderr, "rtmcc: cannot access %s: %v\n", sourceFile, err)
		return 2
	}

	verbosef("Running import driver...\n")
	drv := importer.NewDriver()
	prog := drv.Load(sourceFile)
	if *dumpTokens {
		dumpTokenStream(sourceFile)
		return 0
	}
	if drv.Errors.HasErrors() {
		printDiagnostics(&drv.Errors)
		return 1
	}
	printDiagnostics(&drv.Errors) // warnings only at this point

	if *dumpAST {
		fmt.Printf("%+v\n", prog)
		return 0
	}

	var an *sema.Analyzer
	if !*noSemantic {
		verbosef("Running semantic analyzer...\n")
		an = sema.New(prog)
		ok := an.Analyze()
		printDiagnostics(&an.Errors)
		if !ok {
			return 1
		}
	}

	if *noSemantic {
		fmt.Fprintln(os.Stderr, "rtmcc: --no-semantic given, stopping before codegen")
		return 0
	}

	if !*noOptimize {
		verbosef("Running optimizer...\n")
		optimizer.New().Optimize(prog)
	}

	mode := codegen.ModeDebug
	if *release {
		mode = codegen.ModeRelease
	}

	verbosef("Running code generator...\n")
	gen := codegen.New(prog, an, mode)
	bcProg, err := gen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtmcc: %v\n", err)
		return 1
	}

	out := *outputFile
	if out == "" {
		out = defaultOutputName(sourceFile)
	}

	verbosef("Writing %s...\n", out)
	f, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtmcc: %v\n", err)
		return 1
	}
	defer f.Close()
	if err := bytecode.Write(f, bcProg, mode == codegen.ModeDebug); err != nil {
		fmt.Fprintf(os.Stderr, "rtmcc: %v\n", err)
		return 1
	}

	if *runAfter {
		fmt.Fprintln(os.Stderr, "rtmcc: --run is not implemented (the VM is out of scope for this tool)")
	}

	verbosef("Wrote %s\n", out)
	return 0
}

func defaultOutputName(sourceFile string) string {
	base := filepath.Base(sourceFile)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".vmb"
}

func dumpTokenStream(sourceFile string) {
	data, err := os.ReadFile(sourceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtmcc: %v\n", err)
		return
	}
	lex := token.NewLexer(data, sourceFile)
	toks := lex.Tokenize()
	for _, t := range toks {
		fmt.Printf("%-20s %-15q %s\n", t.Kind, t.Lexeme, t.Loc)
	}
	printDiagnostics(&lex.Errors)
}

func printDiagnostics(bag *diag.Bag) {
	for _, d := range bag.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
}
