// Package compiler strings the front end, the TAC generator and a code
// generation backend together.
package compiler

import (
	"io"
	"os"

	"github.com/xplshn/ttc/pkg/asm"
	"github.com/xplshn/ttc/pkg/ast"
	"github.com/xplshn/ttc/pkg/codegen"
	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/lexer"
	"github.com/xplshn/ttc/pkg/parser"
	"github.com/xplshn/ttc/pkg/tac"
	"github.com/xplshn/ttc/pkg/util"
)

type Result struct {
	AST *ast.Program
	TAC *tac.Program
	// Asm is only set by the native backend.
	Asm    *asm.Program
	IR     string
	Output []byte
}

// Stage names passed to Options.Progress.
const (
	StageLex     = "Tokenizing..."
	StageParse   = "Parsing tokens into AST..."
	StageTAC     = "Generating TAC..."
	StageCodegen = "Generating code"
)

type Options struct {
	// Warnings receives lexer warnings. Nil means os.Stderr.
	Warnings io.Writer
	// Progress, when set, is called as each stage starts.
	Progress func(stage string)
}

// Compile is CompileWith using default options.
func Compile(cfg *config.Config, name string, src []rune) (*Result, error) {
	return CompileWith(cfg, name, src, Options{})
}

// CompileWith compiles one translation unit. Errors in the input come back as
// *util.Diagnostic, broken compiler invariants as *util.InternalError.
func CompileWith(cfg *config.Config, name string, src []rune, opts Options) (res *Result, err error) {
	defer util.RecoverICE(&err)

	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}
	warnings := opts.Warnings
	if warnings == nil {
		warnings = os.Stderr
	}

	util.SetSourceFiles([]util.SourceFileRecord{{Name: name, Content: src}})
	res = &Result{}

	progress(StageLex)
	l := lexer.NewLexer(src, 0, cfg)
	l.Warnings = warnings
	tokens, err := l.Tokenize()
	if err != nil {
		return nil, err
	}

	progress(StageParse)
	if res.AST, err = parser.NewParser(tokens).Parse(); err != nil {
		return nil, err
	}

	progress(StageTAC)
	res.TAC = tac.NewGenerator().Generate(res.AST)

	backend, err := codegen.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	progress(StageCodegen + " with '" + cfg.BackendName + "' backend...")
	if res.IR, err = backend.GenerateIR(res.TAC, cfg); err != nil {
		return nil, err
	}
	out, err := backend.Generate(res.TAC, cfg)
	if err != nil {
		return nil, err
	}
	if nb, ok := backend.(*codegen.NativeBackend); ok {
		res.Asm = nb.Asm
	}
	res.Output = out.Bytes()
	return res, nil
}
