package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/token"
	"golang.org/x/term"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceMu    sync.RWMutex
	sourceFiles []SourceFileRecord
)

// SetSourceFiles stores the source code of every input file so diagnostics
// can quote the offending line.
func SetSourceFiles(files []SourceFileRecord) {
	sourceMu.Lock()
	sourceFiles = files
	sourceMu.Unlock()
}

func sourceFile(index int) (SourceFileRecord, bool) {
	sourceMu.RLock()
	defer sourceMu.RUnlock()
	if index < 0 || index >= len(sourceFiles) {
		return SourceFileRecord{}, false
	}
	return sourceFiles[index], true
}

func fileName(tok token.Token) string {
	if rec, ok := sourceFile(tok.FileIndex); ok {
		return rec.Name
	}
	return "unknown"
}

// Diagnostic is a user-facing error tied to a position in the source.
type Diagnostic struct {
	Tok token.Token
	Msg string
}

func NewDiagnostic(tok token.Token, format string, args ...any) *Diagnostic {
	return &Diagnostic{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", fileName(d.Tok), d.Tok.Line, d.Tok.Column, d.Msg)
}

// InternalError reports a broken compiler invariant. It is never caused by
// the input program.
type InternalError struct {
	Invariant string
	Msg       string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal compiler error [%s]: %s", e.Invariant, e.Msg)
}

// ICE aborts the current compilation with an *InternalError.
func ICE(invariant, format string, args ...any) {
	panic(&InternalError{Invariant: invariant, Msg: fmt.Sprintf(format, args...)})
}

// RecoverICE turns a panic raised by ICE into *errp. Other panics propagate.
// It must be deferred directly.
func RecoverICE(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	ice, ok := r.(*InternalError)
	if !ok {
		panic(r)
	}
	*errp = ice
}

// IsInternal reports whether err carries an *InternalError.
func IsInternal(err error) bool {
	var ice *InternalError
	return errors.As(err, &ice)
}

type palette struct{ err, warn, caret, reset string }

func colorsFor(w io.Writer) palette {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return palette{"\033[31m", "\033[33m", "\033[32m", "\033[0m"}
	}
	return palette{}
}

// Report prints err to w. Diagnostics get a file:line:col prefix and the
// offending source line with a caret underneath.
func Report(w io.Writer, err error) {
	p := colorsFor(w)

	var diag *Diagnostic
	if !errors.As(err, &diag) {
		fmt.Fprintf(w, "%serror:%s %v\n", p.err, p.reset, err)
		return
	}
	tok := diag.Tok
	fmt.Fprintf(w, "%s:%d:%d: %serror:%s %s\n", fileName(tok), tok.Line, tok.Column, p.err, p.reset, diag.Msg)
	printErrorLine(w, p, tok)
}

// Warn prints a warning for tok when wt is enabled in cfg.
func Warn(cfg *config.Config, wt config.Warning, w io.Writer, tok token.Token, format string, args ...any) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	p := colorsFor(w)
	fmt.Fprintf(w, "%s:%d:%d: %swarning:%s ", fileName(tok), tok.Line, tok.Column, p.warn, p.reset)
	fmt.Fprintf(w, format, args...)
	fmt.Fprintf(w, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(w, p, tok)
}

func printErrorLine(w io.Writer, p palette, tok token.Token) {
	rec, ok := sourceFile(tok.FileIndex)
	if !ok || tok.Line == 0 {
		return
	}

	content := rec.Content
	lineStart, line := 0, 1
	for i, r := range content {
		if line == tok.Line {
			break
		}
		if r == '\n' {
			line++
			lineStart = i + 1
		}
	}
	if line != tok.Line {
		return
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))
	fmt.Fprintf(w, "  %s%s^", strings.Repeat(" ", max(tok.Column-1, 0)), p.caret)
	if tok.Len > 1 {
		fmt.Fprint(w, strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(w, p.reset)
}
