package util

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/token"
)

func withSource(t *testing.T, name, src string) {
	t.Helper()
	SetSourceFiles([]SourceFileRecord{{Name: name, Content: []rune(src)}})
	t.Cleanup(func() { SetSourceFiles(nil) })
}

func TestReportDiagnostic(t *testing.T) {
	withSource(t, "main.c", "int main(void) {\n  return 1 }\n")
	tok := token.Token{Type: token.RBrace, Line: 2, Column: 12, Len: 1}

	var out bytes.Buffer
	Report(&out, NewDiagnostic(tok, "expected ';', found %s", tok.Describe()))

	want := "main.c:2:12: error: expected ';', found '}'\n" +
		"    return 1 }\n" +
		"             ^\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("Report mismatch (-want +got):\n%s", diff)
	}
}

func TestReportUnderlinesWholeToken(t *testing.T) {
	withSource(t, "x.c", "int main(void) { return 12abc; }")
	tok := token.Token{Type: token.Constant, Value: "12abc", Line: 1, Column: 25, Len: 5}

	var out bytes.Buffer
	Report(&out, fmt.Errorf("lexing: %w", NewDiagnostic(tok, "invalid constant '12abc'")))

	want := "x.c:1:25: error: invalid constant '12abc'\n" +
		"  int main(void) { return 12abc; }\n" +
		"                          ^~~~~\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("Report mismatch (-want +got):\n%s", diff)
	}
}

func TestReportPlainError(t *testing.T) {
	var out bytes.Buffer
	Report(&out, errors.New("could not read file 'nope.c'"))
	if got, want := out.String(), "error: could not read file 'nope.c'\n"; got != want {
		t.Errorf("Report = %q; want %q", got, want)
	}
}

func TestDiagnosticError(t *testing.T) {
	withSource(t, "a.c", "int")
	err := NewDiagnostic(token.Token{Line: 1, Column: 4}, "expected identifier")
	if got, want := err.Error(), "a.c:1:4: expected identifier"; got != want {
		t.Errorf("Error() = %q; want %q", got, want)
	}
}

func TestRecoverICE(t *testing.T) {
	compile := func() (err error) {
		defer RecoverICE(&err)
		ICE("frame-size", "frame is %d bytes", 3)
		return nil
	}
	err := compile()
	var ice *InternalError
	if !errors.As(err, &ice) {
		t.Fatalf("got %v; want *InternalError", err)
	}
	if ice.Invariant != "frame-size" || err.Error() != "internal compiler error [frame-size]: frame is 3 bytes" {
		t.Errorf("got %q", err.Error())
	}
	if !IsInternal(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsInternal does not see through wrapping")
	}
	if IsInternal(errors.New("plain")) {
		t.Error("IsInternal(plain error) = true")
	}
}

func TestRecoverICERepanicsOtherValues(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v; want boom", r)
		}
	}()
	func() (err error) {
		defer RecoverICE(&err)
		panic("boom")
	}()
	t.Error("panic was swallowed")
}

func TestWarn(t *testing.T) {
	withSource(t, "w.c", "return 4294967296;")
	cfg := config.NewConfig()
	tok := token.Token{Type: token.Constant, Value: "4294967296", Line: 1, Column: 8, Len: 10}

	var out bytes.Buffer
	Warn(cfg, config.WarnOverflow, &out, tok, "constant truncated")
	want := "w.c:1:8: warning: constant truncated [-Woverflow]\n" +
		"  return 4294967296;\n" +
		"         ^~~~~~~~~~\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("Warn mismatch (-want +got):\n%s", diff)
	}

	out.Reset()
	cfg.SetWarning(config.WarnOverflow, false)
	Warn(cfg, config.WarnOverflow, &out, tok, "constant truncated")
	if out.Len() != 0 {
		t.Errorf("disabled warning printed %q", out.String())
	}
}
