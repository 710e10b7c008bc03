package lexer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/token"
	"github.com/xplshn/ttc/pkg/util"
)

func lex(t *testing.T, cfg *config.Config, src string) ([]token.Token, string, error) {
	t.Helper()
	var warnings bytes.Buffer
	l := NewLexer([]rune(src), 0, cfg)
	l.Warnings = &warnings
	toks, err := l.Tokenize()
	return toks, warnings.String(), err
}

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestTokenize(t *testing.T) {
	toks, _, err := lex(t, config.NewConfig(), "int main(void) {\n  return ~(-2);\n}\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Type{
		token.Int, token.Ident, token.LParen, token.Void, token.RParen, token.LBrace,
		token.Return, token.Complement, token.LParen, token.Minus, token.Constant, token.RParen, token.Semi,
		token.RBrace, token.EOF,
	}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
	if toks[1].Value != "main" {
		t.Errorf("identifier = %q; want main", toks[1].Value)
	}
	if c := toks[10]; c.Value != "2" || c.Line != 2 || c.Column != 13 || c.Len != 1 {
		t.Errorf("constant token = %+v", c)
	}
}

func TestDecrementIsOneToken(t *testing.T) {
	toks, _, err := lex(t, config.NewConfig(), "--1 - -1")
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Type{token.Dec, token.Constant, token.Minus, token.Minus, token.Constant, token.EOF}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestComments(t *testing.T) {
	src := "# 1 \"main.c\"\nint /* block\n comment */ main // trailing\n"
	toks, warnings, err := lex(t, config.NewConfig(), src)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]token.Type{token.Int, token.Ident, token.EOF}, types(toks)); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
	if warnings != "" {
		t.Errorf("unexpected warnings: %s", warnings)
	}
}

func TestLineCommentsUnderC89(t *testing.T) {
	cfg := config.NewConfig()
	if err := cfg.ApplyStd("c89"); err != nil {
		t.Fatal(err)
	}
	_, warnings, err := lex(t, cfg, "int // c99 only\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(warnings, "[-Wline-comments]") {
		t.Errorf("missing -Wline-comments warning, got %q", warnings)
	}

	cfg.SetWarning(config.WarnPedantic, true)
	if err := cfg.ApplyStd("c89"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := lex(t, cfg, "int // c99 only\n"); err == nil {
		t.Error("expected '//' to be rejected under pedantic C89")
	}
}

func TestConstants(t *testing.T) {
	tests := []struct {
		src      string
		want     int32
		warning  bool
		errorMsg string
	}{
		{src: "0", want: 0},
		{src: "2147483647", want: 2147483647},
		{src: "2147483648", want: -2147483648, warning: true},
		{src: "4294967297", want: 1, warning: true},
		{src: "99999999999999999999999", errorMsg: "too large"},
		{src: "12abc", errorMsg: "invalid constant '12abc'"},
		{src: "1_", errorMsg: "invalid constant"},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			toks, warnings, err := lex(t, config.NewConfig(), tc.src)
			if tc.errorMsg != "" {
				var diag *util.Diagnostic
				if !errors.As(err, &diag) {
					t.Fatalf("got %v; want a diagnostic", err)
				}
				if !strings.Contains(diag.Msg, tc.errorMsg) {
					t.Errorf("message = %q; want it to contain %q", diag.Msg, tc.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			got, err := ConstantValue(toks[0])
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("value = %d; want %d", got, tc.want)
			}
			if hasWarning := strings.Contains(warnings, "[-Woverflow]"); hasWarning != tc.warning {
				t.Errorf("overflow warning = %v; want %v (%q)", hasWarning, tc.warning, warnings)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		msg  string
		line int
		col  int
	}{
		{"int main(void) { return 1 + 2; }", "unexpected character '+'", 1, 27},
		{"int\n  @", "unexpected character '@'", 2, 3},
		{"int /* never closed", "unterminated block comment", 1, 5},
	}
	for _, tc := range tests {
		t.Run(tc.msg, func(t *testing.T) {
			_, _, err := lex(t, config.NewConfig(), tc.src)
			var diag *util.Diagnostic
			if !errors.As(err, &diag) {
				t.Fatalf("got %v; want a diagnostic", err)
			}
			if diag.Msg != tc.msg || diag.Tok.Line != tc.line || diag.Tok.Column != tc.col {
				t.Errorf("got %q at %d:%d; want %q at %d:%d", diag.Msg, diag.Tok.Line, diag.Tok.Column, tc.msg, tc.line, tc.col)
			}
		})
	}
}

func TestDisabledFeatures(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatBlockComments, false)
	if _, _, err := lex(t, cfg, "/* x */"); err == nil {
		t.Error("block comment accepted with -Fno-block-comments")
	}
	cfg.SetFeature(config.FeatLineMarkers, false)
	if _, _, err := lex(t, cfg, "# 1\n"); err == nil {
		t.Error("line marker accepted with -Fno-line-markers")
	}
}
