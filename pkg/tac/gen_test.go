package tac

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/ttc/pkg/ast"
	"github.com/xplshn/ttc/pkg/util"
)

func program(e ast.Expr) *ast.Program {
	return &ast.Program{Function: &ast.Function{Name: "main", Body: &ast.Return{Expr: e}}}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expr
		want []Instr
	}{
		{
			name: "constant",
			expr: &ast.Constant{Value: 2},
			want: []Instr{Return{Val: Constant{Value: 2}}},
		},
		{
			name: "negate",
			expr: &ast.Unary{Op: ast.Negate, Expr: &ast.Constant{Value: 5}},
			want: []Instr{
				Unary{Op: Negate, Src: Constant{Value: 5}, Dst: Var{Name: "tmp.0"}},
				Return{Val: Var{Name: "tmp.0"}},
			},
		},
		{
			name: "innermost first",
			expr: &ast.Unary{Op: ast.Complement, Expr: &ast.Unary{Op: ast.Negate, Expr: &ast.Constant{Value: 3}}},
			want: []Instr{
				Unary{Op: Negate, Src: Constant{Value: 3}, Dst: Var{Name: "tmp.0"}},
				Unary{Op: Complement, Src: Var{Name: "tmp.0"}, Dst: Var{Name: "tmp.1"}},
				Return{Val: Var{Name: "tmp.1"}},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NewGenerator().Generate(program(tc.expr))
			want := &Program{Function: Function{Name: "main", Instrs: tc.want}}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Generate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGeneratorsDoNotShareNames(t *testing.T) {
	expr := &ast.Unary{Op: ast.Negate, Expr: &ast.Constant{Value: 1}}
	first := NewGenerator().Generate(program(expr))
	second := NewGenerator().Generate(program(expr))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("separate compilations differ (-first +second):\n%s", diff)
	}
}

func TestTemps(t *testing.T) {
	expr := &ast.Unary{Op: ast.Negate, Expr: &ast.Unary{Op: ast.Negate, Expr: &ast.Constant{Value: 1}}}
	fn := NewGenerator().Generate(program(expr)).Function
	want := []Var{{Name: "tmp.0"}, {Name: "tmp.1"}}
	if diff := cmp.Diff(want, fn.Temps()); diff != "" {
		t.Errorf("Temps mismatch (-want +got):\n%s", diff)
	}
}

func TestProgramString(t *testing.T) {
	expr := &ast.Unary{Op: ast.Complement, Expr: &ast.Constant{Value: 7}}
	got := NewGenerator().Generate(program(expr)).String()
	want := "function main:\n" +
		"    0  tmp.0 = not 7\n" +
		"    1  return tmp.0\n"
	if got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
}

func TestMalformedTreesAreInternalErrors(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
	}{
		{"nil program", nil},
		{"nil function", &ast.Program{}},
		{"nil body", &ast.Program{Function: &ast.Function{Name: "main"}}},
		{"nil expression", program(nil)},
		{"nil operand", program(&ast.Unary{Op: ast.Negate})},
		{"unknown operator", program(&ast.Unary{Op: ast.UnaryOp(42), Expr: &ast.Constant{}})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			func() {
				defer util.RecoverICE(&err)
				NewGenerator().Generate(tc.prog)
			}()
			var ice *util.InternalError
			if !errors.As(err, &ice) {
				t.Fatalf("got %v; want an internal error", err)
			}
			if ice.Invariant != InvariantWellFormed {
				t.Errorf("invariant = %q; want %q", ice.Invariant, InvariantWellFormed)
			}
		})
	}
}
