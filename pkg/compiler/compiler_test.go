package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/ttc/pkg/asm"
	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/util"
)

func nativeConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	if err := cfg.SetTarget("linux", "amd64", "x86_64-linux"); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestCompile(t *testing.T) {
	var stages []string
	res, err := CompileWith(nativeConfig(t), "main.c", []rune("int main(void) {\n    return -5;\n}\n"), Options{
		Progress: func(stage string) { stages = append(stages, stage) },
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "\t.globl\tmain\n" +
		"main:\n" +
		"\tpushq\t%rbp\n" +
		"\tmovq\t%rsp, %rbp\n" +
		"\tsubq\t$4, %rsp\n" +
		"\tmovl\t$5, -4(%rbp)\n" +
		"\tnegl\t-4(%rbp)\n" +
		"\tmovl\t-4(%rbp), %eax\n" +
		"\tmovq\t%rbp, %rsp\n" +
		"\tpopq\t%rbp\n" +
		"\tret\n" +
		"\t.section\t.note.GNU-stack,\"\",@progbits\n"
	if diff := cmp.Diff(want, string(res.Output)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if res.Asm == nil || res.Asm.Function.Instrs[0] != (asm.AllocateStack{Amount: 4}) {
		t.Errorf("Asm = %v", res.Asm)
	}
	if res.AST == nil || res.TAC == nil || res.IR == "" {
		t.Error("intermediate results missing")
	}
	wantStages := []string{StageLex, StageParse, StageTAC, StageCodegen + " with 'x86_64' backend..."}
	if diff := cmp.Diff(wantStages, stages); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	src := []rune("int main(void) { return ~-~-~(((-2147483647))); }")
	first, err := Compile(nativeConfig(t), "a.c", src)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compile(nativeConfig(t), "a.c", src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Output, second.Output) {
		t.Errorf("outputs differ:\n%s\n---\n%s", first.Output, second.Output)
	}
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile(nativeConfig(t), "bad.c", []rune("int main(void) {\n  return 2\n}\n"))
	var diag *util.Diagnostic
	if !errors.As(err, &diag) {
		t.Fatalf("got %v; want a diagnostic", err)
	}
	if util.IsInternal(err) {
		t.Error("syntax error reported as internal")
	}

	var out bytes.Buffer
	util.Report(&out, err)
	if !strings.HasPrefix(out.String(), "bad.c:3:1: error: expected ';', found '}'") {
		t.Errorf("report = %q", out.String())
	}
}

func TestCompileWarnings(t *testing.T) {
	var warnings bytes.Buffer
	res, err := CompileWith(nativeConfig(t), "w.c", []rune("int main(void) { return 4294967295; }"), Options{Warnings: &warnings})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(warnings.String(), "[-Woverflow]") {
		t.Errorf("missing overflow warning: %q", warnings.String())
	}
	if !strings.Contains(string(res.Output), "movl\t$-1, %eax") {
		t.Errorf("constant not wrapped:\n%s", res.Output)
	}
}
