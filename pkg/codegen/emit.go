package codegen

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xplshn/ttc/pkg/asm"
	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/util"
)

// Emit writes prog to w as AT&T syntax assembly. The text is built in memory
// first, so w receives nothing when prog cannot be printed.
func Emit(w io.Writer, prog *asm.Program, platform config.Platform) error {
	if prog == nil {
		return &util.InternalError{Invariant: asm.InvariantWellFormed, Msg: "nil assembly program"}
	}
	e := emitter{platform: platform}
	if err := e.function(prog.Function); err != nil {
		return err
	}
	if platform == config.PlatformLinux {
		e.buf.WriteString("\t.section\t.note.GNU-stack,\"\",@progbits\n")
	}
	_, err := w.Write(e.buf.Bytes())
	return err
}

type emitter struct {
	buf      bytes.Buffer
	platform config.Platform
}

func (e *emitter) symbol(name string) string {
	if e.platform == config.PlatformDarwin {
		return "_" + name
	}
	return name
}

func (e *emitter) line(format string, args ...any) {
	e.buf.WriteByte('\t')
	fmt.Fprintf(&e.buf, format, args...)
	e.buf.WriteByte('\n')
}

func (e *emitter) function(fn asm.Function) error {
	name := e.symbol(fn.Name)
	e.line(".globl\t%s", name)
	fmt.Fprintf(&e.buf, "%s:\n", name)
	e.line("pushq\t%%rbp")
	e.line("movq\t%%rsp, %%rbp")
	for _, in := range fn.Instrs {
		if err := e.instr(in); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) instr(in asm.Instr) error {
	switch in := in.(type) {
	case asm.Mov:
		src, err := operand(in.Src)
		if err != nil {
			return err
		}
		dst, err := operand(in.Dst)
		if err != nil {
			return err
		}
		e.line("movl\t%s, %s", src, dst)
	case asm.Unary:
		op, err := operand(in.Operand)
		if err != nil {
			return err
		}
		e.line("%s\t%s", unaryMnemonic(in.Op), op)
	case asm.AllocateStack:
		e.line("subq\t$%d, %%rsp", in.Amount)
	case asm.Ret:
		e.line("movq\t%%rbp, %%rsp")
		e.line("popq\t%%rbp")
		e.line("ret")
	default:
		return &util.InternalError{Invariant: asm.InvariantWellFormed, Msg: fmt.Sprintf("cannot emit %T", in)}
	}
	return nil
}

func unaryMnemonic(op asm.UnaryOp) string {
	if op == asm.Not {
		return "notl"
	}
	return "negl"
}

func operand(o asm.Operand) (string, error) {
	switch o := o.(type) {
	case asm.Imm:
		return fmt.Sprintf("$%d", o.Value), nil
	case asm.Reg:
		switch o.Reg {
		case asm.AX:
			return "%eax", nil
		case asm.R10:
			return "%r10d", nil
		}
		return "", &util.InternalError{Invariant: asm.InvariantWellFormed, Msg: fmt.Sprintf("unknown register %s", o.Reg)}
	case asm.Stack:
		return fmt.Sprintf("%d(%%rbp)", o.Offset), nil
	case asm.Pseudo:
		return "", &util.InternalError{Invariant: asm.InvariantNoPseudo, Msg: fmt.Sprintf("pseudo operand %q reached emission", o.Name)}
	default:
		return "", &util.InternalError{Invariant: asm.InvariantWellFormed, Msg: fmt.Sprintf("unknown operand %T", o)}
	}
}
