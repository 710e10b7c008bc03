// Package asm is the x86-64 assembly tree. Instruction selection produces it
// with symbolic Pseudo operands; the later passes in lower.go rewrite those
// into stack slots, fix operand combinations the hardware rejects, and size
// the frame.
package asm

import (
	"fmt"
	"strings"
)

// SlotSize is the number of stack bytes given to each pseudo register.
const SlotSize = 4

type Register int

const (
	AX Register = iota
	R10
)

func (r Register) String() string {
	switch r {
	case AX:
		return "AX"
	case R10:
		return "R10"
	default:
		return fmt.Sprintf("Register(%d)", int(r))
	}
}

type UnaryOp int

const (
	Neg UnaryOp = iota
	Not
)

func (op UnaryOp) String() string {
	switch op {
	case Neg:
		return "Neg"
	case Not:
		return "Not"
	default:
		return fmt.Sprintf("UnaryOp(%d)", int(op))
	}
}

type Operand interface {
	isOperand()
	String() string
}

type Imm struct{ Value int32 }
type Reg struct{ Reg Register }
type Pseudo struct{ Name string }
type Stack struct{ Offset int }

func (Imm) isOperand()    {}
func (Reg) isOperand()    {}
func (Pseudo) isOperand() {}
func (Stack) isOperand()  {}

func (o Imm) String() string    { return fmt.Sprintf("Imm(%d)", o.Value) }
func (o Reg) String() string    { return fmt.Sprintf("Reg(%s)", o.Reg) }
func (o Pseudo) String() string { return fmt.Sprintf("Pseudo(%s)", o.Name) }
func (o Stack) String() string  { return fmt.Sprintf("Stack(%d)", o.Offset) }

type Instr interface {
	isInstr()
	String() string
}

type Mov struct{ Src, Dst Operand }

type Unary struct {
	Op      UnaryOp
	Operand Operand
}

type AllocateStack struct{ Amount int }
type Ret struct{}

func (Mov) isInstr()           {}
func (Unary) isInstr()         {}
func (AllocateStack) isInstr() {}
func (Ret) isInstr()           {}

func (m Mov) String() string           { return fmt.Sprintf("Mov(%s, %s)", operandString(m.Src), operandString(m.Dst)) }
func (u Unary) String() string         { return fmt.Sprintf("Unary(%s, %s)", u.Op, operandString(u.Operand)) }
func (a AllocateStack) String() string { return fmt.Sprintf("AllocateStack(%d)", a.Amount) }
func (Ret) String() string             { return "Ret" }

func operandString(o Operand) string {
	if o == nil {
		return "<nil>"
	}
	return o.String()
}

type Function struct {
	Name   string
	Instrs []Instr
}

type Program struct {
	Function Function
}

func (p *Program) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Function(%s)\n", p.Function.Name)
	for _, in := range p.Function.Instrs {
		fmt.Fprintf(&sb, "  %s\n", in)
	}
	return sb.String()
}
