package asm

import (
	"github.com/xplshn/ttc/pkg/tac"
	"github.com/xplshn/ttc/pkg/util"
)

// Names of the properties the lowering passes guarantee. They appear in
// internal compiler errors when one is found broken.
const (
	InvariantNoPseudo     = "no-pseudo-operands"
	InvariantLegalMov     = "no-memory-to-memory-mov"
	InvariantFrameSize    = "frame-size"
	InvariantFramePrelude = "leading-allocate-stack"
	InvariantWellFormed   = tac.InvariantWellFormed
)

// Lower runs instruction selection, slot assignment, legalization and frame
// finalization, in that order.
func Lower(prog *tac.Program) *Program {
	if prog == nil {
		util.ICE(InvariantWellFormed, "nil TAC program")
	}
	fn := SelectInstructions(prog.Function)
	instrs, frameSize := ReplacePseudos(fn.Instrs)
	instrs = SplitInvalidMovs(instrs)
	instrs = FinalizeFrame(instrs, frameSize)
	return &Program{Function: Function{Name: fn.Name, Instrs: instrs}}
}

// SelectInstructions maps each TAC instruction onto machine instructions
// that still refer to temporaries through Pseudo operands. The result starts
// with an AllocateStack(0) placeholder.
func SelectInstructions(fn tac.Function) Function {
	instrs := []Instr{AllocateStack{Amount: 0}}
	for _, in := range fn.Instrs {
		switch in := in.(type) {
		case tac.Return:
			instrs = append(instrs,
				Mov{Src: lowerVal(in.Val), Dst: Reg{Reg: AX}},
				Ret{},
			)
		case tac.Unary:
			dst := Pseudo{Name: in.Dst.Name}
			instrs = append(instrs,
				Mov{Src: lowerVal(in.Src), Dst: dst},
				Unary{Op: lowerOp(in.Op), Operand: dst},
			)
		default:
			util.ICE(InvariantWellFormed, "unexpected TAC instruction %T", in)
		}
	}
	return Function{Name: fn.Name, Instrs: instrs}
}

func lowerVal(v tac.Val) Operand {
	switch v := v.(type) {
	case tac.Constant:
		return Imm{Value: v.Value}
	case tac.Var:
		return Pseudo{Name: v.Name}
	default:
		util.ICE(InvariantWellFormed, "unexpected TAC value %T", v)
		return nil
	}
}

func lowerOp(op tac.UnaryOp) UnaryOp {
	switch op {
	case tac.Negate:
		return Neg
	case tac.Complement:
		return Not
	default:
		util.ICE(InvariantWellFormed, "unknown TAC operator %v", op)
		return 0
	}
}

// slotAllocator gives every distinct pseudo its own 4-byte slot below %rbp,
// in order of first appearance. Slots are never reused.
type slotAllocator struct {
	offsets map[string]int
	cursor  int
}

func (a *slotAllocator) operand(o Operand) Operand {
	p, ok := o.(Pseudo)
	if !ok {
		return o
	}
	off, seen := a.offsets[p.Name]
	if !seen {
		a.cursor -= SlotSize
		off = a.cursor
		a.offsets[p.Name] = off
	}
	return Stack{Offset: off}
}

// ReplacePseudos returns a copy of instrs with every Pseudo replaced by its
// stack slot, and the number of bytes those slots occupy. Operands of a Mov
// are visited source first.
func ReplacePseudos(instrs []Instr) ([]Instr, int) {
	alloc := &slotAllocator{offsets: make(map[string]int)}
	out := make([]Instr, 0, len(instrs))
	for _, in := range instrs {
		switch in := in.(type) {
		case Mov:
			src := alloc.operand(in.Src)
			dst := alloc.operand(in.Dst)
			out = append(out, Mov{Src: src, Dst: dst})
		case Unary:
			out = append(out, Unary{Op: in.Op, Operand: alloc.operand(in.Operand)})
		default:
			out = append(out, in)
		}
	}
	return out, -alloc.cursor
}

// SplitInvalidMovs routes memory-to-memory moves through %r10d. It must run
// after ReplacePseudos.
func SplitInvalidMovs(instrs []Instr) []Instr {
	out := make([]Instr, 0, len(instrs))
	for _, in := range instrs {
		checkNoPseudo(in)
		mov, ok := in.(Mov)
		if !ok {
			out = append(out, in)
			continue
		}
		_, srcMem := mov.Src.(Stack)
		_, dstMem := mov.Dst.(Stack)
		if srcMem && dstMem {
			scratch := Reg{Reg: R10}
			out = append(out, Mov{Src: mov.Src, Dst: scratch}, Mov{Src: scratch, Dst: mov.Dst})
			continue
		}
		out = append(out, mov)
	}
	return out
}

func checkNoPseudo(in Instr) {
	var ops []Operand
	switch in := in.(type) {
	case Mov:
		ops = []Operand{in.Src, in.Dst}
	case Unary:
		ops = []Operand{in.Operand}
	}
	for _, o := range ops {
		if p, ok := o.(Pseudo); ok {
			util.ICE(InvariantNoPseudo, "pseudo operand %q reached legalization", p.Name)
		}
	}
}

// FinalizeFrame writes the frame size into the leading AllocateStack.
func FinalizeFrame(instrs []Instr, frameSize int) []Instr {
	if len(instrs) == 0 {
		util.ICE(InvariantFramePrelude, "function has no instructions")
	}
	if _, ok := instrs[0].(AllocateStack); !ok {
		util.ICE(InvariantFramePrelude, "first instruction is %s, not AllocateStack", instrs[0])
	}
	out := make([]Instr, len(instrs))
	copy(out, instrs)
	out[0] = AllocateStack{Amount: frameSize}
	return out
}
