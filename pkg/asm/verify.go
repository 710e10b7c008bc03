package asm

import (
	"fmt"

	"github.com/xplshn/ttc/pkg/util"
)

// Verify checks a fully lowered program: it opens with the frame
// allocation, holds no Pseudo operands or memory-to-memory moves, and its
// frame is exactly one slot per distinct stack offset used.
func Verify(prog *Program) error {
	if prog == nil {
		return &util.InternalError{Invariant: InvariantWellFormed, Msg: "nil assembly program"}
	}
	instrs := prog.Function.Instrs
	if len(instrs) == 0 {
		return &util.InternalError{Invariant: InvariantFramePrelude, Msg: "function has no instructions"}
	}
	alloc, ok := instrs[0].(AllocateStack)
	if !ok {
		return &util.InternalError{Invariant: InvariantFramePrelude, Msg: "first instruction is " + instrs[0].String()}
	}

	slots := make(map[int]bool)
	for i, in := range instrs {
		var ops []Operand
		switch in := in.(type) {
		case Mov:
			ops = []Operand{in.Src, in.Dst}
			_, srcMem := in.Src.(Stack)
			_, dstMem := in.Dst.(Stack)
			if srcMem && dstMem {
				return &util.InternalError{Invariant: InvariantLegalMov, Msg: "memory-to-memory move: " + in.String()}
			}
		case Unary:
			ops = []Operand{in.Operand}
		case AllocateStack:
			if i != 0 {
				return &util.InternalError{Invariant: InvariantFramePrelude, Msg: "AllocateStack after the first instruction"}
			}
		}
		for _, o := range ops {
			switch o := o.(type) {
			case Pseudo:
				return &util.InternalError{Invariant: InvariantNoPseudo, Msg: "pseudo operand " + o.Name + " survived lowering"}
			case Stack:
				slots[o.Offset] = true
			}
		}
	}

	if want := SlotSize * len(slots); alloc.Amount != want {
		return &util.InternalError{
			Invariant: InvariantFrameSize,
			Msg:       fmt.Sprintf("frame is %d bytes, %d slots need %d", alloc.Amount, len(slots), want),
		}
	}
	return nil
}
