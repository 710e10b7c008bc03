package asm

import (
	"fmt"
)

// machine executes the instruction subset ttc emits with 32-bit x86
// semantics. Stack slots are addressed by their %rbp offset.
type machine struct {
	regs  map[Register]int32
	stack map[int]int32
	frame int
}

func newMachine() *machine {
	return &machine{regs: make(map[Register]int32), stack: make(map[int]int32)}
}

func (m *machine) load(o Operand) (int32, error) {
	switch o := o.(type) {
	case Imm:
		return o.Value, nil
	case Reg:
		return m.regs[o.Reg], nil
	case Stack:
		if err := m.checkSlot(o.Offset); err != nil {
			return 0, err
		}
		return m.stack[o.Offset], nil
	default:
		return 0, fmt.Errorf("cannot read %s", o)
	}
}

func (m *machine) store(o Operand, v int32) error {
	switch o := o.(type) {
	case Reg:
		m.regs[o.Reg] = v
	case Stack:
		if err := m.checkSlot(o.Offset); err != nil {
			return err
		}
		m.stack[o.Offset] = v
	default:
		return fmt.Errorf("cannot write %s", o)
	}
	return nil
}

func (m *machine) checkSlot(off int) error {
	if off >= 0 || -off > m.frame || off%SlotSize != 0 {
		return fmt.Errorf("slot %d outside a %d byte frame", off, m.frame)
	}
	return nil
}

// run executes instrs and returns %eax at Ret.
func (m *machine) run(instrs []Instr) (int32, error) {
	for _, in := range instrs {
		switch in := in.(type) {
		case AllocateStack:
			m.frame = in.Amount
		case Mov:
			_, srcMem := in.Src.(Stack)
			_, dstMem := in.Dst.(Stack)
			if srcMem && dstMem {
				return 0, fmt.Errorf("unencodable %s", in)
			}
			v, err := m.load(in.Src)
			if err != nil {
				return 0, err
			}
			if err := m.store(in.Dst, v); err != nil {
				return 0, err
			}
		case Unary:
			v, err := m.load(in.Operand)
			if err != nil {
				return 0, err
			}
			switch in.Op {
			case Neg:
				v = -v
			case Not:
				v = ^v
			}
			if err := m.store(in.Operand, v); err != nil {
				return 0, err
			}
		case Ret:
			return m.regs[AX], nil
		default:
			return 0, fmt.Errorf("unknown instruction %T", in)
		}
	}
	return 0, fmt.Errorf("fell off the end without Ret")
}
