package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/tac"
	"github.com/xplshn/ttc/pkg/util"
)

// qbeBackend hands TAC to QBE. Every TAC temporary becomes a QBE word
// temporary of the same name, so the IL stays in SSA form.
type qbeBackend struct {
	out *strings.Builder
}

func NewQBEBackend() Backend { return &qbeBackend{} }

func (b *qbeBackend) GenerateIR(prog *tac.Program, cfg *config.Config) (qbeIR string, err error) {
	defer util.RecoverICE(&err)
	var sb strings.Builder
	b.out = &sb
	b.genFunc(prog.Function)
	return sb.String(), nil
}

func (b *qbeBackend) genFunc(fn tac.Function) {
	fmt.Fprintf(b.out, "export function w $%s() {\n", fn.Name)
	b.out.WriteString("@start\n")
	for _, in := range fn.Instrs {
		b.genInstr(in)
	}
	b.out.WriteString("}\n")
}

func (b *qbeBackend) genInstr(in tac.Instr) {
	switch in := in.(type) {
	case tac.Return:
		fmt.Fprintf(b.out, "\tret %s\n", b.formatValue(in.Val))
	case tac.Unary:
		src := b.formatValue(in.Src)
		switch in.Op {
		case tac.Negate:
			fmt.Fprintf(b.out, "\t%%%s =w neg %s\n", in.Dst.Name, src)
		case tac.Complement:
			fmt.Fprintf(b.out, "\t%%%s =w xor %s, -1\n", in.Dst.Name, src)
		default:
			util.ICE(tac.InvariantWellFormed, "unknown TAC operator %v", in.Op)
		}
	default:
		util.ICE(tac.InvariantWellFormed, "unexpected TAC instruction %T", in)
	}
}

func (b *qbeBackend) formatValue(v tac.Val) string {
	switch v := v.(type) {
	case tac.Constant:
		return fmt.Sprintf("%d", v.Value)
	case tac.Var:
		return "%" + v.Name
	default:
		util.ICE(tac.InvariantWellFormed, "unexpected TAC value %T", v)
		return ""
	}
}
