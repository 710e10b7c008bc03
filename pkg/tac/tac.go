// Package tac defines the three-address code that sits between the syntax
// tree and the assembly tree. Every intermediate result gets its own named
// temporary.
package tac

import (
	"fmt"
	"strconv"
	"strings"
)

type UnaryOp int

const (
	Negate UnaryOp = iota
	Complement
)

func (op UnaryOp) String() string {
	switch op {
	case Negate:
		return "neg"
	case Complement:
		return "not"
	default:
		return fmt.Sprintf("UnaryOp(%d)", int(op))
	}
}

// Val is an instruction operand: a Constant or a Var.
type Val interface {
	isVal()
	String() string
}

type Constant struct{ Value int32 }
type Var struct{ Name string }

func (Constant) isVal() {}
func (Var) isVal()      {}

func (c Constant) String() string { return strconv.FormatInt(int64(c.Value), 10) }
func (v Var) String() string      { return v.Name }

type Instr interface {
	isInstr()
	String() string
}

type Return struct{ Val Val }

type Unary struct {
	Op  UnaryOp
	Src Val
	Dst Var
}

func (Return) isInstr() {}
func (Unary) isInstr()  {}

func (r Return) String() string { return "return " + valString(r.Val) }
func (u Unary) String() string {
	return fmt.Sprintf("%s = %s %s", u.Dst, u.Op, valString(u.Src))
}

func valString(v Val) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

type Function struct {
	Name   string
	Instrs []Instr
}

type Program struct {
	Function Function
}

// String prints one numbered instruction per line.
func (p *Program) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s:\n", p.Function.Name)
	for i, in := range p.Function.Instrs {
		fmt.Fprintf(&sb, "  %3d  %s\n", i, in)
	}
	return sb.String()
}

// Temps returns the distinct temporaries defined in f, in definition order.
func (f Function) Temps() []Var {
	var temps []Var
	seen := make(map[string]bool)
	for _, in := range f.Instrs {
		if u, ok := in.(Unary); ok && !seen[u.Dst.Name] {
			seen[u.Dst.Name] = true
			temps = append(temps, u.Dst)
		}
	}
	return temps
}
