package tac

import (
	"fmt"

	"github.com/xplshn/ttc/pkg/ast"
	"github.com/xplshn/ttc/pkg/util"
)

// InvariantWellFormed is reported when the syntax tree handed to the
// generator has nil or unknown nodes.
const InvariantWellFormed = "well-formed-tree"

// NameGen hands out tmp.0, tmp.1, ... and is never shared between
// compilations.
type NameGen struct{ next int }

func (g *NameGen) Fresh() Var {
	v := Var{Name: fmt.Sprintf("tmp.%d", g.next)}
	g.next++
	return v
}

type Generator struct {
	names  NameGen
	instrs []Instr
}

func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) Generate(prog *ast.Program) *Program {
	if prog == nil || prog.Function == nil {
		util.ICE(InvariantWellFormed, "program has no function")
	}
	return &Program{Function: g.EmitFunction(prog.Function)}
}

// EmitFunction lowers one function. The body's final instruction is always
// the Return that ends it.
func (g *Generator) EmitFunction(fn *ast.Function) Function {
	if fn == nil {
		util.ICE(InvariantWellFormed, "nil function")
	}
	g.instrs = nil
	g.emitStmt(fn.Body)
	return Function{Name: fn.Name, Instrs: g.instrs}
}

func (g *Generator) emitStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Return:
		if s == nil {
			util.ICE(InvariantWellFormed, "nil return statement")
		}
		val := g.emitExpr(s.Expr)
		g.instrs = append(g.instrs, Return{Val: val})
	default:
		util.ICE(InvariantWellFormed, "unexpected statement %T", s)
	}
}

// emitExpr lowers the operand before the operator, so temporaries are
// numbered innermost first.
func (g *Generator) emitExpr(e ast.Expr) Val {
	switch e := e.(type) {
	case *ast.Constant:
		if e == nil {
			util.ICE(InvariantWellFormed, "nil constant")
		}
		return Constant{Value: e.Value}
	case *ast.Unary:
		if e == nil {
			util.ICE(InvariantWellFormed, "nil unary expression")
		}
		src := g.emitExpr(e.Expr)
		dst := g.names.Fresh()
		g.instrs = append(g.instrs, Unary{Op: ConvertUnaryOp(e.Op), Src: src, Dst: dst})
		return dst
	default:
		util.ICE(InvariantWellFormed, "unexpected expression %T", e)
		return nil
	}
}

func ConvertUnaryOp(op ast.UnaryOp) UnaryOp {
	switch op {
	case ast.Negate:
		return Negate
	case ast.Complement:
		return Complement
	default:
		util.ICE(InvariantWellFormed, "unknown unary operator %v", op)
		return 0
	}
}
