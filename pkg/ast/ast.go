// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"fmt"
	"strings"

	"github.com/xplshn/ttc/pkg/token"
)

// UnaryOp is a prefix operator applied to an expression
type UnaryOp int

const (
	Negate UnaryOp = iota
	Complement
)

func (op UnaryOp) String() string {
	switch op {
	case Negate:
		return "Negate"
	case Complement:
		return "Complement"
	default:
		return fmt.Sprintf("UnaryOp(%d)", int(op))
	}
}

// Program is the root of the tree: exactly one function definition
type Program struct {
	Function *Function
}

// Function is `int <Name>(void) { <Body> }`
type Function struct {
	Tok  token.Token
	Name string
	Body Stmt
}

// Stmt is implemented by every statement node
type Stmt interface {
	isStmt()
}

// Expr is implemented by every expression node
type Expr interface {
	isExpr()
}

type Return struct {
	Tok  token.Token
	Expr Expr
}

type Constant struct {
	Tok   token.Token
	Value int32
}

type Unary struct {
	Tok  token.Token
	Op   UnaryOp
	Expr Expr
}

func (*Return) isStmt() {}

func (*Constant) isExpr() {}
func (*Unary) isExpr()    {}

// String renders the tree one node per line, children indented under their parent
func (p *Program) String() string {
	var sb strings.Builder
	sb.WriteString("Program\n")
	if p.Function != nil {
		p.Function.write(&sb, 1)
	}
	return sb.String()
}

func indent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
}

func (f *Function) write(sb *strings.Builder, depth int) {
	indent(sb, depth)
	fmt.Fprintf(sb, "Function %s\n", f.Name)
	writeStmt(sb, f.Body, depth+1)
}

func writeStmt(sb *strings.Builder, s Stmt, depth int) {
	indent(sb, depth)
	switch s := s.(type) {
	case *Return:
		sb.WriteString("Return\n")
		writeExpr(sb, s.Expr, depth+1)
	default:
		fmt.Fprintf(sb, "<invalid statement %T>\n", s)
	}
}

func writeExpr(sb *strings.Builder, e Expr, depth int) {
	indent(sb, depth)
	switch e := e.(type) {
	case *Constant:
		fmt.Fprintf(sb, "Constant %d\n", e.Value)
	case *Unary:
		fmt.Fprintf(sb, "Unary %s\n", e.Op)
		writeExpr(sb, e.Expr, depth+1)
	default:
		fmt.Fprintf(sb, "<invalid expression %T>\n", e)
	}
}
