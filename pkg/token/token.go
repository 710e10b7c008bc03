package token

type Type int

const (
	EOF Type = iota
	Ident
	Constant
	Int
	Void
	Return
	LParen
	RParen
	LBrace
	RBrace
	Semi
	Complement
	Minus
	Dec
)

var KeywordMap = map[string]Type{
	"int":    Int,
	"void":   Void,
	"return": Return,
}

var typeNames = [...]string{
	EOF:        "end of file",
	Ident:      "identifier",
	Constant:   "constant",
	Int:        "'int'",
	Void:       "'void'",
	Return:     "'return'",
	LParen:     "'('",
	RParen:     "')'",
	LBrace:     "'{'",
	RBrace:     "'}'",
	Semi:       "';'",
	Complement: "'~'",
	Minus:      "'-'",
	Dec:        "'--'",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown token"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}

// Describe renders the token the way diagnostics quote it.
func (t Token) Describe() string {
	switch t.Type {
	case Ident, Constant:
		return "'" + t.Value + "'"
	default:
		return t.Type.String()
	}
}
