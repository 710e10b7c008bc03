package lexer

import (
	"io"
	"math"
	"os"
	"strconv"
	"unicode"

	"github.com/xplshn/ttc/pkg/config"
	"github.com/xplshn/ttc/pkg/token"
	"github.com/xplshn/ttc/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config

	// Warnings receives -W diagnostics. Defaults to os.Stderr.
	Warnings io.Writer
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
		Warnings: os.Stderr,
	}
}

// Tokenize runs the lexer to the end of input. The returned slice always ends
// with an EOF token.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var tokens []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) Next() (token.Token, error) {
	if err := l.skipTrivia(); err != nil {
		return token.Token{}, err
	}
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine), nil
	}

	ch := l.peek()
	if isIdentStart(ch) {
		return l.identifierOrKeyword(startPos, startCol, startLine), nil
	}
	if isDigit(ch) {
		return l.constant(startPos, startCol, startLine)
	}

	l.advance()
	switch ch {
	case '(':
		return l.makeToken(token.LParen, "", startPos, startCol, startLine), nil
	case ')':
		return l.makeToken(token.RParen, "", startPos, startCol, startLine), nil
	case '{':
		return l.makeToken(token.LBrace, "", startPos, startCol, startLine), nil
	case '}':
		return l.makeToken(token.RBrace, "", startPos, startCol, startLine), nil
	case ';':
		return l.makeToken(token.Semi, "", startPos, startCol, startLine), nil
	case '~':
		return l.makeToken(token.Complement, "", startPos, startCol, startLine), nil
	case '-':
		if l.match('-') {
			return l.makeToken(token.Dec, "", startPos, startCol, startLine), nil
		}
		return l.makeToken(token.Minus, "", startPos, startCol, startLine), nil
	}

	tok := l.makeToken(token.EOF, string(ch), startPos, startCol, startLine)
	return tok, util.NewDiagnostic(tok, "unexpected character '%c'", ch)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipTrivia() error {
	for !l.isAtEnd() {
		switch ch := l.peek(); {
		case unicode.IsSpace(ch):
			l.advance()
		case ch == '#' && l.column == 1 && l.cfg.IsFeatureEnabled(config.FeatLineMarkers):
			l.skipLine()
		case ch == '/' && l.peekNext() == '/' && l.cfg.IsFeatureEnabled(config.FeatLineComments):
			tok := l.makeToken(token.EOF, "", l.pos, l.column, l.line)
			tok.Len = 2
			util.Warn(l.cfg, config.WarnLineComments, l.Warnings, tok, "'//' comments are not allowed in %s", l.cfg.StdName)
			l.skipLine()
		case ch == '/' && l.peekNext() == '*' && l.cfg.IsFeatureEnabled(config.FeatBlockComments):
			if err := l.blockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) skipLine() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) blockComment() error {
	startTok := l.makeToken(token.EOF, "", l.pos, l.column, l.line)
	startTok.Len = 2
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
	return util.NewDiagnostic(startTok, "unterminated block comment")
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

// constant lexes a decimal integer constant. A constant that runs straight
// into identifier characters (`1foo`) is rejected.
func (l *Lexer) constant(startPos, startCol, startLine int) (token.Token, error) {
	for isDigit(l.peek()) {
		l.advance()
	}
	if isIdentPart(l.peek()) {
		for isIdentPart(l.peek()) {
			l.advance()
		}
		tok := l.makeToken(token.Constant, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
		return tok, util.NewDiagnostic(tok, "invalid constant '%s'", tok.Value)
	}

	tok := l.makeToken(token.Constant, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
	val, err := strconv.ParseUint(tok.Value, 10, 64)
	if err != nil {
		return tok, util.NewDiagnostic(tok, "integer constant '%s' is too large", tok.Value)
	}
	if val > math.MaxInt32 {
		util.Warn(l.cfg, config.WarnOverflow, l.Warnings, tok, "integer constant '%s' does not fit in 'int', truncated to %d", tok.Value, int32(val))
	}
	return tok, nil
}

// ConstantValue converts the text of a Constant token to its 32-bit value,
// wrapping values that do not fit.
func ConstantValue(tok token.Token) (int32, error) {
	val, err := strconv.ParseUint(tok.Value, 10, 64)
	if err != nil {
		return 0, util.NewDiagnostic(tok, "integer constant '%s' is too large", tok.Value)
	}
	return int32(val), nil
}

func isDigit(ch rune) bool      { return ch >= '0' && ch <= '9' }
func isIdentStart(ch rune) bool { return ch == '_' || unicode.IsLetter(ch) }
func isIdentPart(ch rune) bool  { return isIdentStart(ch) || unicode.IsDigit(ch) }
