package lexer

import (
	"gem/internal/token"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination; 0 means EOF
}

func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	switch l.ch {
	case '=':
		tok = l.handleCompoundToken(token.ASSIGN, '=', token.EQ)
	case '!':
		if l.peekChar() == '=' {
			start := l.position
			l.readChar()
			tok = token.Token{Type: token.NOT_EQ, Literal: "!=", Position: start}
		} else {
			tok = newToken(token.ILLEGAL, l.ch, l.position)
		}
	case '<':
		tok = l.handleCompoundToken(token.LT, '=', token.LT_EQ)
	case '>':
		tok = l.handleCompoundToken(token.GT, '=', token.GT_EQ)
	case '+':
		tok = newToken(token.PLUS, l.ch, l.position)
	case '-':
		tok = newToken(token.MINUS, l.ch, l.position)
	case '*':
		tok = newToken(token.ASTERISK, l.ch, l.position)
	case '/':
		tok = newToken(token.SLASH, l.ch, l.position)
	case '.':
		tok = newToken(token.PERIOD, l.ch, l.position)
	case ',':
		tok = newToken(token.COMMA, l.ch, l.position)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, l.position)
	case '(':
		tok = newToken(token.LPAREN, l.ch, l.position)
	case ')':
		tok = newToken(token.RPAREN, l.ch, l.position)
	case '{':
		tok = newToken(token.LBRACE, l.ch, l.position)
	case '}':
		tok = newToken(token.RBRACE, l.ch, l.position)
	case '[':
		tok = newToken(token.LBRACKET, l.ch, l.position)
	case ']':
		tok = newToken(token.RBRACKET, l.ch, l.position)
	case '"':
		tok.Type = token.STRING
		tok.Position = l.position
		tok.Literal = l.readString()
	case 0:
		tok.Literal = ""
		tok.Type = token.EOF
		tok.Position = l.position
	default:
		if isLetter(l.ch) || l.ch == '~' {
			tok.Position = l.position
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			tok.Position = l.position
			tok.Literal = l.readNumber()
			tok.Type = token.NUMBER
			return tok
		}
		tok = newToken(token.ILLEGAL, l.ch, l.position)
	}

	l.readChar()
	return tok
}

func (l *Lexer) handleCompoundToken(
	t token.TokenType,
	ch1 rune,
	t1 token.TokenType,
) token.Token {
	startPosition := l.position
	if l.peekChar() == ch1 {
		first := l.ch
		l.readChar()
		literal := string(first) + string(l.ch)
		return token.Token{Type: t1, Literal: literal, Position: startPosition}
	}
	return newToken(t, l.ch, startPosition)
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '/':
			if l.peekChar() == '/' {
				l.skipToLineEnd()
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// readChar advances by one UTF-8 rune, updating byte positions
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

// peekChar returns the next rune without advancing; returns 0 at EOF
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// readIdentifier returns the substring (bytes) covering the identifier runes.
// A leading '~' is allowed so that reserved member names like ~init and
// ~display lex as ordinary identifiers.
func (l *Lexer) readIdentifier() string {
	start := l.position
	if l.ch == '~' {
		l.readChar()
	}
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads a decimal literal with an optional fractional part
func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position]
}

func (l *Lexer) readString() string {
	start := l.readPosition
	for {
		l.readChar()
		if l.ch == '"' || l.ch == 0 {
			break
		}
	}
	return l.input[start:l.position]
}

// Unicode-aware helpers
func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return unicode.IsDigit(ch)
}

func newToken(tokenType token.TokenType, ch rune, position int) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Position: position}
}
