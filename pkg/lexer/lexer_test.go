package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dvoyaz-lang/dvoyaz/pkg/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := New(src).Tokenize()
	require.NoError(t, err)
	return toks
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestNextToken_Delimiters(t *testing.T) {
	toks := tokenize(t, `( ) { } [ ] , . : ;`)
	require.Equal(t, []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACKET, token.RBRACKET, token.COMMA, token.DOT,
		token.COLON, token.SEMICOLON, token.EOF,
	}, kinds(toks))
}

func TestNextToken_Operators_GreedyLongestMatch(t *testing.T) {
	toks := tokenize(t, `== != <= >= -> => ** |> .. :: += -= && || < > = + - * / %`)
	require.Equal(t, []token.Kind{
		token.EQ, token.NE, token.LE, token.GE, token.ARROW, token.FAT_ARROW,
		token.POWER, token.PIPE, token.RANGE, token.DOUBLE_COLON,
		token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.AND, token.OR,
		token.LT, token.GT, token.ASSIGN, token.PLUS, token.MINUS,
		token.STAR, token.SLASH, token.PERCENT, token.EOF,
	}, kinds(toks))
}

func TestNextToken_BilingualKeywords(t *testing.T) {
	tests := []struct {
		en, ru string
		kind   token.Kind
	}{
		{"let", "пусть", token.LET},
		{"fun", "функ", token.FUN},
		{"if", "если", token.IF},
		{"else", "иначе", token.ELSE},
		{"while", "пока", token.WHILE},
		{"class", "класс", token.CLASS},
		{"return", "вернуть", token.RETURN},
		{"match", "разбор", token.MATCH},
		{"new", "новый", token.NEW},
		{"self", "себя", token.SELF},
	}
	for _, tt := range tests {
		en := tokenize(t, tt.en)
		ru := tokenize(t, tt.ru)
		require.Equal(t, tt.kind, en[0].Kind, "english %q", tt.en)
		require.Equal(t, tt.kind, ru[0].Kind, "russian %q", tt.ru)
	}
}

func TestNextToken_IdentifierMixingAsciiAndCyrillic(t *testing.T) {
	toks := tokenize(t, `имя_х1 total_сумма`)
	require.Equal(t, token.IDENTIFIER, toks[0].Kind)
	require.Equal(t, "имя_х1", toks[0].Lexeme)
	require.Equal(t, token.IDENTIFIER, toks[1].Kind)
}

func TestNextToken_WildcardVersusIdentifier(t *testing.T) {
	toks := tokenize(t, `_ _x`)
	require.Equal(t, token.UNDERSCORE, toks[0].Kind)
	require.Equal(t, token.IDENTIFIER, toks[1].Kind)
	require.Equal(t, "_x", toks[1].Lexeme)
}

func TestNextToken_Numbers(t *testing.T) {
	toks := tokenize(t, `42 3.14 7.`)
	require.Equal(t, token.INTEGER, toks[0].Kind)
	require.Equal(t, token.FLOAT, toks[1].Kind)
	require.Equal(t, "3.14", toks[1].Lexeme)
	// A '.' not followed by a digit is not part of the number: "7" then DOT.
	require.Equal(t, token.INTEGER, toks[2].Kind)
	require.Equal(t, "7", toks[2].Lexeme)
	require.Equal(t, token.DOT, toks[3].Kind)
}

func TestNextToken_StringEscapes(t *testing.T) {
	toks := tokenize(t, `"a\nb\t\"c\""`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, "a\nb\t\"c\"", toks[0].Lexeme)
}

func TestNextToken_UnterminatedStringIsFatal(t *testing.T) {
	_, err := New(`"abc`).Tokenize()
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, 1, lexErr.Line)
	require.Equal(t, 1, lexErr.Column)
}

func TestNextToken_LineAndNestedBlockComments(t *testing.T) {
	toks := tokenize(t, "1 // comment\n2 /* outer /* inner */ still */ 3")
	require.Equal(t, []token.Kind{token.INTEGER, token.INTEGER, token.INTEGER, token.EOF}, kinds(toks))
}

func TestNextToken_LineColumnTracking(t *testing.T) {
	toks := tokenize(t, "x\ny")
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, 2, toks[1].Line)
}
