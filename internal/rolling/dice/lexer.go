package dice

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// exprLexer splits free-form chat text into roll tokens. Only Keyword, Dice
// and Modifier carry meaning; the remaining rules exist so any input lexes
// and non-roll text between tokens is skipped.
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `desvantagem|vantagem`},
	{Name: "Dice", Pattern: `[+-]?\d*d\d+`},
	{Name: "Modifier", Pattern: `[+-]\d+`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Other", Pattern: `.`},
})

type tokenKind int

const (
	tokenKeyword tokenKind = iota
	tokenDice
	tokenModifier
)

type token struct {
	kind  tokenKind
	value string
}

var (
	symKeyword  = exprLexer.Symbols()["Keyword"]
	symDice     = exprLexer.Symbols()["Dice"]
	symModifier = exprLexer.Symbols()["Modifier"]
)

// tokenize returns the meaningful tokens of s in input order.
//
// Precondition: s is lower-cased.
func tokenize(s string) ([]token, error) {
	lex, err := exprLexer.Lex("", strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("dice: lexing %q: %w", s, err)
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("dice: lexing %q: %w", s, err)
	}

	var out []token
	for _, t := range all {
		switch t.Type {
		case symKeyword:
			out = append(out, token{kind: tokenKeyword, value: t.Value})
		case symDice:
			out = append(out, token{kind: tokenDice, value: t.Value})
		case symModifier:
			out = append(out, token{kind: tokenModifier, value: t.Value})
		}
	}
	return out, nil
}
