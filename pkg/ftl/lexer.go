package ftl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// lexerRules tokenizes template source. Root covers literal text and the
// openers of interpolations and tags; Tag and Interp share the Expr rules and
// differ only in what closes them. A bare `>` ends a tag; inside parentheses
// or a hash literal it is an operator, so `<#if (a > b)>` works.
var lexerRules = lexer.Rules{
	"Root": {
		{Name: "Comment", Pattern: `(?s)<#--.*?-->`, Action: nil},
		{Name: "InterpStart", Pattern: `\$\{`, Action: lexer.Push("Interp")},
		{Name: "CloseDirective", Pattern: `</#[a-zA-Z_]+\s*>`, Action: nil},
		{Name: "CloseCall", Pattern: `</@[\w.]*\s*>`, Action: nil},
		{Name: "Directive", Pattern: `<#[a-zA-Z_]+`, Action: lexer.Push("Tag")},
		{Name: "Call", Pattern: `<@[a-zA-Z_][\w.]*`, Action: lexer.Push("Tag")},
		{Name: "Text", Pattern: `[^<$]+`, Action: nil},
		{Name: "Char", Pattern: `[<$]`, Action: nil},
	},
	"Tag": {
		{Name: "Whitespace", Pattern: `\s+`, Action: nil},
		{Name: "TagEmptyEnd", Pattern: `/>`, Action: lexer.Pop()},
		{Name: "TagEnd", Pattern: `>`, Action: lexer.Pop()},
		lexer.Include("Expr"),
	},
	"Interp": {
		{Name: "Whitespace", Pattern: `\s+`, Action: nil},
		{Name: "InterpEnd", Pattern: `\}`, Action: lexer.Pop()},
		lexer.Include("Expr"),
	},
	"Group": {
		{Name: "Whitespace", Pattern: `\s+`, Action: nil},
		{Name: "GroupEnd", Pattern: `[)}]`, Action: lexer.Pop()},
		lexer.Include("Expr"),
	},
	"Expr": {
		{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`, Action: nil},
		{Name: "Number", Pattern: `\d+(\.\d+)?`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "GroupStart", Pattern: `[({]`, Action: lexer.Push("Group")},
		{Name: "Op", Pattern: `\?\?|\.\.<|\.\.|==|!=|<=|>=|&&|\|\||[-+*/%!=<>.,:;\[\]?]`, Action: nil},
	},
}

var templateLexer = lexer.MustStateful(lexerRules)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokComment
	tokInterpStart
	tokInterpEnd
	tokCloseDirective
	tokCloseCall
	tokDirective
	tokCall
	tokText
	tokTagEnd
	tokTagEmptyEnd
	tokString
	tokNumber
	tokIdent
	tokOp
)

var tokenKinds = map[string]tokenKind{
	"Comment":        tokComment,
	"InterpStart":    tokInterpStart,
	"InterpEnd":      tokInterpEnd,
	"CloseDirective": tokCloseDirective,
	"CloseCall":      tokCloseCall,
	"Directive":      tokDirective,
	"Call":           tokCall,
	"Text":           tokText,
	"Char":           tokText,
	"TagEnd":         tokTagEnd,
	"TagEmptyEnd":    tokTagEmptyEnd,
	"String":         tokString,
	"Number":         tokNumber,
	"Ident":          tokIdent,
	"Op":             tokOp,
	"GroupStart":     tokOp,
	"GroupEnd":       tokOp,
}

type token struct {
	kind  tokenKind
	value string
	pos   Position
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of template"
	}
	return fmt.Sprintf("%q", t.value)
}

// tokenize runs the stateful lexer over src and returns the significant
// tokens, terminated by a tokEOF token.
func tokenize(name, src string) ([]token, error) {
	byType := make(map[lexer.TokenType]tokenKind)
	var whitespace lexer.TokenType
	for symbol, tt := range templateLexer.Symbols() {
		if symbol == "Whitespace" {
			whitespace = tt
			continue
		}
		if kind, ok := tokenKinds[symbol]; ok {
			byType[tt] = kind
		}
	}

	lex, err := templateLexer.Lex(name, strings.NewReader(src))
	if err != nil {
		return nil, err
	}

	var tokens []token
	for {
		t, err := lex.Next()
		if err != nil {
			return nil, lexError(name, err)
		}
		pos := Position{Line: t.Pos.Line, Column: t.Pos.Column}
		if t.EOF() {
			tokens = append(tokens, token{kind: tokEOF, pos: pos})
			return tokens, nil
		}
		if t.Type == whitespace {
			continue
		}
		kind, ok := byType[t.Type]
		if !ok {
			return nil, &ParseError{Template: name, Pos: pos, Msg: fmt.Sprintf("unexpected input %q", t.Value)}
		}
		tokens = append(tokens, token{kind: kind, value: t.Value, pos: pos})
	}
}

func lexError(name string, err error) error {
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		return &ParseError{
			Template: name,
			Pos:      Position{Line: lexErr.Pos.Line, Column: lexErr.Pos.Column},
			Msg:      lexErr.Msg,
		}
	}
	return &ParseError{Template: name, Msg: err.Error()}
}
