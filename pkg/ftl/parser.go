package ftl

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse compiles template source into a Template without resolving
// includes or imports. Syntax errors are returned as *ParseError.
func Parse(name, src string) (*Template, error) {
	tokens, err := tokenize(name, src)
	if err != nil {
		return nil, err
	}

	p := &parser{name: name, tokens: tokens}
	nodes, err := p.parseBody()
	if err != nil {
		return nil, err
	}

	tpl := &Template{Name: name, Source: src, Root: nodes}
	for _, n := range nodes {
		switch def := n.(type) {
		case *MacroNode:
			tpl.macros = append(tpl.macros, def)
		case *FunctionNode:
			tpl.functions = append(tpl.functions, def)
		}
	}
	return tpl, nil
}

type parser struct {
	name   string
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) token {
	if i := p.pos + offset; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() token {
	t := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &ParseError{Template: p.name, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.value == op
}

func (p *parser) acceptOp(op string) bool {
	if p.isOp(op) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectOp(op string) error {
	if t := p.peek(); !p.acceptOp(op) {
		return p.errorf(t, "expected %q, found %s", op, t)
	}
	return nil
}

func (p *parser) acceptIdent(word string) bool {
	if t := p.peek(); t.kind == tokIdent && t.value == word {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectIdent() (string, error) {
	t := p.next()
	if t.kind != tokIdent {
		return "", p.errorf(t, "expected a name, found %s", t)
	}
	return t.value, nil
}

// expectName accepts an identifier or a quoted string (macro names may be
// quoted).
func (p *parser) expectName() (string, error) {
	if t := p.peek(); t.kind == tokString {
		p.next()
		return unescape(t.value[1 : len(t.value)-1]), nil
	}
	return p.expectIdent()
}

// expectTagEnd consumes `>` or `/>` and reports whether the tag was
// self-closing.
func (p *parser) expectTagEnd() (bool, error) {
	t := p.next()
	switch t.kind {
	case tokTagEnd:
		return false, nil
	case tokTagEmptyEnd:
		return true, nil
	}
	return false, p.errorf(t, "expected end of tag, found %s", t)
}

func (p *parser) atTagEnd() bool {
	k := p.peek().kind
	return k == tokTagEnd || k == tokTagEmptyEnd || k == tokEOF
}

// tagKey identifies directive openers and closers: "#if", "/#if", "/@".
func tagKey(t token) string {
	switch t.kind {
	case tokDirective:
		return "#" + t.value[2:]
	case tokCloseDirective:
		return "/#" + strings.TrimSpace(strings.TrimSuffix(t.value[3:], ">"))
	case tokCloseCall:
		return "/@"
	}
	return ""
}

// parseBody parses nodes until EOF or until the next token is one of the
// closers, which is left unconsumed.
func (p *parser) parseBody(closers ...string) ([]Node, error) {
	nodes := []Node{}
	var text strings.Builder
	var textPos Position
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, &TextNode{nodeBase: nodeBase{textPos}, Text: text.String()})
			text.Reset()
		}
	}

	for {
		t := p.peek()
		switch t.kind {
		case tokEOF:
			if len(closers) > 0 {
				return nil, p.errorf(t, "unexpected end of template, expected one of %s", strings.Join(closers, ", "))
			}
			flush()
			return nodes, nil

		case tokText:
			if text.Len() == 0 {
				textPos = t.pos
			}
			text.WriteString(t.value)
			p.next()

		case tokComment:
			p.next()

		case tokInterpStart:
			flush()
			p.next()
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if end := p.next(); end.kind != tokInterpEnd {
				return nil, p.errorf(end, "expected \"}\", found %s", end)
			}
			nodes = append(nodes, &InterpolationNode{nodeBase: nodeBase{t.pos}, Expr: expr})

		case tokDirective, tokCloseDirective, tokCloseCall:
			key := tagKey(t)
			if containsString(closers, key) {
				flush()
				return nodes, nil
			}
			if key == "/#sep" {
				p.next()
				continue
			}
			if t.kind != tokDirective {
				return nil, p.errorf(t, "unexpected closing tag %s", t)
			}
			flush()
			node, err := p.parseDirective()
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, node)
			}

		case tokCall:
			flush()
			node, err := p.parseMacroCall()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)

		default:
			return nil, p.errorf(t, "unexpected %s", t)
		}
	}
}

//nolint:gocyclo // one case per directive
func (p *parser) parseDirective() (Node, error) {
	t := p.next()
	name := t.value[2:]
	base := nodeBase{t.pos}

	switch name {
	case "if":
		return p.parseIf(base)
	case "list":
		return p.parseList(base)
	case "assign", "global", "local":
		return p.parseAssign(base, name)
	case "macro", "function":
		return p.parseDefinition(base, name)
	case "switch":
		return p.parseSwitch(base)

	case "sep", "break", "nested", "recover":
		for !p.atTagEnd() {
			// <#nested> arguments are accepted but not bound
			if _, err := p.parseExpr(); err != nil {
				return nil, err
			}
			p.acceptOp(",")
		}
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		switch name {
		case "sep":
			return &SepNode{base}, nil
		case "break":
			return &BreakNode{base}, nil
		case "nested":
			return &NestedNode{base}, nil
		}
		return nil, p.errorf(t, "#recover without #attempt")

	case "return", "stop":
		var value Expr
		if !p.atTagEnd() {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			value = v
		}
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		if name == "stop" {
			return &StopNode{nodeBase: base, Message: value}, nil
		}
		return &ReturnNode{nodeBase: base, Value: value}, nil

	case "include":
		path, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		// options such as parse=false or encoding="..." are accepted and ignored
		for p.peek().kind == tokIdent && p.peekAt(1).kind == tokOp && p.peekAt(1).value == "=" {
			p.next()
			p.next()
			if _, err := p.parseExpr(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		return &IncludeNode{nodeBase: base, Path: path}, nil

	case "import":
		path, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.acceptIdent("as") {
			return nil, p.errorf(p.peek(), "expected \"as\" in #import")
		}
		ns, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		return &ImportNode{nodeBase: base, Path: path, Namespace: ns}, nil

	case "attempt":
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		body, err := p.parseBody("#recover")
		if err != nil {
			return nil, err
		}
		p.next()
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		recovered, err := p.parseBody("/#attempt")
		if err != nil {
			return nil, err
		}
		p.next()
		return &AttemptNode{nodeBase: base, Body: body, Recover: recovered}, nil

	case "compress":
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		body, err := p.parseBody("/#compress")
		if err != nil {
			return nil, err
		}
		p.next()
		return &CompressNode{nodeBase: base, Body: body}, nil

	case "ftl", "setting", "t", "lt", "rt", "nt", "flush":
		for !p.atTagEnd() {
			p.next()
		}
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return nil, p.errorf(t, "unknown directive #%s", name)
}

func (p *parser) parseIf(base nodeBase) (Node, error) {
	n := &IfNode{nodeBase: base}
	for {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		body, err := p.parseBody("#elseif", "#else", "/#if")
		if err != nil {
			return nil, err
		}
		n.Branches = append(n.Branches, CondBranch{Cond: cond, Body: body})

		switch tagKey(p.next()) {
		case "#elseif":
			continue
		case "#else":
			if _, err := p.expectTagEnd(); err != nil {
				return nil, err
			}
			elseBody, err := p.parseBody("/#if")
			if err != nil {
				return nil, err
			}
			p.next()
			n.Else = elseBody
		}
		return n, nil
	}
}

func (p *parser) parseList(base nodeBase) (Node, error) {
	source, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.acceptIdent("as") {
		return nil, p.errorf(p.peek(), "expected \"as\" in #list")
	}
	n := &ListNode{nodeBase: base, Source: source}
	if n.Item, err = p.expectIdent(); err != nil {
		return nil, err
	}
	if p.acceptOp(",") {
		if n.ValueVar, err = p.expectIdent(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expectTagEnd(); err != nil {
		return nil, err
	}
	if n.Body, err = p.parseBody("#else", "/#list"); err != nil {
		return nil, err
	}
	if tagKey(p.next()) == "#else" {
		if _, err := p.expectTagEnd(); err != nil {
			return nil, err
		}
		if n.Else, err = p.parseBody("/#list"); err != nil {
			return nil, err
		}
		p.next()
	}
	return n, nil
}

func (p *parser) parseAssign(base nodeBase, directive string) (Node, error) {
	n := &AssignNode{nodeBase: base}
	switch directive {
	case "global":
		n.Scope = ScopeGlobal
	case "local":
		n.Scope = ScopeLocal
	}

	for k := p.peek().kind; k == tokIdent || k == tokString; k = p.peek().kind {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if !p.acceptOp("=") {
			n.Targets = append(n.Targets, Assignment{Name: name})
			break
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Targets = append(n.Targets, Assignment{Name: name, Value: value})
		p.acceptOp(",")
	}

	end := p.peek()
	selfClosed, err := p.expectTagEnd()
	if err != nil {
		return nil, err
	}
	if len(n.Targets) == 0 {
		return nil, p.errorf(end, "#%s needs at least one name", directive)
	}

	if len(n.Targets) == 1 && n.Targets[0].Value == nil {
		if selfClosed {
			return nil, p.errorf(end, "#%s %s has no value", directive, n.Targets[0].Name)
		}
		if n.Capture, err = p.parseBody("/#" + directive); err != nil {
			return nil, err
		}
		p.next()
		return n, nil
	}
	for _, target := range n.Targets {
		if target.Value == nil {
			return nil, p.errorf(end, "#%s %s has no value", directive, target.Name)
		}
	}
	return n, nil
}

func (p *parser) parseDefinition(base nodeBase, directive string) (Node, error) {
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}

	var params []Param
	parens := p.acceptOp("(")
	for p.peek().kind == tokIdent {
		param := Param{Name: p.next().value}
		if p.acceptOp("=") {
			if param.Default, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}
		params = append(params, param)
		p.acceptOp(",")
	}
	if parens {
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expectTagEnd(); err != nil {
		return nil, err
	}

	body, err := p.parseBody("/#" + directive)
	if err != nil {
		return nil, err
	}
	p.next()

	if directive == "function" {
		return &FunctionNode{nodeBase: base, Name: name, Params: params, Body: body}, nil
	}
	return &MacroNode{nodeBase: base, Name: name, Params: params, Body: body}, nil
}

func (p *parser) parseSwitch(base nodeBase) (Node, error) {
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectTagEnd(); err != nil {
		return nil, err
	}
	closers := []string{"#case", "#default", "/#switch"}
	// anything before the first case is whitespace and dropped
	if _, err := p.parseBody(closers...); err != nil {
		return nil, err
	}

	n := &SwitchNode{nodeBase: base, Value: value}
	for {
		t := p.next()
		switch tagKey(t) {
		case "#case":
			var c SwitchCase
			for {
				v, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				c.Values = append(c.Values, v)
				if !p.acceptOp(",") {
					break
				}
			}
			if _, err := p.expectTagEnd(); err != nil {
				return nil, err
			}
			if c.Body, err = p.parseBody(closers...); err != nil {
				return nil, err
			}
			n.Cases = append(n.Cases, c)
		case "#default":
			if _, err := p.expectTagEnd(); err != nil {
				return nil, err
			}
			body, err := p.parseBody(closers...)
			if err != nil {
				return nil, err
			}
			n.Cases = append(n.Cases, SwitchCase{Default: true, Body: body})
		default:
			return n, nil
		}
	}
}

func (p *parser) parseMacroCall() (Node, error) {
	t := p.next()
	segments := strings.Split(t.value[2:], ".")
	var callee Expr = &Ident{nodeBase: nodeBase{t.pos}, Name: segments[0]}
	for _, seg := range segments[1:] {
		callee = &DotExpr{nodeBase: nodeBase{t.pos}, Target: callee, Name: seg}
	}
	n := &MacroCallNode{nodeBase: nodeBase{t.pos}, Callee: callee}

	for !p.atTagEnd() {
		if p.acceptOp(";") {
			// loop variable declarations for <#nested> values are not bound
			for !p.atTagEnd() {
				p.next()
			}
			break
		}
		if p.peek().kind == tokIdent && p.peekAt(1).kind == tokOp && p.peekAt(1).value == "=" {
			name := p.next().value
			p.next()
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n.Named = append(n.Named, NamedArg{Name: name, Value: value})
		} else {
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n.Positional = append(n.Positional, value)
		}
		p.acceptOp(",")
	}

	selfClosed, err := p.expectTagEnd()
	if err != nil {
		return nil, err
	}
	if !selfClosed {
		if n.Body, err = p.parseBody("/@"); err != nil {
			return nil, err
		}
		p.next()
	}
	return n, nil
}

// Expressions, lowest precedence first.

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isOp("||") {
		t := p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{nodeBase: nodeBase{t.pos}, Op: "||", L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.isOp("&&") {
		t := p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{nodeBase: nodeBase{t.pos}, Op: "&&", L: left, R: right}
	}
	return left, nil
}

var comparisonOps = map[string]string{
	"==": "==", "=": "==", "!=": "!=",
	"<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"lt": "<", "lte": "<=", "gt": ">", "gte": ">=",
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokOp && t.kind != tokIdent {
		return left, nil
	}
	op, ok := comparisonOps[t.value]
	if !ok {
		return left, nil
	}
	p.next()
	right, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{nodeBase: nodeBase{t.pos}, Op: op, L: left, R: right}, nil
}

func (p *parser) parseRange() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.isOp("..") || p.isOp("..<") {
		t := p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &RangeExpr{nodeBase: nodeBase{t.pos}, From: left, To: right, Exclusive: t.value == "..<"}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		t := p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{nodeBase: nodeBase{t.pos}, Op: t.value, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp("%") {
		t := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{nodeBase: nodeBase{t.pos}, Op: t.value, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.isOp("!") || p.isOp("-") {
		t := p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{nodeBase: nodeBase{t.pos}, Op: t.value, X: x}, nil
	}
	if p.acceptOp("+") {
		return p.parseUnary()
	}
	return p.parsePostfix()
}

var reservedWords = map[string]bool{"as": true, "lt": true, "lte": true, "gt": true, "gte": true, "using": true, "in": true}

// startsOperand reports whether the next token can begin the right-hand
// side of a default operator.
func (p *parser) startsOperand() bool {
	t := p.peek()
	switch t.kind {
	case tokString, tokNumber:
		return true
	case tokIdent:
		return !reservedWords[t.value]
	case tokOp:
		return t.value == "(" || t.value == "[" || t.value == "{"
	}
	return false
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return x, nil
		}
		base := nodeBase{t.pos}
		switch t.value {
		case ".":
			p.next()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			x = &DotExpr{nodeBase: base, Target: x, Name: name}
		case "[":
			p.next()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			x = &IndexExpr{nodeBase: base, Target: x, Key: key}
		case "(":
			p.next()
			args, err := p.parseArgs(")")
			if err != nil {
				return nil, err
			}
			x = &CallExpr{nodeBase: base, Fn: x, Args: args}
		case "?":
			p.next()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			b := &BuiltinExpr{nodeBase: base, Target: x, Name: name}
			if p.acceptOp("(") {
				if b.Args, err = p.parseArgs(")"); err != nil {
					return nil, err
				}
			}
			x = b
		case "??":
			p.next()
			x = &ExistsExpr{nodeBase: base, X: x}
		case "!":
			p.next()
			d := &DefaultExpr{nodeBase: base, X: x}
			if p.startsOperand() {
				if d.Default, err = p.parsePostfix(); err != nil {
					return nil, err
				}
			}
			x = d
		default:
			return x, nil
		}
	}
}

func (p *parser) parseArgs(closer string) ([]Expr, error) {
	args := []Expr{}
	if p.acceptOp(closer) {
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.acceptOp(",") {
			continue
		}
		return args, p.expectOp(closer)
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	base := nodeBase{t.pos}
	switch t.kind {
	case tokString:
		return p.parseStringLiteral(t)
	case tokNumber:
		f, err := strconv.ParseFloat(t.value, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number %s", t.value)
		}
		return &NumberLit{nodeBase: base, Value: f}, nil
	case tokIdent:
		switch t.value {
		case "true":
			return &BoolLit{nodeBase: base, Value: true}, nil
		case "false":
			return &BoolLit{nodeBase: base, Value: false}, nil
		}
		return &Ident{nodeBase: base, Name: t.value}, nil
	case tokOp:
		switch t.value {
		case "(":
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return &ParenExpr{nodeBase: base, X: x}, nil
		case "[":
			items, err := p.parseArgs("]")
			if err != nil {
				return nil, err
			}
			return &SequenceLit{nodeBase: base, Items: items}, nil
		case "{":
			return p.parseHashLiteral(base)
		}
	}
	return nil, p.errorf(t, "unexpected %s in expression", t)
}

func (p *parser) parseHashLiteral(base nodeBase) (Expr, error) {
	h := &HashLit{nodeBase: base}
	if p.acceptOp("}") {
		return h, nil
	}
	for {
		key, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(":"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		h.Keys = append(h.Keys, key)
		h.Values = append(h.Values, value)
		if p.acceptOp(",") {
			continue
		}
		return h, p.expectOp("}")
	}
}

// parseStringLiteral handles `"..."` and `'...'`, splitting out `${...}`
// interpolations into a TemplateString.
func (p *parser) parseStringLiteral(t token) (Expr, error) {
	raw := t.value[1 : len(t.value)-1]
	base := nodeBase{t.pos}
	if !strings.Contains(raw, "${") {
		return &StringLit{nodeBase: base, Value: unescape(raw)}, nil
	}

	ts := &TemplateString{nodeBase: base}
	var text strings.Builder
	for i := 0; i < len(raw); {
		switch {
		case raw[i] == '\\' && i+1 < len(raw):
			text.WriteString(raw[i : i+2])
			i += 2
		case strings.HasPrefix(raw[i:], "${"):
			end := matchingBrace(raw, i+2)
			if end < 0 {
				return nil, p.errorf(t, "unterminated ${ in string literal")
			}
			if text.Len() > 0 {
				ts.Parts = append(ts.Parts, unescape(text.String()))
				text.Reset()
			}
			inner, err := p.parseEmbedded(raw[i+2:end], t.pos)
			if err != nil {
				return nil, err
			}
			ts.Parts = append(ts.Parts, inner)
			i = end + 1
		default:
			text.WriteByte(raw[i])
			i++
		}
	}
	if text.Len() > 0 {
		ts.Parts = append(ts.Parts, unescape(text.String()))
	}
	return ts, nil
}

func (p *parser) parseEmbedded(src string, pos Position) (Expr, error) {
	src = strings.NewReplacer(`\"`, `"`, `\'`, `'`).Replace(src)
	tokens, err := tokenize(p.name, "${"+src+"}")
	if err != nil {
		return nil, err
	}
	for i := range tokens {
		tokens[i].pos = pos
	}
	sub := &parser{name: p.name, tokens: tokens}
	sub.next()
	expr, err := sub.parseExpr()
	if err != nil {
		return nil, err
	}
	if end := sub.next(); end.kind != tokInterpEnd {
		return nil, sub.errorf(end, "unexpected %s in string interpolation", end)
	}
	return expr, nil
}

// matchingBrace returns the index of the `}` closing an interpolation whose
// body starts at start, skipping quoted strings.
func matchingBrace(s string, start int) int {
	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

var escapes = map[byte]string{
	'n': "\n", 't': "\t", 'r': "\r", 'f': "\f", 'b': "\b",
	'"': `"`, '\'': "'", '\\': `\`, '$': "$", '{': "{", '}': "}",
	'l': "<", 'g': ">", 'a': "&",
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			if rep, ok := escapes[s[i+1]]; ok {
				b.WriteString(rep)
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
