package pattern

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenParam
)

type token struct {
	kind     tokenKind
	text     string // literal text
	name     string // parameter name, empty for unnamed groups
	regex    string // custom inner regex, empty for the default
	modifier string // "", "*", "+" or "?"
	pos      int
}

type tokenizer struct {
	input string
	pos   int
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_'
}

// next returns the next token, or nil at the end of the input.
func (t *tokenizer) next() (*token, error) {
	if t.pos >= len(t.input) {
		return nil, nil
	}

	start := t.pos
	switch t.input[t.pos] {
	case ':':
		t.pos++
		name := t.consumeName()
		if name == "" {
			return nil, &Error{
				Pattern:  t.input,
				Position: start,
				Message:  "missing parameter name after ':'",
			}
		}

		rx, err := t.consumeGroup()
		if err != nil {
			return nil, err
		}

		return &token{
			kind:     tokenParam,
			name:     name,
			regex:    rx,
			modifier: t.consumeModifier(),
			pos:      start,
		}, nil
	case '(':
		rx, err := t.consumeGroup()
		if err != nil {
			return nil, err
		}

		return &token{
			kind:     tokenParam,
			regex:    rx,
			modifier: t.consumeModifier(),
			pos:      start,
		}, nil
	case ')':
		return nil, &Error{
			Pattern:  t.input,
			Position: start,
			Message:  "unbalanced ')' in pattern",
		}
	default:
		return &token{kind: tokenLiteral, text: t.consumeLiteral(), pos: start}, nil
	}
}

func (t *tokenizer) consumeName() string {
	start := t.pos
	for t.pos < len(t.input) && isNameChar(t.input[t.pos]) {
		t.pos++
	}

	return t.input[start:t.pos]
}

// consumeGroup reads a parenthesized custom regex, balancing nested groups.
// Returns the inner regex without the outer parentheses. Returns empty when
// the input does not start with '('.
func (t *tokenizer) consumeGroup() (string, error) {
	if t.pos >= len(t.input) || t.input[t.pos] != '(' {
		return "", nil
	}

	start := t.pos
	depth := 0
	for ; t.pos < len(t.input); t.pos++ {
		switch t.input[t.pos] {
		case '\\':
			t.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				inner := t.input[start+1 : t.pos]
				t.pos++
				return inner, nil
			}
		}
	}

	return "", &Error{
		Pattern:  t.input,
		Position: start,
		Message:  "unbalanced '(' in pattern",
	}
}

func (t *tokenizer) consumeModifier() string {
	if t.pos >= len(t.input) {
		return ""
	}

	switch t.input[t.pos] {
	case '*', '+', '?':
		m := t.input[t.pos : t.pos+1]
		t.pos++
		return m
	}

	return ""
}

func (t *tokenizer) consumeLiteral() string {
	start := t.pos
	for t.pos < len(t.input) {
		switch t.input[t.pos] {
		case ':', '(', ')':
			return t.input[start:t.pos]
		}
		t.pos++
	}

	return t.input[start:t.pos]
}
