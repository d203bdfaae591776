package contentstream

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed reports a content stream that cannot be tokenized.
var ErrMalformed = errors.New("contentstream: malformed content stream")

const maxNesting = 64

type lexer struct {
	data []byte
	pos  int
}

// Parse tokenizes a content stream into operations. Inline images are returned
// as a single BI operation carrying an InlineImageOperand.
func Parse(data []byte) ([]Operation, error) {
	lx := &lexer{data: data}
	var ops []Operation
	var operands []Operand
	for {
		lx.skipSpace()
		if lx.eof() {
			break
		}
		if kw, ok := lx.keyword(); ok {
			switch kw {
			case "true", "false":
				operands = append(operands, BoolOperand{Value: kw == "true"})
				continue
			case "null":
				operands = append(operands, NullOperand{})
				continue
			case "BI":
				img, err := lx.inlineImage()
				if err != nil {
					return nil, err
				}
				ops = append(ops, Operation{Operator: "BI", Operands: []Operand{img}})
				operands = nil
				continue
			}
			ops = append(ops, Operation{Operator: kw, Operands: operands})
			operands = nil
			continue
		}
		operand, err := lx.value(0)
		if err != nil {
			return nil, err
		}
		operands = append(operands, operand)
	}
	if len(operands) > 0 {
		return nil, fmt.Errorf("%w: %d trailing operands without operator", ErrMalformed, len(operands))
	}
	return ops, nil
}

func (lx *lexer) eof() bool { return lx.pos >= len(lx.data) }

func (lx *lexer) skipSpace() {
	for !lx.eof() {
		ch := lx.data[lx.pos]
		if isSpace(ch) {
			lx.pos++
			continue
		}
		if ch == '%' {
			for !lx.eof() && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
			continue
		}
		return
	}
}

// keyword consumes a run of regular characters that is not a number.
func (lx *lexer) keyword() (string, bool) {
	ch := lx.data[lx.pos]
	if isDelimiter(ch) || isNumberStart(ch) {
		return "", false
	}
	start := lx.pos
	for !lx.eof() && !isSpace(lx.data[lx.pos]) && !isDelimiter(lx.data[lx.pos]) {
		lx.pos++
	}
	return string(lx.data[start:lx.pos]), true
}

func (lx *lexer) value(depth int) (Operand, error) {
	if depth > maxNesting {
		return nil, fmt.Errorf("%w: nesting too deep", ErrMalformed)
	}
	lx.skipSpace()
	if lx.eof() {
		return nil, fmt.Errorf("%w: unexpected end of stream", ErrMalformed)
	}
	ch := lx.data[lx.pos]
	switch {
	case ch == '/':
		return lx.name(), nil
	case ch == '(':
		return lx.literalString()
	case ch == '<':
		if lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '<' {
			return lx.dict(depth)
		}
		return lx.hexString()
	case ch == '[':
		return lx.array(depth)
	case isNumberStart(ch):
		return lx.number()
	case isDelimiter(ch):
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformed, ch, lx.pos)
	}
	kw, _ := lx.keyword()
	switch kw {
	case "true", "false":
		return BoolOperand{Value: kw == "true"}, nil
	case "null":
		return NullOperand{}, nil
	}
	return nil, fmt.Errorf("%w: operator %q inside operand", ErrMalformed, kw)
}

func (lx *lexer) name() NameOperand {
	lx.pos++ // '/'
	var b []byte
	for !lx.eof() {
		ch := lx.data[lx.pos]
		if isSpace(ch) || isDelimiter(ch) {
			break
		}
		if ch == '#' && lx.pos+2 < len(lx.data) {
			if v, err := strconv.ParseUint(string(lx.data[lx.pos+1:lx.pos+3]), 16, 8); err == nil {
				b = append(b, byte(v))
				lx.pos += 3
				continue
			}
		}
		b = append(b, ch)
		lx.pos++
	}
	return NameOperand{Value: string(b)}
}

func (lx *lexer) number() (Operand, error) {
	start := lx.pos
	lx.pos++
	for !lx.eof() {
		ch := lx.data[lx.pos]
		if (ch >= '0' && ch <= '9') || ch == '.' {
			lx.pos++
			continue
		}
		break
	}
	text := string(lx.data[start:lx.pos])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if text == "-" || text == "+" || text == "." {
			return NumberOperand{}, nil
		}
		return nil, fmt.Errorf("%w: bad number %q", ErrMalformed, text)
	}
	return NumberOperand{Value: v}, nil
}

func (lx *lexer) literalString() (Operand, error) {
	lx.pos++ // '('
	depth := 1
	var out []byte
	for !lx.eof() {
		ch := lx.data[lx.pos]
		lx.pos++
		switch ch {
		case '(':
			depth++
			out = append(out, ch)
		case ')':
			depth--
			if depth == 0 {
				return StringOperand{Value: out}, nil
			}
			out = append(out, ch)
		case '\\':
			if lx.eof() {
				return nil, fmt.Errorf("%w: dangling escape", ErrMalformed)
			}
			esc := lx.data[lx.pos]
			lx.pos++
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if !lx.eof() && lx.data[lx.pos] == '\n' {
					lx.pos++
				}
			case '\n':
			default:
				if esc >= '0' && esc <= '7' {
					v := int(esc - '0')
					for i := 0; i < 2 && !lx.eof() && lx.data[lx.pos] >= '0' && lx.data[lx.pos] <= '7'; i++ {
						v = v*8 + int(lx.data[lx.pos]-'0')
						lx.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, esc)
				}
			}
		default:
			out = append(out, ch)
		}
	}
	return nil, fmt.Errorf("%w: unterminated string", ErrMalformed)
}

func (lx *lexer) hexString() (Operand, error) {
	lx.pos++ // '<'
	end := bytes.IndexByte(lx.data[lx.pos:], '>')
	if end < 0 {
		return nil, fmt.Errorf("%w: unterminated hex string", ErrMalformed)
	}
	digits := make([]byte, 0, end)
	for _, ch := range lx.data[lx.pos : lx.pos+end] {
		if !isSpace(ch) {
			digits = append(digits, ch)
		}
	}
	lx.pos += end + 1
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return StringOperand{Value: out, Hex: true}, nil
}

func (lx *lexer) array(depth int) (Operand, error) {
	lx.pos++ // '['
	arr := ArrayOperand{}
	for {
		lx.skipSpace()
		if lx.eof() {
			return nil, fmt.Errorf("%w: unterminated array", ErrMalformed)
		}
		if lx.data[lx.pos] == ']' {
			lx.pos++
			return arr, nil
		}
		item, err := lx.value(depth + 1)
		if err != nil {
			return nil, err
		}
		arr.Values = append(arr.Values, item)
	}
}

func (lx *lexer) dict(depth int) (Operand, error) {
	lx.pos += 2 // '<<'
	values, err := lx.dictEntries(depth, func() bool {
		if lx.pos+1 < len(lx.data) && lx.data[lx.pos] == '>' && lx.data[lx.pos+1] == '>' {
			lx.pos += 2
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return DictOperand{Values: values}, nil
}

func (lx *lexer) dictEntries(depth int, atEnd func() bool) (map[string]Operand, error) {
	values := make(map[string]Operand)
	for {
		lx.skipSpace()
		if lx.eof() {
			return nil, fmt.Errorf("%w: unterminated dictionary", ErrMalformed)
		}
		if atEnd() {
			return values, nil
		}
		if lx.data[lx.pos] != '/' {
			return nil, fmt.Errorf("%w: dictionary key is not a name", ErrMalformed)
		}
		key := lx.name()
		val, err := lx.value(depth + 1)
		if err != nil {
			return nil, err
		}
		values[key.Value] = val
	}
}

// inlineImage reads the parameters and data of an inline image after BI.
func (lx *lexer) inlineImage() (Operand, error) {
	params, err := lx.dictEntries(0, func() bool {
		if lx.pos+1 < len(lx.data) && lx.data[lx.pos] == 'I' && lx.data[lx.pos+1] == 'D' &&
			(lx.pos+2 == len(lx.data) || isSpace(lx.data[lx.pos+2])) {
			lx.pos += 2
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if !lx.eof() {
		lx.pos++ // single whitespace after ID
	}
	start := lx.pos
	for i := start; i+1 < len(lx.data); i++ {
		if lx.data[i] != 'E' || lx.data[i+1] != 'I' {
			continue
		}
		if i > start && !isSpace(lx.data[i-1]) {
			continue
		}
		if i+2 < len(lx.data) && !isSpace(lx.data[i+2]) && !isDelimiter(lx.data[i+2]) {
			continue
		}
		end := i
		if end > start && isSpace(lx.data[end-1]) {
			end--
		}
		lx.pos = i + 2
		return InlineImageOperand{Params: params, Data: append([]byte(nil), lx.data[start:end]...)}, nil
	}
	return nil, fmt.Errorf("%w: inline image without EI", ErrMalformed)
}

func isSpace(ch byte) bool {
	switch ch {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isNumberStart(ch byte) bool {
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+' || ch == '.'
}
