package contentstream

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Encode serializes operations into content stream bytes, one operator per
// line.
func Encode(ops []Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		if op.Operator == "BI" && len(op.Operands) == 1 {
			if img, ok := op.Operands[0].(InlineImageOperand); ok {
				encodeInlineImage(&buf, img)
				continue
			}
		}
		for i, operand := range op.Operands {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.Write(EncodeOperand(operand))
		}
		if len(op.Operands) > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// EncodeOperand serializes a single operand.
func EncodeOperand(op Operand) []byte {
	switch v := op.(type) {
	case NumberOperand:
		return []byte(strconv.FormatFloat(v.Value, 'f', -1, 64))
	case NameOperand:
		return []byte("/" + nameLiteral(v.Value))
	case StringOperand:
		if v.Hex {
			return []byte("<" + strings.ToUpper(hex.EncodeToString(v.Value)) + ">")
		}
		return EscapeLiteralString(v.Value)
	case BoolOperand:
		return []byte(strconv.FormatBool(v.Value))
	case NullOperand:
		return []byte("null")
	case ArrayOperand:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, it := range v.Values {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.Write(EncodeOperand(it))
		}
		buf.WriteByte(']')
		return buf.Bytes()
	case DictOperand:
		var buf bytes.Buffer
		buf.WriteString("<<")
		writeDictEntries(&buf, v.Values)
		buf.WriteString(">>")
		return buf.Bytes()
	default:
		return []byte("null")
	}
}

func writeDictEntries(buf *bytes.Buffer, values map[string]Operand) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString("/" + nameLiteral(k) + " ")
		buf.Write(EncodeOperand(values[k]))
		buf.WriteByte(' ')
	}
}

func encodeInlineImage(buf *bytes.Buffer, img InlineImageOperand) {
	buf.WriteString("BI ")
	writeDictEntries(buf, img.Params)
	buf.WriteString("ID ")
	buf.Write(img.Data)
	buf.WriteString("\nEI\n")
}

// EscapeLiteralString renders raw bytes as a PDF literal string including the
// surrounding parentheses.
func EscapeLiteralString(rawBytes []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range rawBytes {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\b':
			b.WriteString("\\b")
		case '\f':
			b.WriteString("\\f")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}

func nameLiteral(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if ch > 0x20 && ch < 0x7f && !isDelimiter(ch) && ch != '#' {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "#%02X", ch)
	}
	return b.String()
}
