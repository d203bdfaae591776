package contentstream

import (
	"strings"
	"unicode/utf16"
)

// ShowsText reports whether op paints glyphs.
func ShowsText(op Operation) bool {
	switch op.Operator {
	case "Tj", "TJ", "'", "\"":
		return true
	}
	return false
}

// Text returns the text painted by the text-showing operators in ops. Each
// BT block starts a new line. Bytes are decoded as UTF-16BE when they carry a
// byte order mark and passed through otherwise.
func Text(ops []Operation) string {
	var out strings.Builder
	for _, op := range ops {
		switch op.Operator {
		case "BT", "T*":
			if out.Len() > 0 {
				out.WriteByte('\n')
			}
		case "Tj", "'", "\"":
			if len(op.Operands) == 0 {
				continue
			}
			if s, ok := op.Operands[len(op.Operands)-1].(StringOperand); ok {
				out.WriteString(decodeTextBytes(s.Value))
			}
		case "TJ":
			if len(op.Operands) == 0 {
				continue
			}
			arr, ok := op.Operands[len(op.Operands)-1].(ArrayOperand)
			if !ok {
				continue
			}
			for _, item := range arr.Values {
				if s, ok := item.(StringOperand); ok {
					out.WriteString(decodeTextBytes(s.Value))
				}
			}
		}
	}
	return strings.TrimSpace(out.String())
}

// ExtractText parses a content stream and returns its painted text.
func ExtractText(data []byte) (string, error) {
	ops, err := Parse(data)
	if err != nil {
		return "", err
	}
	return Text(ops), nil
}

func decodeTextBytes(data []byte) string {
	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		return decodeUTF16BE(data[2:])
	}
	return string(data)
}

func decodeUTF16BE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	buf := make([]uint16, len(data)/2)
	for i := range buf {
		buf[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return string(utf16.Decode(buf))
}
