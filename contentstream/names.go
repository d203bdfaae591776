package contentstream

// Names returns every name operand in ops, including names nested in arrays,
// dictionaries and inline image parameters.
func Names(ops []Operation) map[string]bool {
	out := make(map[string]bool)
	for _, op := range ops {
		for _, operand := range op.Operands {
			collectNames(operand, out)
		}
	}
	return out
}

func collectNames(op Operand, out map[string]bool) {
	switch v := op.(type) {
	case NameOperand:
		out[v.Value] = true
	case ArrayOperand:
		for _, item := range v.Values {
			collectNames(item, out)
		}
	case DictOperand:
		for _, item := range v.Values {
			collectNames(item, out)
		}
	case InlineImageOperand:
		for _, item := range v.Params {
			collectNames(item, out)
		}
	}
}
