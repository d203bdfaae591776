package contentstream

// Operand is a single operand of a content stream operator.
type Operand interface {
	Type() string
}

// NumberOperand is an integer or real operand.
type NumberOperand struct{ Value float64 }

func (NumberOperand) Type() string { return "number" }

// NameOperand is a name operand without its leading slash.
type NameOperand struct{ Value string }

func (NameOperand) Type() string { return "name" }

// StringOperand carries the decoded bytes of a literal or hex string.
type StringOperand struct {
	Value []byte
	Hex   bool
}

func (StringOperand) Type() string { return "string" }

// BoolOperand is true or false.
type BoolOperand struct{ Value bool }

func (BoolOperand) Type() string { return "boolean" }

// NullOperand is the null keyword.
type NullOperand struct{}

func (NullOperand) Type() string { return "null" }

// ArrayOperand holds nested operands.
type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) Type() string { return "array" }

// DictOperand holds a dictionary operand such as marked-content properties.
type DictOperand struct{ Values map[string]Operand }

func (DictOperand) Type() string { return "dict" }

// InlineImageOperand is the body of a BI ... ID ... EI sequence.
type InlineImageOperand struct {
	Params map[string]Operand
	Data   []byte
}

func (InlineImageOperand) Type() string { return "inline-image" }

// Operation is one operator together with the operands that preceded it.
type Operation struct {
	Operator string
	Operands []Operand
}

// Num is shorthand for a number operand.
func Num(v float64) NumberOperand { return NumberOperand{Value: v} }

// Name is shorthand for a name operand.
func Name(v string) NameOperand { return NameOperand{Value: v} }

// Str is shorthand for a literal string operand.
func Str(v string) StringOperand { return StringOperand{Value: []byte(v)} }

// Op builds an operation.
func Op(operator string, operands ...Operand) Operation {
	return Operation{Operator: operator, Operands: operands}
}
