package contentstream

import (
	"fmt"
)

// Handler receives operations dispatched by a Processor.
type Handler interface {
	Handle(op Operation) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(op Operation) error

func (f HandlerFunc) Handle(op Operation) error { return f(op) }

// Processor parses a content stream and dispatches each operator to the
// handler registered for it. Operators without a handler are skipped.
type Processor struct {
	handlers map[string]Handler
}

func NewProcessor() *Processor { return &Processor{handlers: make(map[string]Handler)} }

func (p *Processor) RegisterHandler(op string, h Handler) { p.handlers[op] = h }

// Process parses data and dispatches its operations in order. The first
// handler error stops processing.
func (p *Processor) Process(data []byte) error {
	ops, err := Parse(data)
	if err != nil {
		return err
	}
	return p.Dispatch(ops)
}

// Dispatch runs already parsed operations through the registered handlers.
func (p *Processor) Dispatch(ops []Operation) error {
	for i, op := range ops {
		h, ok := p.handlers[op.Operator]
		if !ok {
			continue
		}
		if err := h.Handle(op); err != nil {
			return fmt.Errorf("operator %s at %d: %w", op.Operator, i, err)
		}
	}
	return nil
}
