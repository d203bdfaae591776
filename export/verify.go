package export

import (
	"errors"
	"fmt"

	"github.com/OPWeb-ui/EZtify-sub000/contentstream"
	"github.com/OPWeb-ui/EZtify-sub000/ir/raw"
	"github.com/OPWeb-ui/EZtify-sub000/writer"
)

// verifyFlattened checks that an output page paints nothing but images.
func verifyFlattened(out *writer.Document, ref raw.ObjectRef) error {
	if res := out.PageResources(ref); res != nil {
		if _, ok := res.Lookup("Font"); ok {
			return errors.New("page resources declare fonts")
		}
	}
	content, err := out.PageContent(ref)
	if err != nil {
		return err
	}
	ops, err := contentstream.Parse(content)
	if err != nil {
		return err
	}
	for i, op := range ops {
		switch {
		case contentstream.ShowsText(op):
			return fmt.Errorf("operator %s at %d shows text", op.Operator, i)
		case op.Operator == "BT":
			return fmt.Errorf("text object at %d", i)
		}
	}
	return nil
}
