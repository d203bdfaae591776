package raw

// Clone returns a deep copy of obj. References are passed through remap, which
// lets callers renumber objects while copying them between documents; a nil
// remap keeps references unchanged.
func Clone(obj Object, remap func(ObjectRef) ObjectRef) Object {
	switch v := obj.(type) {
	case nil:
		return nil
	case NameObj, NumberObj, BoolObj, NullObj:
		return v
	case StringObj:
		return StringObj{Bytes: append([]byte(nil), v.Bytes...), Hex: v.Hex}
	case RefObj:
		if remap == nil {
			return v
		}
		return RefObj{R: remap(v.R)}
	case *ArrayObj:
		out := &ArrayObj{Items: make([]Object, len(v.Items))}
		for i, item := range v.Items {
			out.Items[i] = Clone(item, remap)
		}
		return out
	case *DictObj:
		return cloneDict(v, remap)
	case *StreamObj:
		return &StreamObj{
			Dict: cloneDict(v.Dict, remap),
			Data: append([]byte(nil), v.Data...),
		}
	default:
		return obj
	}
}

func cloneDict(d *DictObj, remap func(ObjectRef) ObjectRef) *DictObj {
	if d == nil {
		return nil
	}
	out := &DictObj{KV: make(map[string]Object, len(d.KV))}
	for k, v := range d.KV {
		out.KV[k] = Clone(v, remap)
	}
	return out
}
