package values

import (
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/types"
)

// FromLiteral converts a bare Go literal decoded from an external format
// (TOML, JSON) into a Value, used by the control and config packages to
// turn a wire/config literal into the typed value ioimage.Image and
// memory.Globals expect. Only the scalar shapes those decoders produce are
// supported: bool, int64, float64, and string.
func FromLiteral(raw any) (Value, error) {
	switch t := raw.(type) {
	case bool:
		return Bool{V: t}, nil
	case int64:
		return SInt{Width: 32, V: t}, nil
	case float64:
		return Float{Width: 64, V: t}, nil
	case string:
		return String{Type: types.IDString, V: t}, nil
	default:
		return nil, errs.New(errs.KindTypeMismatch, "unsupported literal type %T", raw)
	}
}
