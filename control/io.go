package control

import (
	"bytes"
	"encoding/json"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/ioimage"
	"github.com/stplatform/stcore/values"
)

// ioParams is the params shape every io.* request type shares: the target
// is named either by its %-address or by the variable name it was bound
// under (ioimage.Image.Bind), and Value carries the literal for io.write/
// io.force.
type ioParams struct {
	Address string          `json:"address,omitempty"`
	Name    string          `json:"name,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

func decodeIOParams(raw json.RawMessage) (ioParams, error) {
	var p ioParams
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return ioParams{}, errs.Wrap(errs.KindControlError, err, "decode request params")
	}
	return p, nil
}

func resolveAddress(img *ioimage.Image, p ioParams) (ioimage.Address, error) {
	switch {
	case p.Address != "":
		return ioimage.Parse(p.Address)
	case p.Name != "":
		addr, ok := img.BoundAddress(p.Name)
		if !ok {
			return ioimage.Address{}, errs.New(errs.KindInvalidIoAddress, "no binding for name %q", p.Name)
		}
		return addr, nil
	default:
		return ioimage.Address{}, errs.New(errs.KindControlError, "request must set either address or name")
	}
}

// decodeLiteral turns a raw JSON value into a values.Value. JSON has no
// integer type of its own — encoding/json decodes every bare number into
// float64 when the target is interface{} — so an integral literal is
// recovered via json.Number before falling back to values.FromLiteral,
// which the config package's TOML-sourced safe_state decoding also uses
// for the int64/float64/bool/string shapes both formats produce natively.
func decodeLiteral(raw json.RawMessage) (values.Value, error) {
	if len(raw) == 0 {
		return nil, errs.New(errs.KindControlError, "request is missing a value")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tok any
	if err := dec.Decode(&tok); err != nil {
		return nil, errs.Wrap(errs.KindControlError, err, "decode literal value")
	}
	num, ok := tok.(json.Number)
	if !ok {
		return values.FromLiteral(tok)
	}
	if i, err := num.Int64(); err == nil {
		return values.FromLiteral(i)
	}
	f, err := num.Float64()
	if err != nil {
		return nil, errs.Wrap(errs.KindControlError, err, "decode numeric literal %q", num.String())
	}
	return values.FromLiteral(f)
}

func valueResult(addr ioimage.Address, v values.Value) map[string]any {
	return map[string]any{"address": addr.String(), "value": v.String()}
}

// RegisterIO wires the io.read/io.write/io.force/io.unforce/io.list
// request types of §6.3 against img, routing force/unforce through forces
// so a subsequent cycle's ForcingDriver reapplies them.
func RegisterIO(s *Server, img *ioimage.Image, forces *ForceTable) {
	s.Handle("io.read", func(raw json.RawMessage) (any, error) {
		p, err := decodeIOParams(raw)
		if err != nil {
			return nil, err
		}
		addr, err := resolveAddress(img, p)
		if err != nil {
			return nil, err
		}
		v, err := img.Read(addr)
		if err != nil {
			return nil, err
		}
		return valueResult(addr, v), nil
	})

	s.Handle("io.write", func(raw json.RawMessage) (any, error) {
		p, err := decodeIOParams(raw)
		if err != nil {
			return nil, err
		}
		addr, err := resolveAddress(img, p)
		if err != nil {
			return nil, err
		}
		v, err := decodeLiteral(p.Value)
		if err != nil {
			return nil, err
		}
		if err := img.Write(addr, v); err != nil {
			return nil, err
		}
		return valueResult(addr, v), nil
	})

	s.Handle("io.force", func(raw json.RawMessage) (any, error) {
		p, err := decodeIOParams(raw)
		if err != nil {
			return nil, err
		}
		addr, err := resolveAddress(img, p)
		if err != nil {
			return nil, err
		}
		v, err := decodeLiteral(p.Value)
		if err != nil {
			return nil, err
		}
		if err := img.Write(addr, v); err != nil {
			return nil, err
		}
		forces.Force(addr, v)
		return valueResult(addr, v), nil
	})

	s.Handle("io.unforce", func(raw json.RawMessage) (any, error) {
		p, err := decodeIOParams(raw)
		if err != nil {
			return nil, err
		}
		addr, err := resolveAddress(img, p)
		if err != nil {
			return nil, err
		}
		forces.Unforce(addr)
		return map[string]any{"address": addr.String()}, nil
	})

	s.Handle("io.list", func(raw json.RawMessage) (any, error) {
		forced := forces.List()
		out := make([]map[string]any, 0, len(forced))
		for addrText, v := range forced {
			out = append(out, map[string]any{"address": addrText, "value": v.String()})
		}
		return out, nil
	})
}
