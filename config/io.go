package config

import (
	"github.com/BurntSushi/toml"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/values"
)

// IOSection is io.toml's [io] table: the driver name, its validated
// construction params, the per-address safe-state table applied on a
// SafeHalt, and the concrete addresses this bundle binds each
// AT %I*/%Q*/%M* wildcard declaration to (§3.4, §6.2).
type IOSection struct {
	Driver    string         `toml:"driver"`
	Params    map[string]any `toml:"params"`
	SafeState map[string]any `toml:"safe_state"` // address text -> literal value
	Wildcards map[string]any `toml:"wildcards"`  // declared var name -> concrete %-address
}

// IOBundle is the full decoded io.toml.
type IOBundle struct {
	IO IOSection `toml:"io"`
}

// LoadIOBundle strictly decodes path into an IOBundle.
func LoadIOBundle(path string) (IOBundle, error) {
	var bundle IOBundle
	md, err := toml.DecodeFile(path, &bundle)
	if err != nil {
		return IOBundle{}, errs.Wrap(errs.KindInvalidConfig, err, "decode io bundle %q", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return IOBundle{}, errs.New(errs.KindInvalidConfig, "io bundle %q has unrecognized keys: %v", path, undecoded)
	}
	return bundle, nil
}

// WildcardAddresses returns the bundle's declared-var-name -> address
// bindings as strings, rejecting any non-string value.
func (b IOBundle) WildcardAddresses() (map[string]string, error) {
	out := make(map[string]string, len(b.IO.Wildcards))
	for name, v := range b.IO.Wildcards {
		s, ok := v.(string)
		if !ok {
			return nil, errs.New(errs.KindInvalidConfig, "wildcard binding %q must be a string address, got %T", name, v)
		}
		out[name] = s
	}
	return out, nil
}

// SafeStateValues decodes the bundle's safe_state table into
// address -> values.Value pairs, the shape ioimage.Image.ApplySafeState
// consumes. Only the scalar literal shapes a TOML table can hold are
// supported: bool, int64, float64, and string (read as a STRING value).
func (b IOBundle) SafeStateValues() (map[string]values.Value, error) {
	out := make(map[string]values.Value, len(b.IO.SafeState))
	for addr, raw := range b.IO.SafeState {
		v, err := values.FromLiteral(raw)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidConfig, err, "safe_state entry %q", addr)
		}
		out[addr] = v
	}
	return out, nil
}

// ResolveWildcards binds every one of reqs against the bundle's
// [io].wildcards table and fails if any is left unbound, implementing the
// "configuration supplies the concrete address before the first cycle"
// contract of §3.4. Each element of reqs is mutated in place via
// ir.ResolveWildcard.
func (b IOBundle) ResolveWildcards(reqs []ir.WildcardRequirement) error {
	addrs, err := b.WildcardAddresses()
	if err != nil {
		return err
	}
	for i := range reqs {
		addr, ok := addrs[reqs[i].VarName]
		if !ok {
			continue
		}
		if err := ir.ResolveWildcard(&reqs[i], addr); err != nil {
			return err
		}
	}
	return ir.CheckWildcardsResolved(reqs)
}
