// Package config loads the §6.2 runtime and I/O bundles: runtime.toml's
// [resource]/[runtime.control]/[runtime.web]/[runtime.discovery]/
// [runtime.mesh]/[runtime.log]/[runtime.retain]/[runtime.watchdog]/
// [runtime.fault] tables, and io.toml's driver/params/safe_state/wildcard
// tables — the file-backed analogue of the teacher's in-process Options
// struct (pe.Options). Strict decoding is github.com/BurntSushi/toml;
// env-var overrides on top of the decoded defaults are
// github.com/spf13/viper; io.toml hot-reload is github.com/fsnotify/fsnotify.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/runtime"
)

// EnvPrefix is the environment-variable prefix viper overlays onto every
// decoded key, e.g. STCORE_RESOURCE_NAME overrides [resource] name.
const EnvPrefix = "STCORE"

// ResourceSection is runtime.toml's [resource] table.
type ResourceSection struct {
	Name              string `toml:"name"`
	FaultPolicy       string `toml:"fault_policy"`   // "halt" | "safe_halt" | "restart"
	RestartMode       string `toml:"restart_mode"`   // "cold" | "warm"
	WatchdogMillis    int64  `toml:"watchdog_millis"` // 0 disables
	RetainMillis      int64  `toml:"retain_millis"`   // 0 disables periodic save
	BytecodePath      string `toml:"bytecode_path"`
	MinRuntimeVersion string `toml:"min_runtime_version"`
}

// WatchdogDuration converts WatchdogMillis to a time.Duration.
func (r ResourceSection) WatchdogDuration() time.Duration {
	return time.Duration(r.WatchdogMillis) * time.Millisecond
}

// RetainDuration converts RetainMillis to a time.Duration.
func (r ResourceSection) RetainDuration() time.Duration {
	return time.Duration(r.RetainMillis) * time.Millisecond
}

// ControlSection is [runtime.control]: the §6.3 JSON-line control socket.
type ControlSection struct {
	Network string `toml:"network"` // "tcp" | "unix"
	Address string `toml:"address"`
}

// WebSection is [runtime.web]: an optional HTTP status/diagnostics
// endpoint, out of scope for this core beyond its listen address.
type WebSection struct {
	ListenAddress string `toml:"listen_address"`
}

// DiscoverySection is [runtime.discovery]: how this runtime announces
// itself to an external fleet manager, out of scope beyond its config
// surface.
type DiscoverySection struct {
	Enabled bool   `toml:"enabled"`
	Beacon  string `toml:"beacon"`
}

// MeshSection is [runtime.mesh]: peer-resource coordination endpoints, out
// of scope beyond its config surface.
type MeshSection struct {
	Peers []string `toml:"peers"`
}

// LogSection is [runtime.log].
type LogSection struct {
	Level string `toml:"level"` // "debug" | "info" | "warn" | "error"
	Path  string `toml:"path"`  // empty means stdout
}

// RetainSection is [runtime.retain]: where RetainStore persists to.
type RetainSection struct {
	Path string `toml:"path"`
}

// WatchdogSection is [runtime.watchdog], layered under
// ResourceSection.WatchdogMillis so a bundle can set a fleet-wide default
// and override it per resource.
type WatchdogSection struct {
	DefaultMillis int64 `toml:"default_millis"`
}

// FaultSection is [runtime.fault]: logging behavior around a fault
// transition, distinct from the [resource].fault_policy that selects the
// transition itself and the per-address safe-state table that lives in
// io.toml (§6.2).
type FaultSection struct {
	LogLevel string `toml:"log_level"` // decoded as written; no default is filled in and no code in this module reads it
}

// RuntimeSection groups every [runtime.*] subtable under runtime.toml's
// top-level "runtime" key.
type RuntimeSection struct {
	Control   ControlSection   `toml:"control"`
	Web       WebSection       `toml:"web"`
	Discovery DiscoverySection `toml:"discovery"`
	Mesh      MeshSection      `toml:"mesh"`
	Log       LogSection       `toml:"log"`
	Retain    RetainSection    `toml:"retain"`
	Watchdog  WatchdogSection  `toml:"watchdog"`
	Fault     FaultSection     `toml:"fault"`
}

// RuntimeBundle is the full decoded runtime.toml.
type RuntimeBundle struct {
	Resource ResourceSection `toml:"resource"`
	Runtime  RuntimeSection  `toml:"runtime"`
}

// LoadRuntimeBundle strictly decodes path into a RuntimeBundle with
// BurntSushi/toml (rejecting unknown keys, the way the teacher's Options
// validation rejects unrecognized parse flags), then overlays any
// STCORE_-prefixed environment variable via viper.
func LoadRuntimeBundle(path string) (RuntimeBundle, error) {
	var bundle RuntimeBundle
	md, err := toml.DecodeFile(path, &bundle)
	if err != nil {
		return RuntimeBundle{}, errs.Wrap(errs.KindInvalidConfig, err, "decode runtime bundle %q", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return RuntimeBundle{}, errs.New(errs.KindInvalidConfig, "runtime bundle %q has unrecognized keys: %v", path, undecoded)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	applyEnvOverride(v, "RESOURCE_NAME", &bundle.Resource.Name)
	applyEnvOverride(v, "RESOURCE_FAULT_POLICY", &bundle.Resource.FaultPolicy)
	applyEnvOverride(v, "RESOURCE_RESTART_MODE", &bundle.Resource.RestartMode)
	applyEnvOverride(v, "LOG_LEVEL", &bundle.Runtime.Log.Level)
	applyEnvOverride(v, "CONTROL_ADDRESS", &bundle.Runtime.Control.Address)

	if bundle.Resource.WatchdogMillis == 0 {
		bundle.Resource.WatchdogMillis = bundle.Runtime.Watchdog.DefaultMillis
	}

	return bundle, nil
}

func applyEnvOverride(v *viper.Viper, key string, dst *string) {
	if val := v.GetString(key); val != "" {
		*dst = val
	}
}

// FaultPolicyValue maps the decoded fault_policy string to runtime.FaultPolicy.
func (r ResourceSection) FaultPolicyValue() (runtime.FaultPolicy, error) {
	switch r.FaultPolicy {
	case "", "halt":
		return runtime.FaultHalt, nil
	case "safe_halt":
		return runtime.FaultSafeHalt, nil
	case "restart":
		return runtime.FaultRestart, nil
	default:
		return 0, errs.New(errs.KindInvalidConfig, "unrecognized fault_policy %q", r.FaultPolicy)
	}
}

// RestartModeValue maps the decoded restart_mode string to
// runtime.RestartMode.
func (r ResourceSection) RestartModeValue() (runtime.RestartMode, error) {
	switch r.RestartMode {
	case "", "cold":
		return runtime.RestartCold, nil
	case "warm":
		return runtime.RestartWarm, nil
	default:
		return 0, errs.New(errs.KindInvalidConfig, "unrecognized restart_mode %q", r.RestartMode)
	}
}

// CheckMinRuntimeVersion reports the bundle's pinned minimum bytecode
// container version, if any. A caller checks it with
// bytecode.CompatibleVersion before trusting a loaded container's header —
// kept here rather than importing package bytecode directly, since nothing
// else in config needs that dependency.
func CheckMinRuntimeVersion(bundle RuntimeBundle) (string, bool) {
	return bundle.Resource.MinRuntimeVersion, bundle.Resource.MinRuntimeVersion != ""
}
