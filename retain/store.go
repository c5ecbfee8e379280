package retain

import (
	"errors"
	"os"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/memory"
)

// recordSeparator joins a RetainEntry's Scope and Name into the single
// length-prefixed name field §6.5's record format describes. The record
// format itself only names "(name_len, name_bytes, value_encoding)" — it
// has no separate scope field — so Scope travels inside name_bytes,
// delimited by a byte (ASCII unit separator) that can never appear in
// either a scope tag ("global", "instance:<id>", "program:<name>") or a
// declared ST identifier.
const recordSeparator = '\x1f'

func qualifiedName(scope, name string) string {
	return scope + string(recordSeparator) + name
}

func splitQualifiedName(qualified string) (scope, name string, err error) {
	for i := 0; i < len(qualified); i++ {
		if qualified[i] == recordSeparator {
			return qualified[:i], qualified[i+1:], nil
		}
	}
	return "", "", errs.New(errs.KindRetainStore, "retain record name %q is missing its scope separator", qualified)
}

// EncodeAll serializes entries into §6.5's sequence of length-prefixed
// records, in the order given — callers that need a deterministic file
// (e.g. for a diffable retain snapshot in a test fixture) should pass
// entries in a stable order, as memory.RetainSnapshot already does.
func EncodeAll(entries []memory.RetainEntry) ([]byte, error) {
	var w writer
	for _, e := range entries {
		name := qualifiedName(e.Scope, e.Name)
		w.strField(name)
		if err := encodeValue(&w, e.Value); err != nil {
			return nil, errs.Wrap(errs.KindRetainStore, err, "encode retain entry %q", name)
		}
	}
	return w.buf.Bytes(), nil
}

// DecodeAll parses data back into the RetainEntry slice EncodeAll produced,
// rejecting any unrecognized value tag (§6.5).
func DecodeAll(data []byte) ([]memory.RetainEntry, error) {
	r := newReader(data)
	var out []memory.RetainEntry
	for r.remaining() > 0 {
		qualified, err := r.strField()
		if err != nil {
			return nil, err
		}
		scope, name, err := splitQualifiedName(qualified)
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(r)
		if err != nil {
			return nil, errs.Wrap(errs.KindRetainStore, err, "decode retain entry %q", qualified)
		}
		out = append(out, memory.RetainEntry{Scope: scope, Name: name, Value: v})
	}
	return out, nil
}

// File is the concrete, file-backed runtime.RetainStore: Save writes the
// full encoded snapshot to a temp file and renames it into place, so a
// process killed mid-write never leaves a half-written retain file behind
// for the next Load to trip over; Load treats a missing file as "no
// snapshot yet" rather than an error, matching Resource.Init's "keeps
// whatever is already in memory if no store is configured" fallback for a
// warm start with nothing saved yet.
type File struct {
	Path string
}

// NewFile builds a File-backed retain store rooted at path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Load reads the retain file, if present. ok is false (with a nil error)
// when no file exists yet.
func (f *File) Load() ([]memory.RetainEntry, bool, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.KindRetainStore, err, "read retain file %q", f.Path)
	}
	entries, err := DecodeAll(data)
	if err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// Save encodes entries and atomically replaces the retain file.
func (f *File) Save(entries []memory.RetainEntry) error {
	data, err := EncodeAll(entries)
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Wrap(errs.KindRetainStore, err, "write retain temp file %q", tmp)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return errs.Wrap(errs.KindRetainStore, err, "rename retain temp file into place at %q", f.Path)
	}
	return nil
}
