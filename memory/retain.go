package memory

import (
	"sort"

	"github.com/stplatform/stcore/values"
)

// RetainEntry is one persisted name/value pair, either a retained global or
// a retained member of a live instance (§4.G, §6.5).
type RetainEntry struct {
	Scope    string // "global" or "instance:<id>"
	Name     string
	Value    values.Value
}

// RetainSnapshot collects every global named in retainGlobals and every
// member named in retainMembers for each live instance, in a stable order
// so the retain encoding round-trips deterministically.
func RetainSnapshot(g *Globals, arena *Arena, retainGlobals []string, retainMembers map[values.InstanceID][]string) ([]RetainEntry, error) {
	var out []RetainEntry
	for _, name := range retainGlobals {
		v, err := g.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, RetainEntry{Scope: "global", Name: name, Value: v})
	}
	ids := make([]values.InstanceID, 0, len(retainMembers))
	for id := range retainMembers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		names := retainMembers[id]
		inst, err := arena.Get(id)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			v, err := inst.Get(name)
			if err != nil {
				return nil, err
			}
			out = append(out, RetainEntry{Scope: InstanceLocation(id, "").Area, Name: name, Value: v})
		}
	}
	return out, nil
}

// RestoreSnapshot writes every entry back into the store that produced it,
// used on a warm restart before the first cycle runs (§4.K).
func RestoreSnapshot(store *RuntimeStore, entries []RetainEntry) error {
	for _, e := range entries {
		if err := store.SetLocation(values.Location{Area: e.Scope, Name: e.Name}, e.Value); err != nil {
			return err
		}
	}
	return nil
}
