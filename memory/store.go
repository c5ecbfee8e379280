package memory

import (
	"strconv"
	"strings"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/ioimage"
	"github.com/stplatform/stcore/values"
)

// RuntimeStore is the concrete Store the evaluator installs for a running
// cycle: it dispatches a Location's Area tag to globals, a specific call
// frame, an instance member, or the I/O image (§4.G, §4.I).
type RuntimeStore struct {
	Globals *Globals
	Frames  *FrameStack
	Arena   *Arena
	Image   *ioimage.Image
}

func (s *RuntimeStore) GetLocation(loc values.Location) (values.Value, error) {
	switch {
	case loc.Area == "global":
		return s.Globals.Get(loc.Name)
	case strings.HasPrefix(loc.Area, "local:"):
		f, err := s.frame(loc.Area)
		if err != nil {
			return nil, err
		}
		return f.Get(loc.Name)
	case strings.HasPrefix(loc.Area, "instance:"):
		inst, err := s.instance(loc.Area)
		if err != nil {
			return nil, err
		}
		return inst.Get(loc.Name)
	case loc.Area == "io":
		return s.Image.ReadBound(loc.Name)
	default:
		return nil, errs.New(errs.KindInvalidFrame, "unknown reference area %q", loc.Area)
	}
}

func (s *RuntimeStore) SetLocation(loc values.Location, v values.Value) error {
	switch {
	case loc.Area == "global":
		return s.Globals.Set(loc.Name, v)
	case strings.HasPrefix(loc.Area, "local:"):
		f, err := s.frame(loc.Area)
		if err != nil {
			return err
		}
		return f.Set(loc.Name, v)
	case strings.HasPrefix(loc.Area, "instance:"):
		inst, err := s.instance(loc.Area)
		if err != nil {
			return err
		}
		return inst.Set(loc.Name, v)
	case loc.Area == "io":
		return s.Image.WriteBound(loc.Name, v)
	default:
		return errs.New(errs.KindInvalidFrame, "unknown reference area %q", loc.Area)
	}
}

// BoolGlobal reads a global by name and requires it to hold a BOOL,
// satisfying scheduler.TriggerSource for single-trigger task gating.
func (s *RuntimeStore) BoolGlobal(name string) (bool, error) {
	v, err := s.Globals.Get(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(values.Bool)
	if !ok {
		return false, errs.New(errs.KindTypeMismatch, "single-trigger global %q is not BOOL", name)
	}
	return b.V, nil
}

func (s *RuntimeStore) frame(area string) (*Frame, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(area, "local:"), 10, 32)
	if err != nil {
		return nil, errs.New(errs.KindInvalidFrame, "malformed frame reference area %q", area)
	}
	f, ok := s.Frames.ByID(FrameID(n))
	if !ok {
		return nil, errs.New(errs.KindInvalidFrame, "frame %d is no longer active", n)
	}
	return f, nil
}

func (s *RuntimeStore) instance(area string) (*Instance, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(area, "instance:"), 10, 32)
	if err != nil {
		return nil, errs.New(errs.KindInvalidFrame, "malformed instance reference area %q", area)
	}
	return s.Arena.Get(values.InstanceID(n))
}

// GlobalLocation, LocalLocation and InstanceLocation build the Location tag
// expected by RuntimeStore for each storage area (§4.G).
func GlobalLocation(name string) values.Location {
	return values.Location{Area: "global", Name: name}
}

func LocalLocation(frame FrameID, name string) values.Location {
	return values.Location{Area: "local:" + strconv.FormatUint(uint64(frame), 10), Name: name}
}

func InstanceLocation(id values.InstanceID, name string) values.Location {
	return values.Location{Area: "instance:" + strconv.FormatUint(uint64(id), 10), Name: name}
}

func IoLocation(name string) values.Location {
	return values.Location{Area: "io", Name: name}
}
