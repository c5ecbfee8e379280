package debugctl

import (
	"time"

	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/values"
)

// Snapshot is the structural copy captured when the control plane pauses
// execution (§4.L): globals, the stopping call's frame locals (if any),
// every live instance's members, the retain-eligible subset (when a
// RetainSnapshot provider is wired), and the clock reading at the stop.
// A Snapshot is immutable once returned — every map inside it is a private
// copy, not a view into live storage, so a reader never races the
// resource's next cycle.
type Snapshot struct {
	Loc   ir.SourceLocation
	Depth int
	Now   time.Time

	Globals map[string]values.Value

	HasFrame bool
	FrameID  memory.FrameID
	Frame    map[string]values.Value

	Instances map[values.InstanceID]map[string]values.Value

	Retain []memory.RetainEntry
}
