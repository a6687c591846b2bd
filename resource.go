package depot

import (
	"time"

	"github.com/TheBitDrifter/table"

	"github.com/TheBitDrifter/depot/internal/sparse"
)

// Resource is a handle to a world-wide singleton of type T.
type Resource[T any] struct {
	token table.ElementType
}

// resourceRegistry holds at most one value per resource type, keyed by the
// resource schema's row index.
type resourceRegistry struct {
	values *sparse.Set[uint32, any]
}

func newResourceRegistry(capacity int) resourceRegistry {
	return resourceRegistry{values: sparse.NewSet[uint32, any](capacity)}
}

func (r *resourceRegistry) clear() { r.values.Clear() }

func (r Resource[T]) id(w *World) uint32 {
	w.resourceSchema.Register(r.token)
	return w.resourceSchema.RowIndexFor(r.token)
}

// SetResource stores v as w's instance of r, replacing any previous one.
func SetResource[T any](w *World, r Resource[T], v T) error {
	if w.freed {
		return ErrWorldFreed
	}
	p := new(T)
	*p = v
	w.resources.values.Set(r.id(w), p)
	return nil
}

// GetResource returns w's instance of r.
func GetResource[T any](w *World, r Resource[T]) (*T, bool) {
	if w.freed {
		return nil, false
	}
	v, ok := w.resources.values.Value(r.id(w))
	if !ok {
		return nil, false
	}
	return v.(*T), true
}

// RemoveResource drops w's instance of r and reports whether there was one.
func RemoveResource[T any](w *World, r Resource[T]) bool {
	if w.freed {
		return false
	}
	_, ok := w.resources.values.Remove(r.id(w))
	return ok
}

// FrameClock tracks frame timing for a host loop. The host ticks it once per
// frame; systems read Delta.
type FrameClock struct {
	Start  time.Time
	Frame  time.Time
	Delta  time.Duration
	Frames uint64
}

// Tick starts a new frame at now.
func (c *FrameClock) Tick(now time.Time) {
	if c.Frames == 0 && c.Start.IsZero() {
		c.Start, c.Frame = now, now
	}
	c.Delta = now.Sub(c.Frame)
	c.Frame = now
	c.Frames++
}

// Elapsed returns the time since the first tick.
func (c *FrameClock) Elapsed() time.Duration { return c.Frame.Sub(c.Start) }

// FrameClockResource is the world's frame clock slot.
var FrameClockResource = FactoryNewResource[FrameClock]()

// TickFrame advances w's frame clock to now, creating it on the first call.
func (w *World) TickFrame(now time.Time) (*FrameClock, error) {
	c, ok := GetResource(w, FrameClockResource)
	if !ok {
		if err := SetResource(w, FrameClockResource, FrameClock{}); err != nil {
			return nil, err
		}
		c, _ = GetResource(w, FrameClockResource)
	}
	c.Tick(now)
	return c, nil
}
