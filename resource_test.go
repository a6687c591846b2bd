package depot

import (
	"errors"
	"testing"
	"time"
)

type Gravity struct {
	Y float64
}

func TestResources(t *testing.T) {
	gravity := FactoryNewResource[Gravity]()
	w := NewWorld()

	if _, ok := GetResource(w, gravity); ok {
		t.Errorf("GetResource() found a resource never set")
	}
	if err := SetResource(w, gravity, Gravity{Y: -9.8}); err != nil {
		t.Fatalf("SetResource() error = %v", err)
	}
	g, ok := GetResource(w, gravity)
	if !ok || g.Y != -9.8 {
		t.Fatalf("GetResource() = %v, %v", g, ok)
	}
	g.Y = -1
	if g, _ := GetResource(w, gravity); g.Y != -1 {
		t.Errorf("resource pointer does not alias the stored value")
	}

	// Resources are per world.
	other := NewWorld()
	defer other.Free()
	if _, ok := GetResource(other, gravity); ok {
		t.Errorf("resource leaked into another world")
	}

	if !RemoveResource(w, gravity) || RemoveResource(w, gravity) {
		t.Errorf("RemoveResource() should succeed exactly once")
	}

	w.Free()
	if err := SetResource(w, gravity, Gravity{}); !errors.Is(err, ErrWorldFreed) {
		t.Errorf("SetResource() after Free error = %v, want ErrWorldFreed", err)
	}
}

func TestFrameClock(t *testing.T) {
	w := NewWorld()
	defer w.Free()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		offset  time.Duration
		delta   time.Duration
		elapsed time.Duration
	}{
		{0, 0, 0},
		{16 * time.Millisecond, 16 * time.Millisecond, 16 * time.Millisecond},
		{50 * time.Millisecond, 34 * time.Millisecond, 50 * time.Millisecond},
	}
	for i, tt := range tests {
		c, err := w.TickFrame(start.Add(tt.offset))
		if err != nil {
			t.Fatalf("tick %d: TickFrame() error = %v", i, err)
		}
		if c.Delta != tt.delta {
			t.Errorf("tick %d: Delta = %v, want %v", i, c.Delta, tt.delta)
		}
		if c.Elapsed() != tt.elapsed {
			t.Errorf("tick %d: Elapsed() = %v, want %v", i, c.Elapsed(), tt.elapsed)
		}
		if c.Frames != uint64(i+1) {
			t.Errorf("tick %d: Frames = %d, want %d", i, c.Frames, i+1)
		}
	}

	c, ok := GetResource(w, FrameClockResource)
	if !ok || c.Frames != 3 {
		t.Errorf("frame clock resource = %v, %v", c, ok)
	}

	freed := NewWorld()
	freed.Free()
	if c, err := freed.TickFrame(start); !errors.Is(err, ErrWorldFreed) || c != nil {
		t.Errorf("TickFrame() on freed world = %v, %v, want ErrWorldFreed", c, err)
	}
}
