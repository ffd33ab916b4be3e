package sampling

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/Faultbox/abcstream/pkg/cache"
)

func TestLookupIndex(t *testing.T) {
	ts := cache.TimeSampling{Start: 0, Interval: 1.0 / 30, Count: 3}

	tests := []struct {
		name    string
		index   uint64
		want    int
		wantErr bool
	}{
		{"first", 0, 0, false},
		{"last", 2, 2, false},
		{"one past end", 3, 0, true},
		{"far past end", 5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Lookup(ts, IndexSelector(tt.index))
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Fatalf("expected ErrOutOfRange, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Index != tt.want {
				t.Errorf("Index = %d, want %d", res.Index, tt.want)
			}
		})
	}
}

func TestLookupTime(t *testing.T) {
	ts := cache.TimeSampling{Start: 1.0, Interval: 0.5, Count: 5} // 1.0 .. 3.0

	tests := []struct {
		name      string
		time      float64
		interp    Interpolation
		wantIndex int
		wantNext  int
		wantAlpha float64
	}{
		{"before start clamps", -10, Nearest, 0, 0, 0},
		{"at start", 1.0, Nearest, 0, 0, 0},
		{"exactly on sample", 2.0, Nearest, 2, 2, 0},
		{"between samples floors", 2.2, Nearest, 2, 2, 0},
		{"after end clamps", 99, Nearest, 4, 4, 0},
		{"at end", 3.0, Linear, 4, 4, 0},
		{"between samples linear", 2.25, Linear, 2, 3, 0.5},
		{"on sample linear", 1.5, Linear, 1, 1, 0},
		{"past end linear", 4.0, Linear, 4, 4, 0},
		{"huge time clamps to end", 1e300, Nearest, 4, 4, 0},
		{"int overflow time clamps to end", 1e18, Linear, 4, 4, 0},
		{"infinite time clamps to end", gomath.Inf(1), Linear, 4, 4, 0},
		{"negative infinite time clamps to start", gomath.Inf(-1), Nearest, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Lookup(ts, TimeSelector(tt.time, tt.interp))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Index != tt.wantIndex {
				t.Errorf("Index = %d, want %d", res.Index, tt.wantIndex)
			}
			if res.NextIndex != tt.wantNext {
				t.Errorf("NextIndex = %d, want %d", res.NextIndex, tt.wantNext)
			}
			if d := res.Alpha - tt.wantAlpha; d > 1e-9 || d < -1e-9 {
				t.Errorf("Alpha = %v, want %v", res.Alpha, tt.wantAlpha)
			}
		})
	}
}

func TestLookupFloatDrift(t *testing.T) {
	ts := cache.TimeSampling{Start: 0, Interval: 1.0 / 30, Count: 100}
	for i := 0; i < 100; i++ {
		res, err := Lookup(ts, TimeToSelector(ts.TimeOf(i)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Index != i {
			t.Fatalf("time of sample %d resolved to %d", i, res.Index)
		}
	}
}

func TestLookupSingleSample(t *testing.T) {
	ts := cache.TimeSampling{Start: 0, Count: 1}
	res, err := Lookup(ts, TimeSelector(42, Linear))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Index != 0 || res.Interpolated() {
		t.Errorf("got %+v, want index 0 without blending", res)
	}
}

func TestLookupNoSamples(t *testing.T) {
	_, err := Lookup(cache.TimeSampling{}, TimeToSelector(0))
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestResolverChangeTracking(t *testing.T) {
	r := NewResolver(cache.TimeSampling{Start: 0, Interval: 1, Count: 4})

	if r.Last() != -1 {
		t.Fatalf("Last before resolve = %d, want -1", r.Last())
	}

	steps := []struct {
		sel         Selector
		force       bool
		wantIndex   int
		wantChanged bool
	}{
		{TimeToSelector(0), false, 0, true},    // first resolution always changes
		{TimeToSelector(0.5), false, 0, false}, // same stored index
		{TimeToSelector(1.2), false, 1, true},
		{IndexSelector(1), false, 1, false},
		{IndexSelector(1), true, 1, true}, // forced
		{IndexSelector(1), false, 1, false},
		{IndexSelector(3), false, 3, true},
	}

	for i, s := range steps {
		if s.force {
			r.MarkForceUpdate()
		}
		res, err := r.Resolve(s.sel)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if res.Index != s.wantIndex || res.Changed != s.wantChanged {
			t.Errorf("step %d (%s): got index=%d changed=%v, want index=%d changed=%v",
				i, s.sel, res.Index, res.Changed, s.wantIndex, s.wantChanged)
		}
	}
}

func TestResolverErrorKeepsState(t *testing.T) {
	r := NewResolver(cache.TimeSampling{Start: 0, Interval: 1, Count: 3})

	if _, err := r.Resolve(IndexSelector(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Resolve(IndexSelector(5)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if r.Last() != 2 {
		t.Errorf("Last after failed resolve = %d, want 2", r.Last())
	}

	res, err := r.Resolve(IndexSelector(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed {
		t.Error("re-resolving the same index after a failure should not report a change")
	}
}

func TestSelectorString(t *testing.T) {
	tests := []struct {
		sel  Selector
		want string
	}{
		{IndexSelector(5), "index(5)"},
		{TimeToSelector(1.5), "time(1.5)"},
		{TimeSelector(2, Linear), "time(2, linear)"},
	}
	for _, tt := range tests {
		if got := tt.sel.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
