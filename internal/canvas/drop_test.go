package canvas

import (
	"math"
	"math/rand/v2"
	"testing"

	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/vector"
)

func TestDropScalesDeltaByZoom(t *testing.T) {
	got := Drop(domain.Position{X: 100, Y: 100}, vector.Pt{X: 50, Y: 0}, 2)
	if got != (domain.Position{X: 125, Y: 100}) {
		t.Fatalf("Drop = %+v", got)
	}
}

func TestDropProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 500; i++ {
		orig := domain.Position{X: r.Float64()*2000 - 1000, Y: r.Float64()*2000 - 1000}
		d := vector.Pt{X: r.Float64()*600 - 300, Y: r.Float64()*600 - 300}
		z := ApplyZoomDelta(0.5, r.Float64()*1.5)
		got := Drop(orig, d, z)
		if math.Abs(got.X-(orig.X+d.X/z)) > 1e-9 || math.Abs(got.Y-(orig.Y+d.Y/z)) > 1e-9 {
			t.Fatalf("drop(%+v, %+v, %v) = %+v", orig, d, z, got)
		}
	}
}

func TestDropNonPositiveZoom(t *testing.T) {
	if got := Drop(domain.Position{}, vector.Pt{X: 3, Y: 4}, 0); got != (domain.Position{X: 3, Y: 4}) {
		t.Fatalf("zero zoom drop = %+v", got)
	}
	for _, z := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := Drop(domain.Position{X: 1, Y: 1}, vector.Pt{X: 3, Y: 4}, z); got != (domain.Position{X: 4, Y: 5}) {
			t.Fatalf("drop at zoom %v = %+v", z, got)
		}
	}
}

func TestDragSession(t *testing.T) {
	d := BeginDrag(domain.Ref{Kind: domain.KindNote, ID: "n1"}, domain.Position{X: 10, Y: 10}, vector.Pt{X: 200, Y: 200})
	if d.Moved(vector.Pt{X: 200, Y: 200}) {
		t.Fatalf("no movement yet")
	}
	if got := d.At(vector.Pt{X: 220, Y: 180}, 0.5); got != (domain.Position{X: 50, Y: -30}) {
		t.Fatalf("drag At = %+v", got)
	}
	if got := d.Delta(vector.Pt{X: 220, Y: 180}); got != (vector.Pt{X: 20, Y: -20}) {
		t.Fatalf("drag Delta = %+v", got)
	}
}
