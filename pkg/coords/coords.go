// Package coords converts British National Grid eastings/northings to
// WGS84 latitude/longitude.
package coords

import (
	"fmt"
	"math"
	"sync"

	"github.com/twpayne/go-proj/v10"
)

// Valid British National Grid extents in metres.
const (
	maxEasting  = 800000
	maxNorthing = 1400000
)

// Transformer converts EPSG:27700 coordinates to EPSG:4326. The underlying
// PROJ transformation is built once on first use and reused for the whole
// run. PROJ handles are not safe for concurrent use, so calls serialize on
// an internal mutex.
type Transformer struct {
	once sync.Once
	mu   sync.Mutex
	pj   *proj.PJ
	err  error
}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// ToWGS84 converts an easting/northing pair to latitude/longitude in
// decimal degrees. Coordinates outside the national grid extents are
// rejected before reaching PROJ.
func (t *Transformer) ToWGS84(easting, northing float64) (lat, lon float64, err error) {
	if math.IsNaN(easting) || math.IsInf(easting, 0) || math.IsNaN(northing) || math.IsInf(northing, 0) {
		return 0, 0, fmt.Errorf("non-finite coordinates (%v, %v)", easting, northing)
	}
	if easting < 0 || easting > maxEasting || northing < 0 || northing > maxNorthing {
		return 0, 0, fmt.Errorf("coordinates (%v, %v) outside national grid extents", easting, northing)
	}

	t.once.Do(func() {
		t.pj, t.err = proj.NewCRSToCRS("EPSG:27700", "EPSG:4326", nil)
	})
	if t.err != nil {
		return 0, 0, fmt.Errorf("failed to build coordinate transformation: %w", t.err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	out, err := t.pj.Forward(proj.NewCoord(easting, northing, 0, 0))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to transform (%v, %v): %w", easting, northing, err)
	}

	// EPSG:4326 authority axis order is latitude then longitude.
	return out.X(), out.Y(), nil
}
