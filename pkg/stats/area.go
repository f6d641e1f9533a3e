package stats

import (
	"encoding/json"
	"math"
	"time"

	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

func quarterOf(t time.Time) quarter {
	return quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

// footprintAreaSqKm computes the geodesic area of a GeoJSON geometry in
// square kilometers. The geometry arrives as a decoded BSON document.
func footprintAreaSqKm(doc map[string]interface{}) (float64, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	geometry, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return 0, err
	}
	return math.Abs(geo.Area(geometry.Geometry())) / 1e6, nil
}
