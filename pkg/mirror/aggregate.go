package mirror

import (
	"encoding/json"

	"github.com/openaerialmap/oam-mirror/pkg/catalog"
)

// Feature is one image in the aggregate GeoJSON document.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is the aggregate GeoJSON document. It's rebuilt from
// the full snapshot on every run that uploads anything.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// BuildFeatureCollection projects every record with a footprint into a
// feature. Records without geometry are left out.
func BuildFeatureCollection(snapshot catalog.Snapshot) FeatureCollection {
	features := []Feature{}
	for _, record := range snapshot {
		if !record.HasFootprint() {
			continue
		}
		features = append(features, Feature{
			Type:       "Feature",
			Geometry:   record.Footprint,
			Properties: featureProperties(record),
		})
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}

// featureProperties is the fixed projection served to map clients. Every
// feature carries the same keys; missing source fields become nulls.
func featureProperties(record catalog.Record) map[string]interface{} {
	return map[string]interface{}{
		"_id":               nullableString(record.ID),
		"title":             record.Title,
		"provider":          record.Provider,
		"platform":          record.Platform,
		"sensor":            record.Property("sensor"),
		"gsd":               record.GSD,
		"file_size":         record.FileSize,
		"acquisition_start": record.AcquisitionStart,
		"acquisition_end":   record.AcquisitionEnd,
		"tms":               record.Property("tms"),
		"thumbnail":         record.Property("thumbnail"),
		"uploaded_at":       nullableString(record.UploadedAt),
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
