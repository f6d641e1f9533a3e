package catalog

import (
	"bytes"
	"encoding/json"
)

// Record is one image's metadata from the catalog. The typed fields drive
// the diff and the derived artifacts. The raw document is retained so that
// the per-image upload preserves fields this tool doesn't model.
type Record struct {
	ID               string       `json:"_id"`
	Title            *string      `json:"title"`
	Provider         *string      `json:"provider"`
	Platform         *string      `json:"platform"`
	GSD              *json.Number `json:"gsd"`
	FileSize         *json.Number `json:"file_size"`
	AcquisitionStart *string      `json:"acquisition_start"`
	AcquisitionEnd   *string      `json:"acquisition_end"`

	// UploadedAt is an opaque version marker. It's only ever compared for
	// equality, never parsed as a time.
	UploadedAt string `json:"uploaded_at"`

	// Footprint is the record's GeoJSON geometry, passed through verbatim.
	Footprint json.RawMessage `json:"geojson"`

	Properties map[string]interface{} `json:"properties"`

	raw json.RawMessage
}

// ParseRecord decodes a single catalog document.
func ParseRecord(raw json.RawMessage) (Record, error) {
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, err
	}
	record.raw = append(json.RawMessage(nil), raw...)
	return record, nil
}

// Syncable reports whether the record carries the id and version marker
// that incremental sync keys on. Records without them still contribute to
// the feature collection, but are never diffed or uploaded individually.
func (r Record) Syncable() bool {
	return r.ID != "" && r.UploadedAt != ""
}

// HasFootprint reports whether the record carries a usable geometry.
// Missing, null, and empty-object geometries all count as absent.
func (r Record) HasFootprint() bool {
	trimmed := bytes.TrimSpace(r.Footprint)
	return len(trimmed) > 0 &&
		!bytes.Equal(trimmed, []byte("null")) &&
		!bytes.Equal(trimmed, []byte("{}"))
}

// Property looks up a key in the record's free-form properties bag.
func (r Record) Property(key string) interface{} {
	return r.Properties[key]
}

// CanonicalJSON renders the record's full source document, indented. This
// is the exact payload served for the record in the mirror.
func (r Record) CanonicalJSON() ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, r.raw, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Snapshot is the full catalog listing gathered by a single sync run.
type Snapshot []Record
