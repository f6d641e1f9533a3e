package mirror

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openaerialmap/oam-mirror/pkg/catalog"
)

func parseRecord(t *testing.T, raw string) catalog.Record {
	record, err := catalog.ParseRecord(json.RawMessage(raw))
	require.NoError(t, err)
	return record
}

func TestBuildFeatureCollectionProjection(t *testing.T) {
	full := parseRecord(t, `{
		"_id": "abc",
		"uploaded_at": "2024-03-01T00:00:00.000Z",
		"title": "Nairobi flyover",
		"provider": "Example Org",
		"platform": "uav",
		"gsd": 0.05,
		"file_size": 123456789,
		"acquisition_start": "2024-02-27T08:00:00.000Z",
		"acquisition_end": "2024-02-27T09:00:00.000Z",
		"geojson": {"type": "Point", "coordinates": [1, 2]},
		"properties": {
			"sensor": "RGB",
			"tms": "https://tiles.example.com/{z}/{x}/{y}",
			"thumbnail": "https://img.example.com/t.png"
		}
	}`)
	bare := parseRecord(t, `{
		"_id": "xyz",
		"uploaded_at": "t9",
		"geojson": {"type": "Point", "coordinates": [3, 4]}
	}`)
	noGeometry := parseRecord(t, `{"_id": "hidden", "uploaded_at": "t1"}`)

	collection := BuildFeatureCollection(
		catalog.Snapshot{full, bare, noGeometry})
	require.Len(t, collection.Features, 2)

	data, err := json.Marshal(collection)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [1, 2]},
				"properties": {
					"_id": "abc",
					"title": "Nairobi flyover",
					"provider": "Example Org",
					"platform": "uav",
					"sensor": "RGB",
					"gsd": 0.05,
					"file_size": 123456789,
					"acquisition_start": "2024-02-27T08:00:00.000Z",
					"acquisition_end": "2024-02-27T09:00:00.000Z",
					"tms": "https://tiles.example.com/{z}/{x}/{y}",
					"thumbnail": "https://img.example.com/t.png",
					"uploaded_at": "2024-03-01T00:00:00.000Z"
				}
			},
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [3, 4]},
				"properties": {
					"_id": "xyz",
					"title": null,
					"provider": null,
					"platform": null,
					"sensor": null,
					"gsd": null,
					"file_size": null,
					"acquisition_start": null,
					"acquisition_end": null,
					"tms": null,
					"thumbnail": null,
					"uploaded_at": "t9"
				}
			}
		]
	}`, string(data))
}

func TestBuildFeatureCollectionEmpty(t *testing.T) {
	collection := BuildFeatureCollection(catalog.Snapshot{
		parseRecord(t, `{"_id": "a", "uploaded_at": "t1"}`),
	})

	data, err := json.Marshal(collection)
	require.NoError(t, err)

	// An empty features array, never null.
	assert.Equal(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}
