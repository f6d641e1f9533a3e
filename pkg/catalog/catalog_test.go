package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogHandler serves canned /meta pages keyed by page number.
type catalogHandler struct {
	found     int
	pages     map[int]string
	failPages map[int]bool

	requested []int
	userAgent string
}

func (h *catalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	h.requested = append(h.requested, page)
	h.userAgent = r.Header.Get("User-Agent")

	if h.failPages[page] {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	results, ok := h.pages[page]
	if !ok {
		results = "[]"
	}
	fmt.Fprintf(w, `{"results": %s, "meta": {"found": %d}}`, results, h.found)
}

func newTestClient(server *httptest.Server, pageLimit int) *Client {
	return &Client{
		baseURL:   server.URL,
		client:    server.Client(),
		pageLimit: pageLimit,
	}
}

func recordJSON(id, uploadedAt string) string {
	return fmt.Sprintf(`{"_id": %q, "uploaded_at": %q}`, id, uploadedAt)
}

func ids(snapshot Snapshot) []string {
	var out []string
	for _, record := range snapshot {
		out = append(out, record.ID)
	}
	return out
}

func TestFetchAllPaginates(t *testing.T) {
	handler := &catalogHandler{
		found: 5,
		pages: map[int]string{
			1: "[" + recordJSON("a", "t1") + "," + recordJSON("b", "t2") + "]",
			2: "[" + recordJSON("c", "t3") + "," + recordJSON("d", "t4") + "]",
			3: "[" + recordJSON("e", "t5") + "]",
		},
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	snapshot, err := newTestClient(server, 2).FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(snapshot))
	assert.Equal(t, []int{1, 2, 3}, handler.requested)
	assert.Contains(t, handler.userAgent, "OAM-CloudNativeMirror/")
}

func TestFetchAllFirstPageUnavailable(t *testing.T) {
	handler := &catalogHandler{failPages: map[int]bool{1: true}}
	server := httptest.NewServer(handler)
	defer server.Close()

	_, err := newTestClient(server, 2).FetchAll()
	require.Error(t, err)
	assert.IsType(t, UnavailableError{}, err)
	assert.Contains(t, err.Error(), "catalog unavailable")
}

func TestFetchAllStopsAfterFailedPage(t *testing.T) {
	handler := &catalogHandler{
		found: 6,
		pages: map[int]string{
			1: "[" + recordJSON("a", "t1") + "," + recordJSON("b", "t2") + "]",
			3: "[" + recordJSON("e", "t5") + "," + recordJSON("f", "t6") + "]",
		},
		failPages: map[int]bool{2: true},
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	snapshot, err := newTestClient(server, 2).FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(snapshot))

	// Page 3 must never be requested once page 2 fails.
	assert.Equal(t, []int{1, 2}, handler.requested)
}

func TestFetchAllStopsAtEmptyPage(t *testing.T) {
	handler := &catalogHandler{
		found: 6,
		pages: map[int]string{
			1: "[" + recordJSON("a", "t1") + "," + recordJSON("b", "t2") + "]",
			2: "[]",
		},
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	snapshot, err := newTestClient(server, 2).FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(snapshot))
	assert.Equal(t, []int{1, 2}, handler.requested)
}

func TestFetchAllSkipsMalformedRecords(t *testing.T) {
	handler := &catalogHandler{
		found: 3,
		pages: map[int]string{
			1: `[` + recordJSON("a", "t1") + `, "not an object", ` +
				recordJSON("b", "t2") + `]`,
		},
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	snapshot, err := newTestClient(server, 100).FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(snapshot))
}

func TestParseRecord(t *testing.T) {
	raw := `{
		"_id": "abc123",
		"uploaded_at": "2024-03-01T00:00:00.000Z",
		"title": "Nairobi flyover",
		"provider": "Example Org",
		"platform": "UAV",
		"gsd": 0.05,
		"file_size": 123456789,
		"acquisition_start": "2024-02-27T08:00:00.000Z",
		"acquisition_end": "2024-02-27T09:00:00.000Z",
		"geojson": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]},
		"properties": {"sensor": "RGB", "tms": "https://tiles.example.com/{z}/{x}/{y}", "thumbnail": "https://img.example.com/t.png"},
		"custom_field": {"nested": true}
	}`

	record, err := ParseRecord(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, "abc123", record.ID)
	assert.Equal(t, "2024-03-01T00:00:00.000Z", record.UploadedAt)
	require.NotNil(t, record.Title)
	assert.Equal(t, "Nairobi flyover", *record.Title)
	require.NotNil(t, record.GSD)
	assert.Equal(t, json.Number("0.05"), *record.GSD)
	assert.Equal(t, "RGB", record.Property("sensor"))
	assert.Nil(t, record.Property("missing"))
	assert.True(t, record.Syncable())
	assert.True(t, record.HasFootprint())

	// The canonical rendering keeps fields the Record struct doesn't model.
	canonical, err := record.CanonicalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(canonical), "custom_field")
	assert.Contains(t, string(canonical), "\n  \"_id\"")
}

func TestRecordEdgeCases(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		syncable     bool
		hasFootprint bool
	}{
		{
			name:         "MissingID",
			raw:          `{"uploaded_at": "t1"}`,
			syncable:     false,
			hasFootprint: false,
		},
		{
			name:         "MissingUploadedAt",
			raw:          `{"_id": "a"}`,
			syncable:     false,
			hasFootprint: false,
		},
		{
			name:         "NullFootprint",
			raw:          `{"_id": "a", "uploaded_at": "t1", "geojson": null}`,
			syncable:     true,
			hasFootprint: false,
		},
		{
			name:         "EmptyFootprint",
			raw:          `{"_id": "a", "uploaded_at": "t1", "geojson": {}}`,
			syncable:     true,
			hasFootprint: false,
		},
		{
			name: "FootprintWithoutSyncFields",
			raw:  `{"geojson": {"type": "Point", "coordinates": [0, 0]}}`,
			// The feature collection still includes it.
			syncable:     false,
			hasFootprint: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			record, err := ParseRecord(json.RawMessage(test.raw))
			require.NoError(t, err)
			assert.Equal(t, test.syncable, record.Syncable())
			assert.Equal(t, test.hasFootprint, record.HasFootprint())
		})
	}
}
