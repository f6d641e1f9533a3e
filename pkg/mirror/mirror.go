// Package mirror runs the incremental catalog sync.
package mirror

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/openaerialmap/oam-mirror/pkg/blob"
	"github.com/openaerialmap/oam-mirror/pkg/catalog"
	"github.com/openaerialmap/oam-mirror/pkg/errors"
	"github.com/openaerialmap/oam-mirror/pkg/state"
)

// Keys of the mirror's artifacts in the bucket.
const (
	// MetaPrefix is where per-image documents live, one object per record.
	MetaPrefix = "meta/"

	// FeatureCollectionKey is the aggregate GeoJSON document.
	FeatureCollectionKey = "all_images.geojson"

	// TilesKey is the tiled rendering of the aggregate document.
	TilesKey = "images.pmtiles"
)

// Source produces the catalog snapshot to mirror.
type Source interface {
	FetchAll() (catalog.Snapshot, error)
}

// Tiler renders a GeoJSON file into a tiled artifact.
type Tiler interface {
	Generate(geojsonPath, outputPath string) error
}

// Summary reports what a sync run did.
type Summary struct {
	TotalRecords  int
	Uploaded      int
	Features      int
	TiledArtifact bool
	Duration      time.Duration
}

// Mirror orchestrates sync runs. It owns the sync state exclusively: runs
// must not execute concurrently against the same bucket.
type Mirror struct {
	source  Source
	store   blob.Store
	tiler   Tiler
	tracker *state.Tracker
	clock   clockwork.Clock
}

// New assembles a Mirror. State lives in the same bucket as the artifacts.
func New(source Source, store blob.Store, tiler Tiler) *Mirror {
	return &Mirror{
		source:  source,
		store:   store,
		tiler:   tiler,
		tracker: state.NewTracker(store),
		clock:   clockwork.NewRealClock(),
	}
}

// Run executes one incremental sync: fetch the full catalog, upload the
// records whose version marker changed, rebuild the aggregate artifacts
// from the full snapshot, and save state last. When nothing changed, no
// object in the bucket is touched.
func (m *Mirror) Run() (Summary, error) {
	start := m.clock.Now()
	log.Info("Starting OpenAerialMap cloud-native mirror sync")

	if err := m.tracker.Load(); err != nil {
		return Summary{}, errors.WithContext(err, "load sync state")
	}

	snapshot, err := m.source.FetchAll()
	if err != nil {
		return Summary{}, errors.WithContext(err, "fetch catalog")
	}

	var changed []catalog.Record
	for _, record := range snapshot {
		if !record.Syncable() {
			continue
		}
		if m.tracker.NeedsUpdate(record.ID, record.UploadedAt) {
			changed = append(changed, record)
		}
	}
	log.Infof("%d images need updating", len(changed))

	summary := Summary{TotalRecords: len(snapshot)}
	if len(changed) == 0 {
		log.Info("No changes detected, skipping uploads")
		summary.Duration = m.clock.Since(start)
		return summary, nil
	}

	for _, record := range changed {
		if err := m.uploadRecord(record); err != nil {
			return Summary{}, errors.WithContext(err, "upload "+MetaPrefix+record.ID)
		}
		// Only mark after the upload succeeded. If the run dies here, the
		// unsaved state simply re-uploads the record next time.
		m.tracker.MarkUpdated(record.ID, record.UploadedAt)
		summary.Uploaded++
	}
	log.Infof("Uploaded %d image metadata files", summary.Uploaded)

	log.Info("Building master GeoJSON FeatureCollection...")
	collection := BuildFeatureCollection(snapshot)
	summary.Features = len(collection.Features)
	log.Infof("Created FeatureCollection with %d features", summary.Features)

	collectionJSON, err := json.Marshal(collection)
	if err != nil {
		return Summary{}, errors.WithContext(err, "encode feature collection")
	}
	err = m.store.Put(FeatureCollectionKey, collectionJSON, "application/geo+json")
	if err != nil {
		return Summary{}, errors.WithContext(err, "upload "+FeatureCollectionKey)
	}
	log.Infof("Uploaded %s", FeatureCollectionKey)

	summary.TiledArtifact, err = m.uploadTiles(collectionJSON)
	if err != nil {
		return Summary{}, err
	}

	if err := m.tracker.Save(); err != nil {
		return Summary{}, errors.WithContext(err, "save sync state")
	}

	summary.Duration = m.clock.Since(start)
	log.Info("Sync complete")
	return summary, nil
}

func (m *Mirror) uploadRecord(record catalog.Record) error {
	data, err := record.CanonicalJSON()
	if err != nil {
		return errors.WithContext(err, "encode record")
	}
	return m.store.Put(MetaPrefix+record.ID, data, "application/json")
}

// uploadTiles renders the feature collection with the tiler and uploads
// the result. Failures to generate are logged and skipped; a failed upload
// of a generated tileset is fatal like any other upload.
func (m *Mirror) uploadTiles(collectionJSON []byte) (bool, error) {
	scratch, err := afero.TempDir(fs, "", "oam-mirror")
	if err != nil {
		log.WithError(err).Warn("Couldn't create scratch dir, skipping tiles")
		return false, nil
	}
	defer func() {
		if err := fs.RemoveAll(scratch); err != nil {
			log.WithError(err).Debug("Couldn't remove scratch dir")
		}
	}()

	geojsonPath := filepath.Join(scratch, FeatureCollectionKey)
	tilesPath := filepath.Join(scratch, TilesKey)
	if err := afero.WriteFile(fs, geojsonPath, collectionJSON, 0644); err != nil {
		log.WithError(err).Warn("Couldn't write scratch GeoJSON, skipping tiles")
		return false, nil
	}

	log.Info("Generating PMTiles with tippecanoe...")
	if err := m.tiler.Generate(geojsonPath, tilesPath); err != nil {
		log.WithError(err).Warn("PMTiles generation failed, skipping upload")
		return false, nil
	}
	log.Info("PMTiles generation complete")

	data, err := afero.ReadFile(fs, tilesPath)
	if err != nil {
		log.WithError(err).Warn("Couldn't read generated tiles, skipping upload")
		return false, nil
	}

	if err := m.store.Put(TilesKey, data, "application/vnd.pmtiles"); err != nil {
		return false, errors.WithContext(err, "upload "+TilesKey)
	}
	log.Infof("Uploaded %s", TilesKey)
	return true, nil
}
