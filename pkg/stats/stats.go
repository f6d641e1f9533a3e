// Package stats computes the quarterly reporting metrics from the
// OpenAerialMap MongoDB: contributors, images, UAV images, and geodesic
// footprint area, per quarter and cumulative.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/openaerialmap/oam-mirror/pkg/blob"
	"github.com/openaerialmap/oam-mirror/pkg/errors"
)

// Keys of the published report objects.
const (
	JSONKey = "stats.json"
	CSVKey  = "stats.csv"
)

// quarter identifies a calendar quarter.
type quarter struct {
	Year int
	Q    int
}

func (q quarter) String() string {
	return fmt.Sprintf("%d Q%d", q.Year, q.Q)
}

func (q quarter) before(other quarter) bool {
	if q.Year != other.Year {
		return q.Year < other.Year
	}
	return q.Q < other.Q
}

type imageCounts struct {
	images int
	uav    int
}

// Row is one quarter in the report.
type Row struct {
	Year                   int     `json:"year"`
	Quarter                int     `json:"quarter"`
	Period                 string  `json:"period"`
	Contributors           int     `json:"contributors"`
	Images                 int     `json:"images"`
	UAVImages              int     `json:"uav_images"`
	AreaSqKm               float64 `json:"area_sq_km"`
	CumulativeContributors int     `json:"cumulative_contributors"`
	CumulativeImages       int     `json:"cumulative_images"`
	CumulativeUAVImages    int     `json:"cumulative_uav_images"`
	CumulativeAreaSqKm     float64 `json:"cumulative_area_sq_km"`
}

// Report is the stats.json document.
type Report struct {
	GeneratedAt       time.Time `json:"generated_at"`
	TotalImages       int       `json:"total_images"`
	TotalUAVImages    int       `json:"total_uav_images"`
	TotalAreaSqKm     float64   `json:"total_area_sq_km"`
	TotalContributors int       `json:"total_contributors"`
	Quarters          []Row     `json:"quarters"`
}

// Generator runs the stats pipeline.
type Generator struct {
	db    *mongo.Database
	store blob.Store
	clock clockwork.Clock
}

// NewGenerator creates a Generator. A nil store skips the uploads and only
// writes the local report files.
func NewGenerator(db *mongo.Database, store blob.Store) *Generator {
	return &Generator{db: db, store: store, clock: clockwork.NewRealClock()}
}

// Run computes the report, uploads it when a store is configured, and
// writes stats.json / stats.csv beside the process for inspection.
func (g *Generator) Run(ctx context.Context) (Report, error) {
	log.Info("Starting OAM quarterly stats generation")

	contributors, err := g.quarterlyContributors(ctx)
	if err != nil {
		return Report{}, errors.WithContext(err, "quarterly contributors")
	}
	counts, err := g.quarterlyImages(ctx)
	if err != nil {
		return Report{}, errors.WithContext(err, "quarterly images")
	}
	areas, err := g.quarterlyArea(ctx)
	if err != nil {
		return Report{}, errors.WithContext(err, "quarterly area")
	}
	cumulative, err := g.cumulativeContributors(ctx)
	if err != nil {
		return Report{}, errors.WithContext(err, "cumulative contributors")
	}

	report := buildReport(
		g.clock.Now().UTC(), contributors, counts, areas, cumulative)
	if err := g.publish(report); err != nil {
		return Report{}, err
	}

	log.Info("Stats generation complete")
	return report, nil
}

func (g *Generator) publish(report Report) error {
	jsonBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.WithContext(err, "encode stats")
	}
	csvBytes, err := toCSV(report.Quarters)
	if err != nil {
		return errors.WithContext(err, "encode csv")
	}

	if g.store != nil {
		if err := g.store.Put(JSONKey, jsonBytes, "application/json"); err != nil {
			return errors.WithContext(err, "upload "+JSONKey)
		}
		if err := g.store.Put(CSVKey, csvBytes, "text/csv"); err != nil {
			return errors.WithContext(err, "upload "+CSVKey)
		}
	} else {
		log.Warn("No bucket configured, skipping S3 upload")
	}

	// Local copies for inspection.
	if err := afero.WriteFile(fs, JSONKey, jsonBytes, 0644); err != nil {
		return errors.WithContext(err, "write "+JSONKey)
	}
	if err := afero.WriteFile(fs, CSVKey, csvBytes, 0644); err != nil {
		return errors.WithContext(err, "write "+CSVKey)
	}
	return nil
}
