package stats

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openaerialmap/oam-mirror/pkg/errors"
)

const serverSelectionTimeout = 30 * time.Second

// Collections written by the OpenAerialMap API.
const (
	uploadsCollection = "uploads"
	metasCollection   = "metas"
)

// Connect opens the MongoDB database holding the catalog collections. Use
// db.Client().Disconnect to close it.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelectionTimeout))
	if err != nil {
		return nil, errors.WithContext(err, "connect")
	}

	db := client.Database(database)

	// Probe the connection so a bad URI fails here rather than mid-pipeline.
	if _, err := db.ListCollectionNames(ctx, bson.D{}); err != nil {
		return nil, errors.WithContext(err, "list collections")
	}
	log.Infof("Connected to MongoDB: %s", database)
	return db, nil
}

// projectQuarter maps a document's timestamp onto year and quarter fields.
func projectQuarter(timeField string) bson.M {
	return bson.M{
		"year": bson.M{"$year": timeField},
		"quarter": bson.M{
			"$ceil": bson.M{"$divide": bson.A{bson.M{"$month": timeField}, 3}},
		},
		"user": 1,
	}
}

type quarterGroup struct {
	ID struct {
		Year    int     `bson:"year"`
		Quarter float64 `bson:"quarter"`
	} `bson:"_id"`
	Contributors int `bson:"contributors"`
	Images       int `bson:"images"`
	UAVImages    int `bson:"uav_images"`
}

func (doc quarterGroup) quarter() quarter {
	return quarter{Year: doc.ID.Year, Q: int(doc.ID.Quarter)}
}

// quarterlyContributors counts unique uploaders per quarter.
func (g *Generator) quarterlyContributors(ctx context.Context) (map[quarter]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: projectQuarter("$createdAt")}},
		{{Key: "$group", Value: bson.M{
			"_id":          bson.M{"year": "$year", "quarter": "$quarter"},
			"unique_users": bson.M{"$addToSet": "$user"},
		}}},
		{{Key: "$project", Value: bson.M{
			"contributors": bson.M{"$size": "$unique_users"},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "_id.year", Value: 1},
			{Key: "_id.quarter", Value: 1},
		}}},
	}

	cursor, err := g.db.Collection(uploadsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.WithContext(err, "aggregate")
	}
	defer cursor.Close(ctx)

	results := map[quarter]int{}
	for cursor.Next(ctx) {
		var doc quarterGroup
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.WithContext(err, "decode")
		}
		results[doc.quarter()] = doc.Contributors
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	log.Infof("Got contributor counts for %d quarters", len(results))
	return results, nil
}

// quarterlyImages counts images and UAV images per quarter.
func (g *Generator) quarterlyImages(ctx context.Context) (map[quarter]imageCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"uploaded_at": bson.M{"$exists": true, "$ne": nil},
		}}},
		{{Key: "$project", Value: bson.M{
			"year": bson.M{"$year": "$uploaded_at"},
			"quarter": bson.M{
				"$ceil": bson.M{"$divide": bson.A{bson.M{"$month": "$uploaded_at"}, 3}},
			},
			"is_uav": bson.M{
				"$in": bson.A{bson.M{"$toLower": "$platform"}, bson.A{"uav"}},
			},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"year": "$year", "quarter": "$quarter"},
			"images":     bson.M{"$sum": 1},
			"uav_images": bson.M{"$sum": bson.M{"$cond": bson.A{"$is_uav", 1, 0}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "_id.year", Value: 1},
			{Key: "_id.quarter", Value: 1},
		}}},
	}

	cursor, err := g.db.Collection(metasCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.WithContext(err, "aggregate")
	}
	defer cursor.Close(ctx)

	results := map[quarter]imageCounts{}
	for cursor.Next(ctx) {
		var doc quarterGroup
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.WithContext(err, "decode")
		}
		results[doc.quarter()] = imageCounts{
			images: doc.Images,
			uav:    doc.UAVImages,
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	log.Infof("Got image counts for %d quarters", len(results))
	return results, nil
}

// quarterlyArea sums geodesic footprint area in square kilometers per
// quarter. Documents whose geometry or timestamp won't parse are counted
// and skipped.
func (g *Generator) quarterlyArea(ctx context.Context) (map[quarter]float64, error) {
	log.Info("Computing areas from footprints (this may take a minute)...")

	cursor, err := g.db.Collection(metasCollection).Find(ctx,
		bson.M{
			"geojson":     bson.M{"$exists": true},
			"uploaded_at": bson.M{"$exists": true, "$ne": nil},
		},
		options.Find().SetProjection(bson.M{"geojson": 1, "uploaded_at": 1}))
	if err != nil {
		return nil, errors.WithContext(err, "find footprints")
	}
	defer cursor.Close(ctx)

	type footprintDoc struct {
		UploadedAt time.Time `bson:"uploaded_at"`
		Geojson    bson.M    `bson:"geojson"`
	}

	results := map[quarter]float64{}
	processed, failed := 0, 0
	for cursor.Next(ctx) {
		var doc footprintDoc
		if err := cursor.Decode(&doc); err != nil {
			failed++
			continue
		}
		area, err := footprintAreaSqKm(doc.Geojson)
		if err != nil {
			failed++
			continue
		}
		results[quarterOf(doc.UploadedAt)] += area
		processed++
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	log.Infof("Computed area for %d images (%d errors)", processed, failed)
	return results, nil
}

// cumulativeContributors computes the running count of unique uploaders
// seen through the end of each quarter.
func (g *Generator) cumulativeContributors(ctx context.Context) (map[quarter]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: projectQuarter("$createdAt")}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := g.db.Collection(uploadsCollection).Aggregate(
		ctx, pipeline, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, errors.WithContext(err, "aggregate")
	}
	defer cursor.Close(ctx)

	type userDoc struct {
		Year    int         `bson:"year"`
		Quarter float64     `bson:"quarter"`
		User    interface{} `bson:"user"`
	}

	quarterUsers := map[quarter]map[string]struct{}{}
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.WithContext(err, "decode")
		}
		key := quarter{Year: doc.Year, Q: int(doc.Quarter)}
		users := quarterUsers[key]
		if users == nil {
			users = map[string]struct{}{}
			quarterUsers[key] = users
		}
		users[userKey(doc.User)] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return accumulateUsers(quarterUsers), nil
}

func userKey(user interface{}) string {
	switch v := user.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	default:
		return fmt.Sprint(v)
	}
}
