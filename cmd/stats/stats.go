package stats

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openaerialmap/oam-mirror/cmd/util"
	"github.com/openaerialmap/oam-mirror/pkg/blob"
	"github.com/openaerialmap/oam-mirror/pkg/config"
	"github.com/openaerialmap/oam-mirror/pkg/errors"
	"github.com/openaerialmap/oam-mirror/pkg/stats"
)

// New creates a new `stats` command.
func New() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Generate the quarterly statistics report",
		Long: "Compute contributor, image, and coverage area statistics per " +
			"quarter from the OpenAerialMap database, and publish them as " +
			"stats.json and stats.csv.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(configPath); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "",
		"Path to the mirror configuration file")
	return cmd
}

func run(configPath string) error {
	cfg, err := config.Parse(configPath)
	if err != nil {
		return errors.WithContext(err, "parse config")
	}

	uri, err := cfg.MongoURI()
	if err != nil {
		return err
	}

	// The bucket is optional here. Without it the report is still computed
	// and written locally, just not uploaded.
	var store blob.Store
	if blobConfig, err := cfg.BlobConfig(); err == nil {
		s3, err := blob.NewS3(blobConfig)
		if err != nil {
			return errors.WithContext(err, "connect to bucket")
		}
		store = s3
	} else {
		log.WithError(err).Debug("Incomplete bucket settings")
	}

	ctx := context.Background()
	db, err := stats.Connect(ctx, uri, cfg.Database)
	if err != nil {
		return errors.WithContext(err, "connect to mongodb")
	}
	defer db.Client().Disconnect(ctx)

	report, err := stats.NewGenerator(db, store).Run(ctx)
	if err != nil {
		return err
	}

	stats.PrintSummary(os.Stdout, report)
	return nil
}
