package mirror

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openaerialmap/oam-mirror/cmd/util"
	"github.com/openaerialmap/oam-mirror/pkg/blob"
	"github.com/openaerialmap/oam-mirror/pkg/catalog"
	"github.com/openaerialmap/oam-mirror/pkg/config"
	"github.com/openaerialmap/oam-mirror/pkg/errors"
	"github.com/openaerialmap/oam-mirror/pkg/mirror"
	"github.com/openaerialmap/oam-mirror/pkg/tiles"
)

// New creates a new `mirror` command.
func New() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Sync the OpenAerialMap catalog into the bucket",
		Long: "Fetch the full OpenAerialMap image catalog and upload the " +
			"images that changed since the last run, along with the " +
			"regenerated GeoJSON and PMTiles artifacts.",
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

	blobConfig, err := cfg.BlobConfig()
	if err != nil {
		return err
	}

	store, err := blob.NewS3(blobConfig)
	if err != nil {
		return errors.WithContext(err, "connect to bucket")
	}

	source := catalog.NewClient(cfg.API)
	summary, err := mirror.New(source, store, tiles.NewGenerator()).Run()
	if err != nil {
		return err
	}

	fmt.Printf("Mirror complete in %s.\n", summary.Duration.Round(time.Second))
	fmt.Printf("\t* Images in catalog: %d\n", summary.TotalRecords)
	fmt.Printf("\t* Images uploaded: %d\n", summary.Uploaded)
	if summary.Uploaded > 0 {
		fmt.Printf("\t* Features in all_images.geojson: %d\n", summary.Features)
		if summary.TiledArtifact {
			fmt.Println("\t* PMTiles artifact regenerated")
		} else {
			fmt.Println("\t* PMTiles artifact skipped")
		}
	}
	return nil
}
