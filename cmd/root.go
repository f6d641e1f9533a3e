package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openaerialmap/oam-mirror/cmd/checkupdate"
	mirrorCmd "github.com/openaerialmap/oam-mirror/cmd/mirror"
	statsCmd "github.com/openaerialmap/oam-mirror/cmd/stats"
	"github.com/openaerialmap/oam-mirror/cmd/status"
	"github.com/openaerialmap/oam-mirror/cmd/util"
	"github.com/openaerialmap/oam-mirror/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "OAM_MIRROR_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:          "oam-mirror",
		Short:        "Mirror the OpenAerialMap catalog to cloud-native formats",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		checkupdate.New(),
		mirrorCmd.New(),
		statsCmd.New(),
		status.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
