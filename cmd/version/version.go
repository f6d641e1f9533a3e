package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openaerialmap/oam-mirror/pkg/version"
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of oam-mirror.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("oam-mirror version: %s\n", version.Version)
		},
	}
}
