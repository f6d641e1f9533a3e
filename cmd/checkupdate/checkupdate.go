package checkupdate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/openaerialmap/oam-mirror/cmd/util"
	"github.com/openaerialmap/oam-mirror/pkg/errors"
	"github.com/openaerialmap/oam-mirror/pkg/version"
)

// Mocked for unit testing.
var (
	releaseEndpoint           = "https://api.github.com/repos/openaerialmap/oam-mirror/releases/latest"
	stdout          io.Writer = os.Stdout
)

// New creates a new `check-update` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "check-update",
		Short: "Check whether a newer release of the CLI is available",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	fmt.Fprintf(stdout, "Your oam-mirror CLI is at version: %s\n", version.Version)
	if version.Version == version.EmptyValue {
		fmt.Fprintln(stdout, "This is a development build, skipping the update check.")
		return nil
	}

	current, err := goversion.NewVersion(version.Version)
	if err != nil {
		return errors.WithContext(err, "parse current version")
	}

	pp := util.NewProgressPrinter(stdout, "Checking for updates to the "+
		"oam-mirror CLI..")
	go pp.Run()
	latest, err := fetchLatestVersion()
	pp.StopWithPrint(util.ClearProgress)
	if err != nil {
		return errors.WithContext(err, "fetch latest release")
	}

	fmt.Fprintf(stdout, "The latest release is: %s\n\n", latest.String())
	if latest.LessThanOrEqual(current) {
		fmt.Fprintln(stdout, "You're up to date.")
		return nil
	}

	fmt.Fprintf(stdout, "A newer release is available. Download it from:\n"+
		"\thttps://github.com/openaerialmap/oam-mirror/releases/tag/v%s\n",
		latest.String())
	return nil
}

func fetchLatestVersion() (*goversion.Version, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(releaseEndpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server responded with %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, errors.WithContext(err, "decode release")
	}

	latest, err := goversion.NewVersion(release.TagName)
	if err != nil {
		return nil, errors.WithContext(err, "parse release tag")
	}
	return latest, nil
}
