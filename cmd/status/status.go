package status

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openaerialmap/oam-mirror/cmd/util"
	"github.com/openaerialmap/oam-mirror/pkg/blob"
	"github.com/openaerialmap/oam-mirror/pkg/config"
	"github.com/openaerialmap/oam-mirror/pkg/errors"
	"github.com/openaerialmap/oam-mirror/pkg/mirror"
	"github.com/openaerialmap/oam-mirror/pkg/state"
)

// maxListed caps how many record ids get printed per section so that a
// badly diverged bucket doesn't flood the terminal.
const maxListed = 10

// New creates a new `status` command.
func New() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Compare the sync state against the bucket contents",
		Long: "Fetch the persisted sync state and list the metadata objects " +
			"actually present in the bucket, then report any images that " +
			"are tracked but missing, or present but untracked.",
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

	tracker := state.NewTracker(store)
	if err := tracker.Load(); err != nil {
		return errors.WithContext(err, "load sync state")
	}

	pp := util.NewProgressPrinter(os.Stdout, "Inspecting bucket..")
	go pp.Run()
	keys, err := store.List(mirror.MetaPrefix)
	pp.StopWithPrint(util.ClearProgress)
	if err != nil {
		return errors.WithContext(err, "list bucket")
	}

	buildReport(tracker.IDs(), keys).print(os.Stdout)
	return nil
}

// report summarizes how the persisted sync state lines up with the metadata
// objects actually in the bucket.
type report struct {
	tracked int
	objects int
	missing []string
	extra   []string
}

func buildReport(tracked, keys []string) report {
	r := report{tracked: len(tracked), objects: len(keys)}

	inBucket := map[string]bool{}
	for _, key := range keys {
		inBucket[strings.TrimPrefix(key, mirror.MetaPrefix)] = true
	}

	inState := map[string]bool{}
	for _, id := range tracked {
		inState[id] = true
		if !inBucket[id] {
			r.missing = append(r.missing, id)
		}
	}
	for id := range inBucket {
		if !inState[id] {
			r.extra = append(r.extra, id)
		}
	}

	sort.Strings(r.missing)
	sort.Strings(r.extra)
	return r
}

func (r report) print(w io.Writer) {
	fmt.Fprintf(w, "State: %d images tracked\n", r.tracked)
	fmt.Fprintf(w, "Bucket: %d metadata objects under %s\n", r.objects,
		mirror.MetaPrefix)

	if len(r.missing) == 0 && len(r.extra) == 0 {
		fmt.Fprintln(w, "\nState and bucket are in sync.")
		return
	}

	printSection(w, "Tracked but missing from the bucket", r.missing)
	printSection(w, "In the bucket but not tracked", r.extra)
	fmt.Fprintln(w, "\nRun `oam-mirror mirror` to reconcile, or delete "+
		state.Key+" to force a full re-sync.")
}

func printSection(w io.Writer, header string, ids []string) {
	if len(ids) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s (%d):\n", header, len(ids))
	for i, id := range ids {
		if i == maxListed {
			fmt.Fprintf(w, "\t...and %d more\n", len(ids)-maxListed)
			return
		}
		fmt.Fprintf(w, "\t* %s\n", id)
	}
}
