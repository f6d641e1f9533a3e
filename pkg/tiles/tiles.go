// Package tiles renders GeoJSON into a PMTiles archive by shelling out to
// tippecanoe.
package tiles

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBinary is the tippecanoe executable looked up on PATH.
	DefaultBinary = "tippecanoe"

	// MinZoom and MaxZoom bound the generated tile pyramid.
	MinZoom = 0
	MaxZoom = 12

	// Layer is the layer name baked into the tileset.
	Layer = "images"
)

// NotInstalledError means the tippecanoe binary isn't on PATH.
type NotInstalledError struct {
	Binary string
}

func (err NotInstalledError) Error() string {
	return fmt.Sprintf("%s not found on PATH", err.Binary)
}

// RunError means tippecanoe ran but didn't produce a tileset.
type RunError struct {
	Err    error
	Stderr string
}

func (err RunError) Error() string {
	if err.Stderr == "" {
		return fmt.Sprintf("tippecanoe failed: %s", err.Err)
	}
	return fmt.Sprintf("tippecanoe failed: %s: %s", err.Err, err.Stderr)
}

// Generator runs tippecanoe.
type Generator struct {
	// Binary overrides DefaultBinary in tests.
	Binary string
}

// NewGenerator creates a Generator that uses the tippecanoe on PATH.
func NewGenerator() Generator {
	return Generator{Binary: DefaultBinary}
}

// Generate renders the GeoJSON file at geojsonPath into a PMTiles archive
// at outputPath.
func (g Generator) Generate(geojsonPath, outputPath string) error {
	binary := g.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	if _, err := exec.LookPath(binary); err != nil {
		return NotInstalledError{Binary: binary}
	}

	args := buildArgs(geojsonPath, outputPath)
	log.Debugf("Running %s %s", binary, strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.Command(binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return RunError{Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}

	// Treat a clean exit without an output file as a failure too.
	if _, err := os.Stat(outputPath); err != nil {
		return RunError{Err: fmt.Errorf("no output produced at %s", outputPath)}
	}
	return nil
}

func buildArgs(geojsonPath, outputPath string) []string {
	return []string{
		"-o", outputPath,
		"-z", strconv.Itoa(MaxZoom),
		"-Z", strconv.Itoa(MinZoom),
		"--force",
		"--no-feature-limit",
		"--no-tile-size-limit",
		"-l", Layer,
		geojsonPath,
	}
}
