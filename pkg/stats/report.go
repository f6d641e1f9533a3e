package stats

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// buildReport merges the per-quarter metrics into the sorted table with
// cumulative totals. Quarters missing a cumulative-contributor entry carry
// the previous quarter's count forward, so the column stays a true unique
// count throughout.
func buildReport(now time.Time, contributors map[quarter]int,
	counts map[quarter]imageCounts, areas map[quarter]float64,
	cumulativeContributors map[quarter]int) Report {

	keySet := map[quarter]struct{}{}
	for key := range contributors {
		keySet[key] = struct{}{}
	}
	for key := range counts {
		keySet[key] = struct{}{}
	}
	for key := range areas {
		keySet[key] = struct{}{}
	}
	keys := sortedQuarters(keySet)

	rows := []Row{}
	runningContributors := 0
	runningImages, runningUAV := 0, 0
	runningArea := 0.0
	for _, key := range keys {
		quarterCounts := counts[key]
		quarterArea := areas[key]
		runningImages += quarterCounts.images
		runningUAV += quarterCounts.uav
		runningArea += quarterArea
		if cumulative, ok := cumulativeContributors[key]; ok {
			runningContributors = cumulative
		}

		rows = append(rows, Row{
			Year:                   key.Year,
			Quarter:                key.Q,
			Period:                 key.String(),
			Contributors:           contributors[key],
			Images:                 quarterCounts.images,
			UAVImages:              quarterCounts.uav,
			AreaSqKm:               round2(quarterArea),
			CumulativeContributors: runningContributors,
			CumulativeImages:       runningImages,
			CumulativeUAVImages:    runningUAV,
			CumulativeAreaSqKm:     round2(runningArea),
		})
	}

	report := Report{GeneratedAt: now, Quarters: rows}
	totalArea := 0.0
	for _, row := range rows {
		report.TotalImages += row.Images
		report.TotalUAVImages += row.UAVImages
		totalArea += row.AreaSqKm
	}
	report.TotalAreaSqKm = round2(totalArea)
	if len(rows) > 0 {
		report.TotalContributors = rows[len(rows)-1].CumulativeContributors
	}
	return report
}

// accumulateUsers turns per-quarter user sets into the running unique
// count per quarter.
func accumulateUsers(quarterUsers map[quarter]map[string]struct{}) map[quarter]int {
	keySet := map[quarter]struct{}{}
	for key := range quarterUsers {
		keySet[key] = struct{}{}
	}

	seen := map[string]struct{}{}
	cumulative := map[quarter]int{}
	for _, key := range sortedQuarters(keySet) {
		for user := range quarterUsers[key] {
			seen[user] = struct{}{}
		}
		cumulative[key] = len(seen)
	}
	return cumulative
}

func sortedQuarters(keySet map[quarter]struct{}) []quarter {
	keys := make([]quarter, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].before(keys[j])
	})
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var csvHeader = []string{
	"period", "contributors", "images", "uav_images", "area_sq_km",
	"cumulative_contributors", "cumulative_images",
	"cumulative_uav_images", "cumulative_area_sq_km",
}

func toCSV(rows []Row) ([]byte, error) {
	var out bytes.Buffer
	writer := csv.NewWriter(&out)
	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.Period,
			strconv.Itoa(row.Contributors),
			strconv.Itoa(row.Images),
			strconv.Itoa(row.UAVImages),
			formatArea(row.AreaSqKm),
			strconv.Itoa(row.CumulativeContributors),
			strconv.Itoa(row.CumulativeImages),
			strconv.Itoa(row.CumulativeUAVImages),
			formatArea(row.CumulativeAreaSqKm),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func formatArea(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PrintSummary renders the human-readable table the cron job mails out.
func PrintSummary(w io.Writer, report Report) {
	fmt.Fprintf(w, "\n=== OAM Quarterly Stats ===\n\n")
	fmt.Fprintf(w, "%-12s %8s %8s %8s %12s  %12s %12s %10s %12s\n",
		"Period", "Contrib", "Images", "UAV", "Area km2",
		"Cum Contrib", "Cum Images", "Cum UAV", "Cum km2")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, row := range report.Quarters {
		fmt.Fprintf(w, "%-12s %8d %8d %8d %12.2f  %12d %12d %10d %12.2f\n",
			row.Period, row.Contributors, row.Images, row.UAVImages,
			row.AreaSqKm, row.CumulativeContributors, row.CumulativeImages,
			row.CumulativeUAVImages, row.CumulativeAreaSqKm)
	}
	fmt.Fprintf(w, "\nTotal: %d images, %d UAV, %.2f sq km, %d contributors\n",
		report.TotalImages, report.TotalUAVImages, report.TotalAreaSqKm,
		report.TotalContributors)
}
