package stats

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	q1 := quarter{Year: 2023, Q: 4}
	q2 := quarter{Year: 2024, Q: 1}
	q3 := quarter{Year: 2024, Q: 2}

	contributors := map[quarter]int{q1: 5, q2: 3}
	counts := map[quarter]imageCounts{
		q1: {images: 100, uav: 40},
		q2: {images: 50, uav: 10},
		q3: {images: 7, uav: 0},
	}
	areas := map[quarter]float64{q1: 12.504, q2: 99.996}
	cumulative := map[quarter]int{q1: 5, q2: 7}

	report := buildReport(now, contributors, counts, areas, cumulative)
	require.Len(t, report.Quarters, 3)

	assert.Equal(t, Row{
		Year: 2023, Quarter: 4, Period: "2023 Q4",
		Contributors: 5, Images: 100, UAVImages: 40, AreaSqKm: 12.5,
		CumulativeContributors: 5, CumulativeImages: 100,
		CumulativeUAVImages: 40, CumulativeAreaSqKm: 12.5,
	}, report.Quarters[0])
	assert.Equal(t, Row{
		Year: 2024, Quarter: 1, Period: "2024 Q1",
		Contributors: 3, Images: 50, UAVImages: 10, AreaSqKm: 100,
		CumulativeContributors: 7, CumulativeImages: 150,
		CumulativeUAVImages: 50, CumulativeAreaSqKm: 112.5,
	}, report.Quarters[1])

	// No uploads in 2024 Q2, so the unique-contributor count carries
	// forward instead of dropping to zero.
	assert.Equal(t, Row{
		Year: 2024, Quarter: 2, Period: "2024 Q2",
		Contributors: 0, Images: 7, UAVImages: 0, AreaSqKm: 0,
		CumulativeContributors: 7, CumulativeImages: 157,
		CumulativeUAVImages: 50, CumulativeAreaSqKm: 112.5,
	}, report.Quarters[2])

	assert.Equal(t, now, report.GeneratedAt)
	assert.Equal(t, 157, report.TotalImages)
	assert.Equal(t, 50, report.TotalUAVImages)
	assert.Equal(t, 112.5, report.TotalAreaSqKm)
	assert.Equal(t, 7, report.TotalContributors)
}

func TestBuildReportEmpty(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	report := buildReport(now, map[quarter]int{}, map[quarter]imageCounts{},
		map[quarter]float64{}, map[quarter]int{})

	assert.Empty(t, report.Quarters)
	assert.Equal(t, 0, report.TotalImages)
	assert.Equal(t, 0, report.TotalContributors)
}

func TestAccumulateUsers(t *testing.T) {
	quarterUsers := map[quarter]map[string]struct{}{
		{Year: 2023, Q: 4}: {"alice": {}, "bob": {}},
		{Year: 2024, Q: 1}: {"bob": {}, "carol": {}},
		{Year: 2024, Q: 2}: {"alice": {}},
	}

	assert.Equal(t, map[quarter]int{
		{Year: 2023, Q: 4}: 2,
		{Year: 2024, Q: 1}: 3,
		{Year: 2024, Q: 2}: 3,
	}, accumulateUsers(quarterUsers))
}

func TestToCSV(t *testing.T) {
	rows := []Row{
		{
			Period: "2023 Q4", Contributors: 5, Images: 100, UAVImages: 40,
			AreaSqKm: 12.5, CumulativeContributors: 5, CumulativeImages: 100,
			CumulativeUAVImages: 40, CumulativeAreaSqKm: 12.5,
		},
		{
			Period: "2024 Q1", Contributors: 3, Images: 50, UAVImages: 10,
			AreaSqKm: 100, CumulativeContributors: 7, CumulativeImages: 150,
			CumulativeUAVImages: 50, CumulativeAreaSqKm: 112.5,
		},
	}

	data, err := toCSV(rows)
	require.NoError(t, err)
	assert.Equal(t,
		"period,contributors,images,uav_images,area_sq_km,"+
			"cumulative_contributors,cumulative_images,"+
			"cumulative_uav_images,cumulative_area_sq_km\n"+
			"2023 Q4,5,100,40,12.5,5,100,40,12.5\n"+
			"2024 Q1,3,50,10,100,7,150,50,112.5\n",
		string(data))
}

func TestPrintSummary(t *testing.T) {
	report := Report{
		TotalImages:       157,
		TotalUAVImages:    50,
		TotalAreaSqKm:     112.5,
		TotalContributors: 7,
		Quarters: []Row{
			{
				Period: "2023 Q4", Contributors: 5, Images: 100,
				UAVImages: 40, AreaSqKm: 12.5,
				CumulativeContributors: 5, CumulativeImages: 100,
				CumulativeUAVImages: 40, CumulativeAreaSqKm: 12.5,
			},
		},
	}

	var out bytes.Buffer
	PrintSummary(&out, report)

	assert.Contains(t, out.String(), "=== OAM Quarterly Stats ===")
	assert.Contains(t, out.String(), "2023 Q4")
	assert.Contains(t, out.String(), "12.50")
	assert.Contains(t, out.String(),
		"Total: 157 images, 50 UAV, 112.50 sq km, 7 contributors")
}
