package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-journal/inkwell-backend/internal/models"
)

func newAnalyticsWithMock(t *testing.T) (*AnalyticsService, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewAnalyticsService(db), mock, db
}

func day(s string) time.Time {
	d, err := time.Parse(dayFormat, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFillHeatmapZeroFillsWindow(t *testing.T) {
	// Three consecutive days with counts [2, 0, 1].
	counts := map[string]int{
		"2026-08-01": 2,
		"2026-08-03": 1,
	}
	hm := fillHeatmap(counts, day("2026-08-01"), 3)

	require.Len(t, hm.Points, 3)
	assert.Equal(t, HeatmapPoint{Date: "2026-08-01", Count: 2}, hm.Points[0])
	assert.Equal(t, HeatmapPoint{Date: "2026-08-02", Count: 0}, hm.Points[1])
	assert.Equal(t, HeatmapPoint{Date: "2026-08-03", Count: 1}, hm.Points[2])
	assert.Equal(t, 2, hm.Max)

	total := 0
	for _, p := range hm.Points {
		total += p.Count
	}
	assert.Equal(t, 3, total, "heatmap total must equal entries in window")
}

func TestFillHeatmapEmpty(t *testing.T) {
	hm := fillHeatmap(map[string]int{}, day("2026-08-01"), 7)
	require.Len(t, hm.Points, 7)
	assert.Equal(t, 0, hm.Max)
	for _, p := range hm.Points {
		assert.Equal(t, 0, p.Count)
	}
}

func TestFillTrendZeroFillsEveryMoodAndWeek(t *testing.T) {
	start := day("2026-07-27") // a Monday
	rows := []weekMoodCount{
		{week: "2026-07-27", mood: "happy", count: 2},
		{week: "2026-08-10", mood: "happy", count: 1},
		{week: "2026-08-03", mood: "tired", count: 4},
	}
	tr := fillTrend(rows, start, 3)

	assert.Equal(t, []string{"2026-07-27", "2026-08-03", "2026-08-10"}, tr.Weeks)
	require.Len(t, tr.Series, len(models.Moods), "one series per mood in the enumeration")

	byMood := map[string][]int{}
	for _, s := range tr.Series {
		require.Len(t, s.Counts, 3, "every series must span every bucket")
		byMood[s.Mood] = s.Counts
	}
	assert.Equal(t, []int{2, 0, 1}, byMood["happy"])
	assert.Equal(t, []int{0, 4, 0}, byMood["tired"])
	assert.Equal(t, []int{0, 0, 0}, byMood["calm"])
}

func TestFillTrendIgnoresRowsOutsideWindow(t *testing.T) {
	start := day("2026-08-03")
	rows := []weekMoodCount{{week: "2026-07-20", mood: "happy", count: 9}}
	tr := fillTrend(rows, start, 2)
	for _, s := range tr.Series {
		assert.Equal(t, []int{0, 0}, s.Counts)
	}
}

func TestWeekStartUTC(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-08-24", "2026-08-24"}, // Monday maps to itself
		{"2026-08-29", "2026-08-24"}, // Saturday
		{"2026-08-30", "2026-08-24"}, // Sunday belongs to the preceding Monday
	}
	for _, tt := range tests {
		got := weekStartUTC(day(tt.in))
		assert.Equal(t, tt.want, got.Format(dayFormat))
	}
}

func TestHeatmapAndTrendShareDayBoundaries(t *testing.T) {
	// 23:59 UTC stays on its UTC day for both views.
	late := time.Date(2026, 8, 29, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-29", startOfDayUTC(late).Format(dayFormat))
	assert.Equal(t, "2026-08-24", weekStartUTC(late).Format(dayFormat))
}

func TestExtractKeywords(t *testing.T) {
	bodies := []string{
		"Today the garden was quiet. Garden work, garden peace!",
		"The sun was warm; quiet afternoon in the garden.",
	}
	keywords := extractKeywords(bodies, 3)

	require.NotEmpty(t, keywords)
	assert.Equal(t, Keyword{Label: "garden", Count: 4}, keywords[0])
	for _, k := range keywords {
		assert.GreaterOrEqual(t, len(k.Label), 4, "short tokens are dropped")
	}
}

func TestExtractKeywordsEmptyBodies(t *testing.T) {
	assert.Empty(t, extractKeywords(nil, 12))
	assert.Empty(t, extractKeywords([]string{"", "a an it"}, 12))
}

func TestComputeStreaks(t *testing.T) {
	today := day("2026-08-29")

	tests := []struct {
		name string
		days map[string]int
		want Streaks
	}{
		{"no entries", map[string]int{}, Streaks{}},
		{
			"run ending today",
			map[string]int{"2026-08-27": 1, "2026-08-28": 2, "2026-08-29": 1},
			Streaks{Current: 3, Best: 3},
		},
		{
			"missed day resets current but not best",
			map[string]int{"2026-08-20": 1, "2026-08-21": 1, "2026-08-22": 1, "2026-08-29": 1},
			Streaks{Current: 1, Best: 3},
		},
		{
			"no entry today means no current streak",
			map[string]int{"2026-08-27": 1, "2026-08-28": 1},
			Streaks{Current: 0, Best: 2},
		},
		{
			"best run predates the current one",
			map[string]int{
				"2026-08-01": 1, "2026-08-02": 1, "2026-08-03": 1, "2026-08-04": 1,
				"2026-08-28": 1, "2026-08-29": 1,
			},
			Streaks{Current: 2, Best: 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, computeStreaks(tt.days, today))
		})
	}
}

func TestComputeProductivity(t *testing.T) {
	counts := map[string]int{"2026-08-01": 2, "2026-08-02": 1, "2026-08-10": 3}
	p := computeProductivity(counts, 30)

	assert.Equal(t, 3, p.ActiveDays30)
	assert.Equal(t, 6, p.EntriesLast30)
	assert.Equal(t, 2.0, p.AvgPerActiveDay)
	assert.Equal(t, 0.2, p.AvgPerDay)
	assert.Equal(t, 10.0, p.ConsistencyPercent)
}

func TestComputeProductivityNoEntries(t *testing.T) {
	p := computeProductivity(map[string]int{}, 30)
	assert.Equal(t, Productivity{}, p)
}

func TestBuildMoodChartOrdering(t *testing.T) {
	svc, mock, db := newAnalyticsWithMock(t)
	defer db.Close()

	userID := uuid.New()
	rows := sqlmock.NewRows([]string{"mood", "count"}).
		AddRow("calm", 5).
		AddRow("happy", 5).
		AddRow("tired", 2)

	mock.ExpectQuery(`SELECT mood, COUNT\(\*\) FROM entries\s+WHERE user_id = \$1 AND mood IS NOT NULL`).
		WithArgs(userID).
		WillReturnRows(rows)

	chart, err := svc.buildMoodChart(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, []string{"calm", "happy", "tired"}, chart.Labels)
	assert.Equal(t, []int{5, 5, 2}, chart.Counts)

	sum := 0
	for _, c := range chart.Counts {
		sum += c
	}
	assert.Equal(t, 12, sum, "counts must sum to the moody entries")
}

func TestBuildMoodChartNoEntries(t *testing.T) {
	svc, mock, db := newAnalyticsWithMock(t)
	defer db.Close()

	userID := uuid.New()
	mock.ExpectQuery(`SELECT mood, COUNT\(\*\) FROM entries`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"mood", "count"}))

	chart, err := svc.buildMoodChart(context.Background(), userID)
	require.NoError(t, err)
	assert.NotNil(t, chart.Labels)
	assert.NotNil(t, chart.Counts)
	assert.Empty(t, chart.Labels)
}

func TestDashboardZeroEntries(t *testing.T) {
	svc, mock, db := newAnalyticsWithMock(t)
	defer db.Close()

	userID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WithArgs(userID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"c1", "c2", "c3"}).AddRow(0, 0, 0))
	mock.ExpectQuery(`SELECT mood, COUNT\(\*\) FROM entries`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"mood", "count"}))
	mock.ExpectQuery(`SELECT \(created_at AT TIME ZONE 'UTC'\)::date`).
		WithArgs(userID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"d", "count"}))
	mock.ExpectQuery(`SELECT date_trunc\('week'`).
		WithArgs(userID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"w", "mood", "count"}))
	mock.ExpectQuery(`SELECT body FROM entries`).
		WithArgs(userID, 30).
		WillReturnRows(sqlmock.NewRows([]string{"body"}))
	mock.ExpectQuery(`SELECT \(created_at AT TIME ZONE 'UTC'\)::date`).
		WithArgs(userID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"d", "count"}))
	mock.ExpectQuery(`SELECT \(created_at AT TIME ZONE 'UTC'\)::date`).
		WithArgs(userID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"d", "count"}))

	dash, err := svc.Dashboard(context.Background(), userID, 7, 4)
	require.NoError(t, err, "zero entries must not be an error")

	assert.Equal(t, 0, dash.Stats.TotalEntries)
	assert.Empty(t, dash.Stats.MostCommonMood)
	assert.Empty(t, dash.MoodChart.Labels)
	assert.Len(t, dash.Heatmap.Points, 7)
	assert.Equal(t, 0, dash.Heatmap.Max)
	assert.Len(t, dash.Trend.Weeks, 4)
	assert.Len(t, dash.Trend.Series, len(models.Moods))
	assert.Equal(t, Streaks{}, dash.Streaks)
	assert.Equal(t, Productivity{}, dash.Productivity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
