package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-journal/inkwell-backend/internal/models"
)

// All bucket boundaries use UTC days, for the heatmap and the trend alike,
// so the two views can never disagree at bucket edges.
const dayFormat = "2006-01-02"

// AnalyticsService derives the dashboard views on demand from the entries
// table. It keeps no state of its own.
type AnalyticsService struct {
	db *sql.DB
}

func NewAnalyticsService(db *sql.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// Dashboard is the full analytics document for one user.
type Dashboard struct {
	Stats        Stats        `json:"stats"`
	MoodChart    MoodChart    `json:"mood_chart"`
	Heatmap      Heatmap      `json:"heatmap"`
	Trend        Trend        `json:"trend"`
	Streaks      Streaks      `json:"streaks"`
	Keywords     []Keyword    `json:"keywords"`
	Productivity Productivity `json:"productivity"`
}

type Stats struct {
	TotalEntries     int    `json:"total_entries"`
	EntriesThisWeek  int    `json:"entries_this_week"`
	EntriesThisMonth int    `json:"entries_this_month"`
	MostCommonMood   string `json:"most_common_mood,omitempty"`
}

// MoodChart holds parallel label/count sequences ordered by descending
// count, ties alphabetical. Entries without a mood are excluded entirely.
type MoodChart struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"data"`
}

type HeatmapPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Heatmap is a gap-free per-day count series over a trailing window. Max is
// the largest daily count so callers can scale intensity in one pass.
type Heatmap struct {
	Points []HeatmapPoint `json:"points"`
	Max    int            `json:"max"`
}

type TrendSeries struct {
	Mood   string `json:"mood"`
	Counts []int  `json:"data"`
}

// Trend carries one zero-filled weekly series per mood in the enumeration,
// aligned with the Weeks labels (ISO weeks, Monday start, UTC).
type Trend struct {
	Weeks  []string      `json:"weeks"`
	Series []TrendSeries `json:"series"`
}

// Streaks tracks consecutive-day writing runs. Current counts back from
// today; one missed UTC day resets it to zero.
type Streaks struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

type Keyword struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Productivity struct {
	ConsistencyPercent float64 `json:"consistency_percent"`
	ActiveDays30       int     `json:"active_days_30"`
	EntriesLast30      int     `json:"entries_last_30"`
	AvgPerActiveDay    float64 `json:"avg_entries_per_active_day"`
	AvgPerDay          float64 `json:"avg_entries_per_day"`
}

// Dashboard assembles every analytics view in a single call. A user with no
// entries gets well-formed zero structures, not an error.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID uuid.UUID, heatmapDays, trendWeeks int) (*Dashboard, error) {
	now := time.Now().UTC()
	if heatmapDays <= 0 {
		heatmapDays = 90
	}
	if trendWeeks <= 0 {
		trendWeeks = 12
	}

	stats, err := s.buildStats(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	moodChart, err := s.buildMoodChart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(moodChart.Labels) > 0 {
		stats.MostCommonMood = moodChart.Labels[0]
	}

	heatmapStart := startOfDayUTC(now).AddDate(0, 0, -(heatmapDays - 1))
	dayCounts, err := s.countPerDay(ctx, userID, heatmapStart)
	if err != nil {
		return nil, err
	}
	heatmap := fillHeatmap(dayCounts, heatmapStart, heatmapDays)

	trendStart := weekStartUTC(now).AddDate(0, 0, -7*(trendWeeks-1))
	trendRows, err := s.countPerWeekAndMood(ctx, userID, trendStart)
	if err != nil {
		return nil, err
	}
	trend := fillTrend(trendRows, trendStart, trendWeeks)

	bodies, err := s.recentBodies(ctx, userID, 30)
	if err != nil {
		return nil, err
	}
	keywords := extractKeywords(bodies, 12)

	last30Start := startOfDayUTC(now).AddDate(0, 0, -29)
	last30Counts, err := s.countPerDay(ctx, userID, last30Start)
	if err != nil {
		return nil, err
	}
	productivity := computeProductivity(last30Counts, 30)

	// Streaks span the whole history, not just the heatmap window.
	allDays, err := s.countPerDay(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	streaks := computeStreaks(allDays, startOfDayUTC(now))

	return &Dashboard{
		Stats:        stats,
		MoodChart:    moodChart,
		Heatmap:      heatmap,
		Trend:        trend,
		Streaks:      streaks,
		Keywords:     keywords,
		Productivity: productivity,
	}, nil
}

func (s *AnalyticsService) buildStats(ctx context.Context, userID uuid.UUID, now time.Time) (Stats, error) {
	var st Stats
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE created_at >= $2),
			COUNT(*) FILTER (WHERE created_at >= $3)
		FROM entries WHERE user_id = $1
	`
	err := s.db.QueryRowContext(ctx, query, userID, now.AddDate(0, 0, -7), now.AddDate(0, 0, -30)).
		Scan(&st.TotalEntries, &st.EntriesThisWeek, &st.EntriesThisMonth)
	if err != nil {
		return Stats{}, fmt.Errorf("entry stats: %w", err)
	}
	return st, nil
}

func (s *AnalyticsService) buildMoodChart(ctx context.Context, userID uuid.UUID) (MoodChart, error) {
	chart := MoodChart{Labels: []string{}, Counts: []int{}}
	query := `
		SELECT mood, COUNT(*) FROM entries
		WHERE user_id = $1 AND mood IS NOT NULL
		GROUP BY mood
		ORDER BY COUNT(*) DESC, mood ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return chart, fmt.Errorf("mood distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mood string
		var count int
		if err := rows.Scan(&mood, &count); err != nil {
			return chart, fmt.Errorf("scan mood row: %w", err)
		}
		chart.Labels = append(chart.Labels, mood)
		chart.Counts = append(chart.Counts, count)
	}
	return chart, rows.Err()
}

// countPerDay returns entry counts keyed by UTC calendar day since start.
func (s *AnalyticsService) countPerDay(ctx context.Context, userID uuid.UUID, start time.Time) (map[string]int, error) {
	query := `
		SELECT (created_at AT TIME ZONE 'UTC')::date AS d, COUNT(*)
		FROM entries
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY d
		ORDER BY d
	`
	rows, err := s.db.QueryContext(ctx, query, userID, start)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var d time.Time
		var c int
		if err := rows.Scan(&d, &c); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		counts[d.Format(dayFormat)] = c
	}
	return counts, rows.Err()
}

type weekMoodCount struct {
	week  string
	mood  string
	count int
}

// countPerWeekAndMood buckets moody entries by ISO week start since start.
func (s *AnalyticsService) countPerWeekAndMood(ctx context.Context, userID uuid.UUID, start time.Time) ([]weekMoodCount, error) {
	query := `
		SELECT date_trunc('week', created_at AT TIME ZONE 'UTC')::date AS w, mood, COUNT(*)
		FROM entries
		WHERE user_id = $1 AND mood IS NOT NULL AND created_at >= $2
		GROUP BY w, mood
		ORDER BY w, mood
	`
	rows, err := s.db.QueryContext(ctx, query, userID, start)
	if err != nil {
		return nil, fmt.Errorf("weekly mood counts: %w", err)
	}
	defer rows.Close()

	var out []weekMoodCount
	for rows.Next() {
		var w time.Time
		var r weekMoodCount
		if err := rows.Scan(&w, &r.mood, &r.count); err != nil {
			return nil, fmt.Errorf("scan weekly mood count: %w", err)
		}
		r.week = w.Format(dayFormat)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *AnalyticsService) recentBodies(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	query := `
		SELECT body FROM entries WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent bodies: %w", err)
	}
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scan body: %w", err)
		}
		bodies = append(bodies, b)
	}
	return bodies, rows.Err()
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStartUTC returns the UTC midnight of the Monday of t's ISO week.
func weekStartUTC(t time.Time) time.Time {
	d := startOfDayUTC(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// fillHeatmap expands sparse per-day counts into a gap-free window of
// exactly `days` points starting at start.
func fillHeatmap(counts map[string]int, start time.Time, days int) Heatmap {
	hm := Heatmap{Points: make([]HeatmapPoint, 0, days)}
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(dayFormat)
		c := counts[day]
		if c > hm.Max {
			hm.Max = c
		}
		hm.Points = append(hm.Points, HeatmapPoint{Date: day, Count: c})
	}
	return hm
}

// fillTrend expands sparse (week, mood) counts into one zero-filled series
// per mood in the enumeration, aligned with the week labels.
func fillTrend(rows []weekMoodCount, start time.Time, weeks int) Trend {
	weekIndex := make(map[string]int, weeks)
	tr := Trend{Weeks: make([]string, 0, weeks)}
	for i := 0; i < weeks; i++ {
		w := start.AddDate(0, 0, 7*i).Format(dayFormat)
		weekIndex[w] = i
		tr.Weeks = append(tr.Weeks, w)
	}

	byMood := make(map[string][]int, len(models.Moods))
	for _, mood := range models.Moods {
		byMood[mood] = make([]int, weeks)
	}
	for _, r := range rows {
		idx, ok := weekIndex[r.week]
		if !ok {
			continue
		}
		if series, ok := byMood[r.mood]; ok {
			series[idx] = r.count
		}
	}

	for _, mood := range models.Moods {
		tr.Series = append(tr.Series, TrendSeries{Mood: mood, Counts: byMood[mood]})
	}
	return tr
}

// extractKeywords counts lowercase tokens of at least 4 characters across
// the given bodies and returns the top `limit`, ties alphabetical.
func extractKeywords(bodies []string, limit int) []Keyword {
	counts := make(map[string]int)
	for _, body := range bodies {
		for _, word := range strings.Fields(body) {
			token := strings.ToLower(strings.Trim(word, ".,;:!?\"'()[]"))
			if len(token) < 4 {
				continue
			}
			counts[token]++
		}
	}

	keywords := make([]Keyword, 0, len(counts))
	for label, count := range counts {
		keywords = append(keywords, Keyword{Label: label, Count: count})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Label < keywords[j].Label
	})
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}

// computeStreaks derives writing streaks from the set of UTC days that have
// at least one entry. The current streak walks back day by day from today;
// the best streak is the longest consecutive run anywhere in the history.
func computeStreaks(dayCounts map[string]int, today time.Time) Streaks {
	var st Streaks
	for d := today; dayCounts[d.Format(dayFormat)] > 0; d = d.AddDate(0, 0, -1) {
		st.Current++
	}

	for day := range dayCounts {
		start, err := time.Parse(dayFormat, day)
		if err != nil || dayCounts[day] == 0 {
			continue
		}
		// Only count runs from their first day.
		if dayCounts[start.AddDate(0, 0, -1).Format(dayFormat)] > 0 {
			continue
		}
		run := 0
		for d := start; dayCounts[d.Format(dayFormat)] > 0; d = d.AddDate(0, 0, 1) {
			run++
		}
		if run > st.Best {
			st.Best = run
		}
	}
	return st
}

// computeProductivity summarizes writing consistency over a trailing window.
func computeProductivity(dayCounts map[string]int, days int) Productivity {
	p := Productivity{ActiveDays30: len(dayCounts)}
	for _, c := range dayCounts {
		p.EntriesLast30 += c
	}
	if p.ActiveDays30 > 0 {
		p.AvgPerActiveDay = round2(float64(p.EntriesLast30) / float64(p.ActiveDays30))
	}
	if days > 0 {
		p.AvgPerDay = round2(float64(p.EntriesLast30) / float64(days))
		p.ConsistencyPercent = round2(float64(p.ActiveDays30) / float64(days) * 100)
	}
	return p
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
