// Package metrics derives display values from the backend's aggregated
// metrics DTO. Every function is a pure, total function of its input so the
// views never fabricate data they could not have computed.
package metrics

import "sort"

// Stress categories by score, lower bound inclusive.
const (
	StressLow      = "Low"
	StressModerate = "Moderate"
	StressHigh     = "High"
	StressCritical = "Critical"
)

// StressLabel buckets a 0-100 stress score into its category.
func StressLabel(score float64) string {
	switch {
	case score < 30:
		return StressLow
	case score < 60:
		return StressModerate
	case score < 80:
		return StressHigh
	default:
		return StressCritical
	}
}

// StressColor returns the accent color for a stress score, using the same
// thresholds as StressLabel.
func StressColor(score float64) string {
	switch {
	case score < 30:
		return "#10b981"
	case score < 60:
		return "#f59e0b"
	case score < 80:
		return "#f97316"
	default:
		return "#ef4444"
	}
}

// StressSummary pairs a stress score with its display label and color.
type StressSummary struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
	Color string  `json:"color"`
}

// EmotionShare is one emotion's slice of the distribution.
type EmotionShare struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// EmotionShares converts raw emotion counts into percentages of the total,
// sorted descending by share (ties broken by name for stable output).
// Percentages round down so the shares never sum past 100. A zero or empty
// distribution yields zero percentages, never a division error.
func EmotionShares(counts map[string]int) []EmotionShare {
	total := 0
	for _, count := range counts {
		if count > 0 {
			total += count
		}
	}

	shares := make([]EmotionShare, 0, len(counts))
	for emotion, count := range counts {
		if count < 0 {
			count = 0
		}
		percent := 0
		if total > 0 {
			percent = count * 100 / total
		}
		shares = append(shares, EmotionShare{Emotion: emotion, Count: count, Percent: percent})
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Percent != shares[j].Percent {
			return shares[i].Percent > shares[j].Percent
		}
		return shares[i].Emotion < shares[j].Emotion
	})
	return shares
}

// DominantEmotion returns the largest share of the distribution, or "" when
// the distribution is empty.
func DominantEmotion(counts map[string]int) string {
	shares := EmotionShares(counts)
	if len(shares) == 0 || shares[0].Count == 0 {
		return ""
	}
	return shares[0].Emotion
}

var weekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// TrendPoint is one weekday's value of a trend series.
type TrendPoint struct {
	Day   string  `json:"day"`
	Value float64 `json:"value"`
}

// WeekdayTrend maps a weekday-indexed series (Monday first) onto labeled
// points. Short series are padded with zeros and long series truncated so the
// result always covers exactly one week.
func WeekdayTrend(values []float64) []TrendPoint {
	points := make([]TrendPoint, len(weekdayLabels))
	for i, day := range weekdayLabels {
		value := 0.0
		if i < len(values) {
			value = values[i]
		}
		points[i] = TrendPoint{Day: day, Value: value}
	}
	return points
}
