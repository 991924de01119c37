// Package stats derives speaking-time figures from resolved segments. It is
// recomputed from scratch on every role edit; nothing here caches.
package stats

import (
	"sort"

	"coachscribe/internal/transcript"
)

// SpeakingStats is the per-transcript speaking time report. Times are
// seconds; percentages are of total speaking time and sum to 100 whenever
// any speaking time was attributed.
type SpeakingStats struct {
	CoachTime         float64 `json:"coach_time"`
	ClientTime        float64 `json:"client_time"`
	TotalSpeakingTime float64 `json:"total_speaking_time"`
	CoachPct          float64 `json:"coach_pct"`
	ClientPct         float64 `json:"client_pct"`
	SilenceTime       float64 `json:"silence_time"`
}

// Compute accumulates durations per resolved role. Segments resolving to
// unknown are excluded from speaking time but still bound the transcript
// span. Input order is not trusted; segments are sorted by start first.
// Total transcript duration runs from the earliest start to the latest end,
// never from zero.
func Compute(segments []transcript.Segment, resolve func(transcript.Segment) transcript.Role) SpeakingStats {
	if len(segments) == 0 || resolve == nil {
		return SpeakingStats{}
	}

	sorted := make([]transcript.Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	firstStart := sorted[0].Start
	lastEnd := sorted[0].End
	var coach, client float64
	for _, seg := range sorted {
		if seg.End > lastEnd {
			lastEnd = seg.End
		}
		switch resolve(seg) {
		case transcript.RoleCoach:
			coach += seg.Duration()
		case transcript.RoleClient:
			client += seg.Duration()
		}
	}

	out := SpeakingStats{
		CoachTime:         coach,
		ClientTime:        client,
		TotalSpeakingTime: coach + client,
	}
	if out.TotalSpeakingTime > 0 {
		out.CoachPct = coach / out.TotalSpeakingTime * 100
		out.ClientPct = client / out.TotalSpeakingTime * 100
	}

	total := lastEnd - firstStart
	if silence := total - out.TotalSpeakingTime; silence > 0 {
		out.SilenceTime = silence
	}
	return out
}
