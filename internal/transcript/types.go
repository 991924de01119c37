package transcript

import (
	"fmt"
	"math"
	"strings"
)

// Role is the business-level identity of a segment, distinct from the raw
// diarization speaker label.
type Role string

const (
	RoleCoach   Role = "coach"
	RoleClient  Role = "client"
	RoleUnknown Role = "unknown"
)

// ParseRole reports whether value names a storable role. Comparison is
// case-insensitive; anything that is not coach/client parses to RoleUnknown
// with ok=false, including the literal string "unknown".
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "coach":
		return RoleCoach, true
	case "client":
		return RoleClient, true
	default:
		return RoleUnknown, false
	}
}

// SpeakerRoleMap is the coarse session-wide default: speaker label → role.
type SpeakerRoleMap map[string]Role

// SegmentRoleMap is the fine-grained per-segment override. It always wins
// over SpeakerRoleMap during resolution.
type SegmentRoleMap map[string]Role

// Word is a single token with its own timing, as produced by the upstream
// transcription source. Offsets are milliseconds from transcript start.
type Word struct {
	Text    string
	StartMS int64
	EndMS   int64
}

// Utterance is the pre-smoothing transcription unit. Immutable once produced
// upstream; the smoothing engine works on its own copies.
type Utterance struct {
	Speaker    string
	StartMS    int64
	EndMS      int64
	Words      []Word
	Confidence *float64
}

func (u Utterance) DurationSec() float64 {
	return float64(u.EndMS-u.StartMS) / 1000.0
}

// Text joins the utterance's words with single spaces.
func (u Utterance) Text() string {
	parts := make([]string, 0, len(u.Words))
	for _, w := range u.Words {
		if w.Text == "" {
			continue
		}
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// Validate reports a DataError for utterances the pipeline must skip:
// inverted timing or an empty word list.
func (u Utterance) Validate() error {
	if u.EndMS < u.StartMS {
		return &DataError{Reason: fmt.Sprintf("utterance end %dms before start %dms", u.EndMS, u.StartMS)}
	}
	if len(u.Words) == 0 {
		return &DataError{Reason: "utterance has no words"}
	}
	return nil
}

// Segment is the post-smoothing unit that gets persisted and displayed.
// Offsets are seconds. Role is the optional embedded role field and takes
// priority over both role maps when set.
type Segment struct {
	ID         string
	Speaker    string
	Start      float64
	End        float64
	Text       string
	Role       string
	Confidence *float64
}

// EffectiveID returns the segment's identifier, deriving the composite
// speaker-plus-start key when no explicit one is set.
func (s Segment) EffectiveID() string {
	if s.ID != "" {
		return s.ID
	}
	return DeriveSegmentID(s.Speaker, s.Start)
}

func (s Segment) Duration() float64 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// DeriveSegmentID builds the stable fallback identifier used everywhere a
// segment is referenced without an explicit ID. Start is truncated to whole
// seconds so the key stays stable across float formatting.
func DeriveSegmentID(speaker string, startSec float64) string {
	return fmt.Sprintf("%s-%d", speaker, int64(math.Floor(startSec)))
}
