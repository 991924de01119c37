// Package roles answers "which party said this" from the three role sources
// the platform keeps: the role embedded on a segment, the per-segment
// override map, and the session-wide per-speaker map. Resolution is a pure
// function of those inputs; the "first speaker is coach" guess lives only in
// the one-shot initialization policy, never in resolution.
package roles

import (
	"fmt"

	"coachscribe/internal/transcript"
)

// roleSource is one entry in the tagged priority list Resolve walks. Keeping
// the chain as data instead of cascading conditionals is what lets display,
// export and statistics all share a single resolver.
type roleSource struct {
	name   string
	lookup func() (string, bool)
}

// Resolve applies the priority chain: embedded segment role, then the
// per-segment map, then the per-speaker map. The first source holding a
// recognizable coach/client value wins; sources holding unrecognized strings
// are passed over, and when nothing matches the result is RoleUnknown —
// never a positional guess.
func Resolve(seg transcript.Segment, segmentRoles transcript.SegmentRoleMap, speakerRoles transcript.SpeakerRoleMap) transcript.Role {
	sources := []roleSource{
		{name: "segment", lookup: func() (string, bool) {
			return seg.Role, seg.Role != ""
		}},
		{name: "segment_map", lookup: func() (string, bool) {
			r, ok := segmentRoles[seg.EffectiveID()]
			return string(r), ok
		}},
		{name: "speaker_map", lookup: func() (string, bool) {
			r, ok := speakerRoles[seg.Speaker]
			return string(r), ok
		}},
	}

	for _, src := range sources {
		raw, ok := src.lookup()
		if !ok {
			continue
		}
		if role, recognized := transcript.ParseRole(raw); recognized {
			return role
		}
	}
	return transcript.RoleUnknown
}

// ResolverFor binds the two maps into the single-segment function consumed
// by the statistics calculator and exporters.
func ResolverFor(segmentRoles transcript.SegmentRoleMap, speakerRoles transcript.SpeakerRoleMap) func(transcript.Segment) transcript.Role {
	return func(seg transcript.Segment) transcript.Role {
		return Resolve(seg, segmentRoles, speakerRoles)
	}
}

// InitializeDefaultRoles is the one place positional role guessing is
// allowed: called exactly once when a brand-new transcript is ingested, it
// seeds the speaker map with coach for the first speaker and client for the
// second. Later speakers stay unassigned. It must never be invoked from
// resolution or statistics code paths.
func InitializeDefaultRoles(speakerIDs []string) transcript.SpeakerRoleMap {
	m := make(transcript.SpeakerRoleMap, 2)
	seen := make(map[string]struct{}, len(speakerIDs))
	assigned := 0
	for _, id := range speakerIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		switch assigned {
		case 0:
			m[id] = transcript.RoleCoach
		case 1:
			m[id] = transcript.RoleClient
		default:
			return m
		}
		assigned++
	}
	return m
}

// MergeSegmentRoles validates updates and merges them into a copy of the
// current per-segment map. Every update must name a non-empty segment and a
// role in {coach, client}; "unknown" is a resolution outcome, never a stored
// value. On any invalid entry the error is returned and current is left
// untouched.
func MergeSegmentRoles(current transcript.SegmentRoleMap, updates map[string]string) (transcript.SegmentRoleMap, error) {
	parsed := make(transcript.SegmentRoleMap, len(updates))
	for segmentID, raw := range updates {
		if segmentID == "" {
			return nil, &transcript.ValidationError{Field: "segment_id", Reason: "must not be empty"}
		}
		role, ok := transcript.ParseRole(raw)
		if !ok {
			return nil, &transcript.ValidationError{
				Field:  "role",
				Reason: fmt.Sprintf("%q is not one of coach, client", raw),
			}
		}
		parsed[segmentID] = role
	}

	merged := make(transcript.SegmentRoleMap, len(current)+len(parsed))
	for id, role := range current {
		merged[id] = role
	}
	for id, role := range parsed {
		merged[id] = role
	}
	return merged, nil
}
