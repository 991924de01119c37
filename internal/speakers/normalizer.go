// Package speakers canonicalizes the raw speaker labels emitted by
// diarization. Raw labels are whatever the upstream provider felt like that
// day — "0", "1", "Speaker_1", "A", a display name — and formats can mix
// within one transcript when chunks come from different provider passes.
// That mixing is the defect class this package eliminates: "Speaker_1",
// "speaker 1" and "A" all denote the first speaker and must land on one
// canonical label.
package speakers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"coachscribe/internal/transcript"
)

// CanonicalAlphabet is the ordered set of canonical labels. Coaching
// sessions have two speakers almost always; eight leaves room for group
// sessions.
const CanonicalAlphabet = "ABCDEFGH"

// TooManySpeakersError is fatal to a normalization run: the input needs more
// canonical labels than the alphabet supports. Silently colliding two
// speakers is never acceptable.
type TooManySpeakersError struct {
	Distinct int
	Limit    int
}

func (e *TooManySpeakersError) Error() string {
	return fmt.Sprintf("transcript needs %d speaker labels, at most %d supported", e.Distinct, e.Limit)
}

// AliasTable is the reversible mapping built by Normalize. Original returns
// the first raw label that claimed a canonical one, so for label sets where
// every label names its own speaker, original → canonical → original is the
// identity.
type AliasTable struct {
	toCanonical map[string]string
	toOriginal  map[string]string
	order       []string
}

// Canonical returns the canonical label for a raw one.
func (t *AliasTable) Canonical(original string) (string, bool) {
	c, ok := t.toCanonical[strings.TrimSpace(original)]
	return c, ok
}

// Original returns the raw label a canonical one stands for.
func (t *AliasTable) Original(canonical string) (string, bool) {
	o, ok := t.toOriginal[canonical]
	return o, ok
}

// Canonicals lists the assigned canonical labels in alphabet order.
func (t *AliasTable) Canonicals() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Mapping returns a canonical → original copy suitable for API responses.
func (t *AliasTable) Mapping() map[string]string {
	out := make(map[string]string, len(t.toOriginal))
	for c, o := range t.toOriginal {
		out[c] = o
	}
	return out
}

func (t *AliasTable) Len() int { return len(t.order) }

// Normalize replaces every raw speaker label with a canonical one and
// returns the rewritten utterances plus the alias table. Application is
// all-or-nothing: when the alphabet cannot cover the input, the error is
// returned before any utterance is rewritten — never a partial mapping.
func Normalize(utterances []transcript.Utterance) ([]transcript.Utterance, *AliasTable, error) {
	labels := distinctLabels(utterances)
	assignment, err := assignIndices(labels)
	if err != nil {
		return nil, nil, err
	}

	table := &AliasTable{
		toCanonical: make(map[string]string, len(labels)),
		toOriginal:  make(map[string]string, len(labels)),
	}
	indices := make([]int, 0, len(labels))
	for _, label := range labels {
		idx := assignment[label]
		canonical := string(CanonicalAlphabet[idx])
		table.toCanonical[label] = canonical
		if _, claimed := table.toOriginal[canonical]; !claimed {
			table.toOriginal[canonical] = label
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)
	for _, idx := range indices {
		table.order = append(table.order, string(CanonicalAlphabet[idx]))
	}

	normalized := make([]transcript.Utterance, len(utterances))
	for i, u := range utterances {
		nu := u
		nu.Speaker = table.toCanonical[strings.TrimSpace(u.Speaker)]
		normalized[i] = nu
	}
	return normalized, table, nil
}

func distinctLabels(utterances []transcript.Utterance) []string {
	seen := make(map[string]struct{}, 4)
	order := make([]string, 0, 4)
	for _, u := range utterances {
		label := strings.TrimSpace(u.Speaker)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		order = append(order, label)
	}
	return order
}

type parsedLabel struct {
	raw     string
	index   int // -1 while unresolved
	numeric bool
	value   int
}

// assignIndices maps every distinct raw label to an alphabet index.
// Structured labels (a bare letter, a bare number, or a speaker prefix plus
// either) dictate their index, which is how mixed formats for the same
// speaker converge. Free-text labels fill the remaining slots in order of
// first appearance, and a numeric label whose index falls outside the
// alphabet — diarizers do emit sparse indices like "Speaker_9" — is treated
// as free text rather than an error: only the distinct-label count can
// exhaust the alphabet. Numeric labels within one run are 1-based unless a
// zero appears anywhere, matching both diarization conventions.
func assignIndices(labels []string) (map[string]int, error) {
	parsed := make([]parsedLabel, len(labels))
	zeroBased := false
	for i, label := range labels {
		p := parsedLabel{raw: label, index: -1}
		if idx, ok := letterIndex(label); ok {
			p.index = idx
		} else if n, ok := numericValue(label); ok {
			p.numeric = true
			p.value = n
			if n == 0 {
				zeroBased = true
			}
		}
		parsed[i] = p
	}

	tooMany := &TooManySpeakersError{Distinct: len(labels), Limit: len(CanonicalAlphabet)}
	claimed := make(map[int]struct{}, len(labels))
	assignment := make(map[string]int, len(labels))

	for i := range parsed {
		p := &parsed[i]
		if p.numeric {
			idx := p.value
			if !zeroBased {
				idx--
			}
			if idx >= 0 && idx < len(CanonicalAlphabet) {
				p.index = idx
			}
		}
		if p.index < 0 {
			continue
		}
		claimed[p.index] = struct{}{}
		assignment[p.raw] = p.index
	}

	next := 0
	for _, p := range parsed {
		if _, done := assignment[p.raw]; done {
			continue
		}
		for next < len(CanonicalAlphabet) {
			if _, taken := claimed[next]; !taken {
				break
			}
			next++
		}
		if next >= len(CanonicalAlphabet) {
			return nil, tooMany
		}
		claimed[next] = struct{}{}
		assignment[p.raw] = next
		next++
	}
	return assignment, nil
}

// letterIndex recognizes labels that already carry an alphabet letter:
// "A", "b", "Speaker A".
func letterIndex(label string) (int, bool) {
	rest := stripSpeakerPrefix(label)
	runes := []rune(rest)
	if len(runes) != 1 || !unicode.IsLetter(runes[0]) {
		return 0, false
	}
	idx := int(unicode.ToLower(runes[0]) - 'a')
	if idx < 0 || idx >= len(CanonicalAlphabet) {
		return 0, false
	}
	return idx, true
}

// numericValue recognizes numbered labels: "0", "1", "Speaker_1", "spk 2".
// Digit strings longer than two characters are treated as opaque IDs, not
// speaker numbers.
func numericValue(label string) (int, bool) {
	rest := stripSpeakerPrefix(label)
	if rest == "" || len(rest) > 2 {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func stripSpeakerPrefix(label string) string {
	lower := strings.ToLower(strings.TrimSpace(label))
	for _, prefix := range []string{"speaker", "spk", "sp"} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimLeft(lower[len(prefix):], " _-:.#")
		}
	}
	return lower
}
