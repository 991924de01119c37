// Package smoothing repairs the segment boundaries that STT and diarization
// get wrong: short interjections split into their own turns, filler tokens
// attributed to the wrong speaker, echoed words duplicated across a turn
// change, and sentences chopped in half. The four heuristics run as a fixed,
// documented pipeline over an evolving utterance buffer — later heuristics
// assume earlier ones already committed.
package smoothing

import (
	"log/slog"
	"strings"
	"time"

	"coachscribe/internal/punctuation"
	"coachscribe/internal/transcript"
)

// HeuristicHits counts how many times each smoothing rule fired during one
// run. Every application increments exactly one counter.
type HeuristicHits struct {
	ShortFirstSegment     int `json:"short_first_segment"`
	FillerWord            int `json:"filler_word"`
	EchoBackfill          int `json:"echo_backfill"`
	NoTerminalPunctuation int `json:"no_terminal_punctuation"`
}

// Stats is the per-run report of one smoothing pass.
type Stats struct {
	Language              string        `json:"language"`
	MovedWordCount        int           `json:"moved_word_count"`
	MergedSegmentCount    int           `json:"merged_segment_count"`
	SkippedUtteranceCount int           `json:"skipped_utterance_count"`
	Duration              time.Duration `json:"-"`
	DurationMS            int64         `json:"duration_ms"`
	Hits                  HeuristicHits `json:"heuristic_hits"`
}

type Engine struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// workUtt is the engine's mutable copy of an utterance. The input utterances
// themselves are never modified.
type workUtt struct {
	speaker    string
	startMS    int64
	endMS      int64
	words      []transcript.Word
	confidence *float64
}

func (w *workUtt) text() string {
	parts := make([]string, 0, len(w.words))
	for _, word := range w.words {
		if word.Text == "" {
			continue
		}
		parts = append(parts, word.Text)
	}
	return strings.Join(parts, " ")
}

type step struct {
	name  string
	apply func(buf []*workUtt, cfg Config, st *Stats) []*workUtt
}

// Smooth runs the ordered heuristic pipeline and emits final segments plus
// the run report. Malformed utterances are skipped and counted, never fatal.
func (e *Engine) Smooth(utterances []transcript.Utterance, cfg Config, lang string) ([]transcript.Segment, Stats) {
	started := time.Now()
	st := Stats{Language: lang}

	buf := make([]*workUtt, 0, len(utterances))
	for i, u := range utterances {
		if err := u.Validate(); err != nil {
			st.SkippedUtteranceCount++
			e.logger.Warn("skipping malformed utterance", "index", i, "speaker", u.Speaker, "error", err)
			continue
		}
		words := make([]transcript.Word, len(u.Words))
		copy(words, u.Words)
		buf = append(buf, &workUtt{
			speaker:    u.Speaker,
			startMS:    u.StartMS,
			endMS:      u.EndMS,
			words:      words,
			confidence: u.Confidence,
		})
	}

	steps := []step{
		{name: "short_head_migration", apply: e.shortHeadMigration},
		{name: "filler_reassignment", apply: e.fillerReassignment},
		{name: "echo_backfill", apply: e.echoBackfill},
		{name: "sentence_merge", apply: e.sentenceMerge},
	}
	for _, s := range steps {
		buf = s.apply(buf, cfg, &st)
	}

	segments := make([]transcript.Segment, 0, len(buf))
	for _, w := range buf {
		if len(w.words) == 0 {
			continue
		}
		startSec := float64(w.startMS) / 1000.0
		seg := transcript.Segment{
			Speaker:    w.speaker,
			Start:      startSec,
			End:        float64(w.endMS) / 1000.0,
			Text:       w.text(),
			Confidence: w.confidence,
		}
		seg.ID = transcript.DeriveSegmentID(seg.Speaker, seg.Start)
		segments = append(segments, seg)
	}

	st.Duration = time.Since(started)
	st.DurationMS = st.Duration.Milliseconds()
	return segments, st
}

// shortHeadMigration moves a short leading word block across a turn change
// back into the previous speaker's utterance. Models STT splitting a brief
// interjection into a turn of its own. Bounded by MaxMoveSec per boundary.
func (e *Engine) shortHeadMigration(buf []*workUtt, cfg Config, st *Stats) []*workUtt {
	out := make([]*workUtt, 0, len(buf))
	for _, cur := range buf {
		if len(out) == 0 {
			out = append(out, cur)
			continue
		}
		prev := out[len(out)-1]
		if cur.speaker == prev.speaker || gapSec(prev, cur) >= cfg.GapSec {
			out = append(out, cur)
			continue
		}
		block := leadingBlock(cur.words, cfg.ShortHeadSec, cfg.MaxMoveSec)
		if block == 0 {
			out = append(out, cur)
			continue
		}

		moved := cur.words[:block]
		prev.words = append(prev.words, moved...)
		if end := moved[len(moved)-1].EndMS; end > prev.endMS {
			prev.endMS = end
		}
		st.MovedWordCount += block
		st.Hits.ShortFirstSegment++

		if block == len(cur.words) {
			// Whole utterance absorbed by the previous turn.
			if cur.endMS > prev.endMS {
				prev.endMS = cur.endMS
			}
			st.MergedSegmentCount++
			continue
		}
		cur.words = cur.words[block:]
		cur.startMS = cur.words[0].StartMS
		out = append(out, cur)
	}
	return out
}

// leadingBlock returns how many leading words form a block whose total span
// stays under shortHeadSec, capped at maxMoveSec. Zero means the head is too
// long to be a misattributed interjection.
func leadingBlock(words []transcript.Word, shortHeadSec, maxMoveSec float64) int {
	if len(words) == 0 {
		return 0
	}
	start := words[0].StartMS
	n := 0
	for _, w := range words {
		span := float64(w.EndMS-start) / 1000.0
		if span >= shortHeadSec || span > maxMoveSec {
			break
		}
		n++
	}
	return n
}

// fillerReassignment merges an isolated filler token into whichever
// neighboring turn it acoustically overlaps more with. Only neighbors within
// the turn-gap bound are candidates; a filler seconds away from both stays a
// segment of its own.
func (e *Engine) fillerReassignment(buf []*workUtt, cfg Config, st *Stats) []*workUtt {
	fillers := make(map[string]struct{}, len(cfg.Fillers))
	for _, f := range cfg.Fillers {
		fillers[normalizeToken(f)] = struct{}{}
	}

	out := make([]*workUtt, 0, len(buf))
	for i := 0; i < len(buf); i++ {
		cur := buf[i]
		if !isIsolatedFiller(cur, fillers, cfg.FillerMaxSec) {
			out = append(out, cur)
			continue
		}

		var prev *workUtt
		if len(out) > 0 {
			prev = out[len(out)-1]
		}
		var next *workUtt
		if i+1 < len(buf) {
			next = buf[i+1]
		}
		if prev != nil && gapSec(prev, cur) >= cfg.GapSec {
			prev = nil
		}
		if next != nil && gapSec(cur, next) >= cfg.GapSec {
			next = nil
		}

		target := closerNeighbor(cur, prev, next)
		if target == nil {
			out = append(out, cur)
			continue
		}
		if target == prev {
			prev.words = append(prev.words, cur.words...)
			if cur.endMS > prev.endMS {
				prev.endMS = cur.endMS
			}
		} else {
			next.words = append(cur.words, next.words...)
			if cur.startMS < next.startMS {
				next.startMS = cur.startMS
			}
		}
		st.Hits.FillerWord++
		st.MergedSegmentCount++
	}
	return out
}

func isIsolatedFiller(u *workUtt, fillers map[string]struct{}, maxSec float64) bool {
	if len(u.words) != 1 {
		return false
	}
	if float64(u.endMS-u.startMS)/1000.0 >= maxSec {
		return false
	}
	_, ok := fillers[normalizeToken(u.words[0].Text)]
	return ok
}

// closerNeighbor prefers the neighbor with the larger acoustic overlap, then
// the smaller gap.
func closerNeighbor(cur, prev, next *workUtt) *workUtt {
	if prev == nil {
		return next
	}
	if next == nil {
		return prev
	}
	prevOverlap := float64(prev.endMS - cur.startMS)
	nextOverlap := float64(cur.endMS - next.startMS)
	if prevOverlap > 0 || nextOverlap > 0 {
		if prevOverlap >= nextOverlap {
			return prev
		}
		return next
	}
	if -prevOverlap <= -nextOverlap {
		return prev
	}
	return next
}

// echoBackfill removes a near-duplicate tail echoed at the start of the next
// speaker's turn. STT sometimes hears the end of one turn twice when
// speakers overlap.
func (e *Engine) echoBackfill(buf []*workUtt, cfg Config, st *Stats) []*workUtt {
	const maxEchoWords = 3

	out := make([]*workUtt, 0, len(buf))
	for _, cur := range buf {
		if len(out) == 0 {
			out = append(out, cur)
			continue
		}
		prev := out[len(out)-1]
		if cur.speaker == prev.speaker || gapSec(prev, cur) >= cfg.GapSec {
			out = append(out, cur)
			continue
		}

		n := echoedPrefixLen(prev.words, cur.words, maxEchoWords)
		if n == 0 {
			out = append(out, cur)
			continue
		}
		st.Hits.EchoBackfill++
		if n == len(cur.words) {
			st.MergedSegmentCount++
			continue
		}
		cur.words = cur.words[n:]
		cur.startMS = cur.words[0].StartMS
		out = append(out, cur)
	}
	return out
}

// echoedPrefixLen finds the longest n ≤ max where the last n words of prev
// equal the first n words of cur, compared case-insensitively with
// punctuation stripped.
func echoedPrefixLen(prev, cur []transcript.Word, max int) int {
	limit := max
	if len(prev) < limit {
		limit = len(prev)
	}
	if len(cur) < limit {
		limit = len(cur)
	}
	for n := limit; n >= 1; n-- {
		match := true
		for k := 0; k < n; k++ {
			a := normalizeToken(prev[len(prev)-n+k].Text)
			b := normalizeToken(cur[k].Text)
			if a == "" || a != b {
				match = false
				break
			}
		}
		if match {
			return n
		}
	}
	return 0
}

// sentenceMerge joins a same-speaker continuation onto an utterance that
// ended mid-sentence. Tiny fragments are not merge targets; that guard keeps
// a chain of fragments from snowballing into one giant segment.
func (e *Engine) sentenceMerge(buf []*workUtt, cfg Config, st *Stats) []*workUtt {
	out := make([]*workUtt, 0, len(buf))
	for _, cur := range buf {
		if len(out) == 0 {
			out = append(out, cur)
			continue
		}
		prev := out[len(out)-1]
		prevText := prev.text()
		switch {
		case cur.speaker != prev.speaker,
			gapSec(prev, cur) >= cfg.SentGapSec,
			punctuation.HasTerminalPunctuation(prevText),
			len([]rune(prevText)) < cfg.MinSentenceLength:
			out = append(out, cur)
			continue
		}

		prev.words = append(prev.words, cur.words...)
		if cur.endMS > prev.endMS {
			prev.endMS = cur.endMS
		}
		st.Hits.NoTerminalPunctuation++
		st.MergedSegmentCount++
	}
	return out
}

func gapSec(prev, cur *workUtt) float64 {
	return float64(cur.startMS-prev.endMS) / 1000.0
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimFunc(s, func(r rune) bool {
		switch r {
		case '.', ',', '!', '?', ';', ':', '、', '。', '，', '！', '？':
			return true
		}
		return false
	})
}
