package smoothing

import "fmt"

// Config holds the named thresholds one smoothing run works with. Supplied
// per language and immutable for the duration of the run.
type Config struct {
	// ShortHeadSec: leading word blocks shorter than this are candidates
	// for migration into the previous speaker's turn.
	ShortHeadSec float64 `yaml:"th_short_head_sec"`
	// FillerMaxSec: an isolated filler token longer than this is treated
	// as a real turn, not noise.
	FillerMaxSec float64 `yaml:"th_filler_max_sec"`
	// GapSec: maximum silence between turns for cross-speaker heuristics.
	GapSec float64 `yaml:"th_gap_sec"`
	// MaxMoveSec: cap on how much audio may move across one boundary.
	MaxMoveSec float64 `yaml:"th_max_move_sec"`
	// SentGapSec: maximum gap for merging same-speaker continuations.
	SentGapSec float64 `yaml:"th_sent_gap_sec"`
	// MinSentenceLength: segments shorter than this many characters are
	// not merge targets for the sentence merge heuristic.
	MinSentenceLength int `yaml:"min_sentence_length"`
	// Fillers is the language-specific filler token list.
	Fillers []string `yaml:"fillers"`
}

func (c Config) Validate() error {
	if c.ShortHeadSec <= 0 || c.FillerMaxSec <= 0 || c.GapSec <= 0 || c.MaxMoveSec <= 0 || c.SentGapSec <= 0 {
		return fmt.Errorf("smoothing thresholds must be > 0: %+v", c)
	}
	if c.MinSentenceLength < 0 {
		return fmt.Errorf("min_sentence_length must be >= 0")
	}
	return nil
}

// Override is a partial Config supplied per request; nil fields fall back to
// the language defaults.
type Override struct {
	ShortHeadSec      *float64 `json:"th_short_head_sec,omitempty"`
	FillerMaxSec      *float64 `json:"th_filler_max_sec,omitempty"`
	GapSec            *float64 `json:"th_gap_sec,omitempty"`
	MaxMoveSec        *float64 `json:"th_max_move_sec,omitempty"`
	SentGapSec        *float64 `json:"th_sent_gap_sec,omitempty"`
	MinSentenceLength *int     `json:"min_sentence_length,omitempty"`
}

// Apply returns a copy of c with the override's non-nil fields substituted.
func (c Config) Apply(o *Override) Config {
	if o == nil {
		return c
	}
	if o.ShortHeadSec != nil {
		c.ShortHeadSec = *o.ShortHeadSec
	}
	if o.FillerMaxSec != nil {
		c.FillerMaxSec = *o.FillerMaxSec
	}
	if o.GapSec != nil {
		c.GapSec = *o.GapSec
	}
	if o.MaxMoveSec != nil {
		c.MaxMoveSec = *o.MaxMoveSec
	}
	if o.SentGapSec != nil {
		c.SentGapSec = *o.SentGapSec
	}
	if o.MinSentenceLength != nil {
		c.MinSentenceLength = *o.MinSentenceLength
	}
	return c
}
