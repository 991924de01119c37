// Package pipeline runs one ingestion/optimization pass over a transcript:
// speaker normalization, boundary smoothing, the LLM rewrite, and the
// deterministic punctuation cleanup, in that order. The pass is
// all-or-nothing — a cancelled or failed run returns an error and no
// segments, so callers never persist a half-processed transcript.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"coachscribe/internal/punctuation"
	"coachscribe/internal/rewrite"
	"coachscribe/internal/roles"
	"coachscribe/internal/smoothing"
	"coachscribe/internal/speakers"
	"coachscribe/internal/transcript"
	"coachscribe/internal/upstream/llm"
)

const (
	RewriteSucceeded = "rewrite succeeded"
	RewriteFellBack  = "rewrite failed, using smoothed text"
	RewriteNotNeeded = "nothing to rewrite"
)

type Smoother interface {
	Smooth(utterances []transcript.Utterance, cfg smoothing.Config, language string) ([]transcript.Segment, smoothing.Stats)
}

type Rewriter interface {
	Rewrite(ctx context.Context, lines []string, language string) (rewrite.Result, error)
}

type Service struct {
	smoother Smoother
	rewriter Rewriter
	defaults *smoothing.DefaultsTable
	logger   *slog.Logger
}

type OptimizeInput struct {
	Utterances []transcript.Utterance
	Language   string
	Override   *smoothing.Override
}

type Timings struct {
	Smoothing time.Duration
	Rewrite   time.Duration
	Total     time.Duration
}

type OptimizeResult struct {
	RunID    string
	Language string
	Segments []transcript.Segment
	// Aliases maps canonical speaker labels back to the raw diarization
	// labels for this run.
	Aliases map[string]string
	// DefaultSpeakerRoles is the one-shot initialization policy's output
	// for a brand-new transcript. Callers persist it once; resolution
	// never re-derives it.
	DefaultSpeakerRoles transcript.SpeakerRoleMap
	Stats               smoothing.Stats
	RewriteStatus       string
	RewriteUsage        *llm.TokenUsage
	Timings             Timings
}

func New(smoother Smoother, rewriter Rewriter, defaults *smoothing.DefaultsTable, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		smoother: smoother,
		rewriter: rewriter,
		defaults: defaults,
		logger:   logger,
	}
}

func (s *Service) Optimize(ctx context.Context, in OptimizeInput) (OptimizeResult, error) {
	started := time.Now()
	runID := uuid.NewString()

	normalized, aliases, err := speakers.Normalize(in.Utterances)
	if err != nil {
		return OptimizeResult{}, err
	}

	language := s.defaults.ResolveLanguage(in.Language, normalized)
	cfg := s.defaults.ForLanguage(language).Apply(in.Override)

	smoothingStarted := time.Now()
	segments, smoothStats := s.smoother.Smooth(normalized, cfg, language)
	smoothingDuration := time.Since(smoothingStarted)

	if err := ctx.Err(); err != nil {
		return OptimizeResult{}, err
	}

	rewriteStarted := time.Now()
	status, usage := s.applyRewrite(ctx, segments, language)
	rewriteDuration := time.Since(rewriteStarted)
	if err := ctx.Err(); err != nil {
		return OptimizeResult{}, err
	}

	for i := range segments {
		text := segments[i].Text
		if !utf8.ValidString(text) {
			s.logger.Warn("segment text is not valid UTF-8, passing through",
				"run_id", runID, "segment_id", segments[i].ID)
		}
		segments[i].Text = punctuation.Clean(text, language)
	}

	result := OptimizeResult{
		RunID:               runID,
		Language:            language,
		Segments:            segments,
		Aliases:             aliases.Mapping(),
		DefaultSpeakerRoles: roles.InitializeDefaultRoles(aliases.Canonicals()),
		Stats:               smoothStats,
		RewriteStatus:       status,
		RewriteUsage:        usage,
		Timings: Timings{
			Smoothing: smoothingDuration,
			Rewrite:   rewriteDuration,
			Total:     time.Since(started),
		},
	}

	s.logger.Info("optimization pass complete",
		"run_id", runID,
		"language", language,
		"segments", len(result.Segments),
		"skipped_utterances", smoothStats.SkippedUtteranceCount,
		"moved_words", smoothStats.MovedWordCount,
		"merged_segments", smoothStats.MergedSegmentCount,
		"rewrite_status", status,
		"duration_ms", result.Timings.Total.Milliseconds(),
	)
	return result, nil
}

// applyRewrite mutates segment texts in place on success. On failure the
// smoothed texts stay as they are — a readable transcript beats a failed
// run.
func (s *Service) applyRewrite(ctx context.Context, segments []transcript.Segment, language string) (string, *llm.TokenUsage) {
	if len(segments) == 0 {
		return RewriteNotNeeded, nil
	}

	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = seg.Text
	}

	res, err := s.rewriter.Rewrite(ctx, lines, language)
	if err != nil {
		s.logger.Warn("rewrite failed, keeping smoothed text", "error", err)
		return RewriteFellBack, nil
	}

	for i := range segments {
		if text := strings.TrimSpace(res.Lines[i]); text != "" {
			segments[i].Text = text
		}
	}
	return RewriteSucceeded, res.Usage
}
