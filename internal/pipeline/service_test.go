package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"coachscribe/internal/rewrite"
	"coachscribe/internal/smoothing"
	"coachscribe/internal/speakers"
	"coachscribe/internal/transcript"
	"coachscribe/internal/upstream/llm"
)

type fakeRewriter struct {
	err   error
	calls int
	lines []string
}

func (f *fakeRewriter) Rewrite(_ context.Context, lines []string, _ string) (rewrite.Result, error) {
	f.calls++
	f.lines = lines
	if f.err != nil {
		return rewrite.Result{}, f.err
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = "Rewritten: " + line
	}
	return rewrite.Result{Lines: out, Usage: &llm.TokenUsage{TotalTokens: 42}}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testService(rewriter Rewriter) *Service {
	logger := testLogger()
	return New(smoothing.New(logger), rewriter, smoothing.BuiltinDefaults(), logger)
}

func sampleUtterances() []transcript.Utterance {
	return []transcript.Utterance{
		{Speaker: "Speaker_1", StartMS: 0, EndMS: 2000, Words: []transcript.Word{
			{Text: "good", StartMS: 0, EndMS: 1000},
			{Text: "morning.", StartMS: 1000, EndMS: 2000},
		}},
		{Speaker: "Speaker_2", StartMS: 5000, EndMS: 7000, Words: []transcript.Word{
			{Text: "morning", StartMS: 5000, EndMS: 6000},
			{Text: "coach.", StartMS: 6000, EndMS: 7000},
		}},
	}
}

func TestOptimizeSuccess(t *testing.T) {
	rewriter := &fakeRewriter{}
	result, err := testService(rewriter).Optimize(context.Background(), OptimizeInput{
		Utterances: sampleUtterances(),
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id")
	}
	if result.Language != "en" {
		t.Fatalf("language = %q, want en", result.Language)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(result.Segments))
	}
	if result.Segments[0].Text != "Rewritten: good morning." {
		t.Fatalf("unexpected text: %q", result.Segments[0].Text)
	}
	if result.RewriteStatus != RewriteSucceeded {
		t.Fatalf("rewrite_status = %q", result.RewriteStatus)
	}
	if result.RewriteUsage == nil || result.RewriteUsage.TotalTokens != 42 {
		t.Fatalf("unexpected usage: %+v", result.RewriteUsage)
	}
	if result.Aliases["A"] != "Speaker_1" || result.Aliases["B"] != "Speaker_2" {
		t.Fatalf("unexpected aliases: %v", result.Aliases)
	}
	if result.DefaultSpeakerRoles["A"] != transcript.RoleCoach || result.DefaultSpeakerRoles["B"] != transcript.RoleClient {
		t.Fatalf("unexpected default roles: %v", result.DefaultSpeakerRoles)
	}
}

func TestOptimizeFallsBackWhenRewriteFails(t *testing.T) {
	rewriter := &fakeRewriter{err: &llm.Error{StatusCode: 503}}
	result, err := testService(rewriter).Optimize(context.Background(), OptimizeInput{
		Utterances: sampleUtterances(),
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if result.RewriteStatus != RewriteFellBack {
		t.Fatalf("rewrite_status = %q, want fallback", result.RewriteStatus)
	}
	if result.Segments[0].Text != "good morning." {
		t.Fatalf("smoothed text not preserved: %q", result.Segments[0].Text)
	}
	if result.RewriteUsage != nil {
		t.Fatalf("usage should be nil on fallback: %+v", result.RewriteUsage)
	}
}

func TestOptimizeCleansRewrittenText(t *testing.T) {
	// The deterministic cleanup runs after the rewrite, so stray spacing
	// from the model never reaches the caller.
	rewriter := &spacedRewriter{}
	result, err := testService(rewriter).Optimize(context.Background(), OptimizeInput{
		Utterances: sampleUtterances()[:1],
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if result.Segments[0].Text != "Good morning, everyone." {
		t.Fatalf("unexpected text: %q", result.Segments[0].Text)
	}
}

type spacedRewriter struct{}

func (*spacedRewriter) Rewrite(_ context.Context, lines []string, _ string) (rewrite.Result, error) {
	out := make([]string, len(lines))
	for i := range lines {
		out[i] = "Good   morning ,  everyone."
	}
	return rewrite.Result{Lines: out}, nil
}

func TestOptimizePropagatesTooManySpeakers(t *testing.T) {
	names := []string{"Anna", "Ben", "Cleo", "Dmitri", "Elif", "Farah", "Gus", "Hana", "Ivo"}
	utterances := make([]transcript.Utterance, len(names))
	for i, name := range names {
		start := int64(i) * 1000
		utterances[i] = transcript.Utterance{
			Speaker: name, StartMS: start, EndMS: start + 900,
			Words: []transcript.Word{{Text: "hi", StartMS: start, EndMS: start + 900}},
		}
	}

	rewriter := &fakeRewriter{}
	_, err := testService(rewriter).Optimize(context.Background(), OptimizeInput{Utterances: utterances})

	var tooMany *speakers.TooManySpeakersError
	if !errors.As(err, &tooMany) {
		t.Fatalf("expected TooManySpeakersError, got %v", err)
	}
	if rewriter.calls != 0 {
		t.Fatalf("rewrite should not run after normalization failure, calls = %d", rewriter.calls)
	}
}

func TestOptimizeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testService(&fakeRewriter{}).Optimize(ctx, OptimizeInput{
		Utterances: sampleUtterances(),
		Language:   "en",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOptimizeEmptyUtterances(t *testing.T) {
	rewriter := &fakeRewriter{}
	result, err := testService(rewriter).Optimize(context.Background(), OptimizeInput{Language: "en"})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if result.RewriteStatus != RewriteNotNeeded {
		t.Fatalf("rewrite_status = %q, want %q", result.RewriteStatus, RewriteNotNeeded)
	}
	if rewriter.calls != 0 {
		t.Fatalf("rewrite should not run for empty input, calls = %d", rewriter.calls)
	}
}

func TestOptimizeAutoDetectsLanguage(t *testing.T) {
	utterances := []transcript.Utterance{{
		Speaker: "A", StartMS: 0, EndMS: 1000,
		Words: []transcript.Word{{Text: "這是測試", StartMS: 0, EndMS: 1000}},
	}}

	result, err := testService(&fakeRewriter{}).Optimize(context.Background(), OptimizeInput{
		Utterances: utterances,
		Language:   "auto",
	})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if result.Language != "zh" {
		t.Fatalf("language = %q, want zh", result.Language)
	}
}
