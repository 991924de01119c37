// Package rewrite wraps the LLM-assisted transcript rewrite. The model is
// treated as an opaque line rewriter: it gets numbered segment texts and
// must return the same count of numbered lines. Anything else — timeout,
// upstream error, malformed reply — is an error the pipeline degrades
// around; this package never invents output.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"coachscribe/internal/upstream/llm"
)

const systemPrompt = `You are a transcript editor for coaching session transcripts. You receive numbered transcript lines from speech-to-text output.

Your job, per line:
- Fix punctuation, casing and obvious transcription noise.
- Add sentence-final punctuation where it is missing.
- Preserve the speaker's words and meaning exactly; never paraphrase.

Output rules:
- Return exactly the same number of lines, in the same order.
- Prefix every line with its original number and a colon, e.g. "3: text".
- Never merge, split, reorder or drop lines.
- Return nothing besides the numbered lines.`

type ChatClient interface {
	ChatCompletion(ctx context.Context, req llm.ChatCompletionRequest) (llm.ChatCompletionResponse, error)
}

type Service struct {
	client  ChatClient
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

type Result struct {
	Lines []string
	Usage *llm.TokenUsage
}

func New(client ChatClient, model string, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:  client,
		model:   strings.TrimSpace(model),
		timeout: timeout,
		logger:  logger,
	}
}

var numberedLine = regexp.MustCompile(`^\s*(\d+)\s*[:.]\s?(.*)$`)

// Rewrite sends the segment texts through the model once, retrying a single
// time on transient upstream failure. The returned lines are positionally
// aligned with the input.
func (s *Service) Rewrite(ctx context.Context, lines []string, language string) (Result, error) {
	if len(lines) == 0 {
		return Result{}, nil
	}

	req := llm.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.0,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: s.userMessage(lines, language)},
		},
	}

	resp, err := s.attempt(ctx, req)
	if err != nil && retryable(ctx, err) {
		s.logger.Warn("rewrite attempt failed, retrying once", "error", err)
		resp, err = s.attempt(ctx, req)
	}
	if err != nil {
		return Result{}, err
	}

	out, err := parseNumberedLines(resp.Content, len(lines))
	if err != nil {
		return Result{}, err
	}
	return Result{Lines: out, Usage: resp.Usage}, nil
}

func (s *Service) attempt(ctx context.Context, req llm.ChatCompletionRequest) (llm.ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.ChatCompletion(ctx, req)
}

func (s *Service) userMessage(lines []string, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n\nTranscript lines:\n", language)
	for i, line := range lines {
		fmt.Fprintf(&b, "%d: %s\n", i+1, strings.TrimSpace(line))
	}
	return b.String()
}

// retryable: one retry is allowed on upstream 5xx/429 or a per-attempt
// timeout, but not when the parent context itself is done and not on 4xx —
// a rejected request will be rejected again.
func retryable(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	var upstreamErr *llm.Error
	if errors.As(err, &upstreamErr) {
		return upstreamErr.StatusCode >= http.StatusInternalServerError ||
			upstreamErr.StatusCode == http.StatusTooManyRequests
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// parseNumberedLines decodes the model reply. Every input index must appear
// exactly once; any mismatch fails the whole rewrite rather than guessing an
// alignment.
func parseNumberedLines(content string, want int) ([]string, error) {
	out := make([]string, want)
	seen := make(map[int]bool, want)

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > want {
			return nil, fmt.Errorf("rewrite returned line number %q outside 1..%d", m[1], want)
		}
		if seen[idx] {
			return nil, fmt.Errorf("rewrite returned line %d twice", idx)
		}
		seen[idx] = true
		out[idx-1] = m[2]
	}

	if len(seen) != want {
		return nil, fmt.Errorf("rewrite returned %d lines, want %d", len(seen), want)
	}
	return out, nil
}
