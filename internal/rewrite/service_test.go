package rewrite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"coachscribe/internal/upstream/llm"
)

type fakeChatClient struct {
	responses []llm.ChatCompletionResponse
	errs      []error
	calls     int
	requests  []llm.ChatCompletionRequest
}

func (f *fakeChatClient) ChatCompletion(_ context.Context, req llm.ChatCompletionRequest) (llm.ChatCompletionResponse, error) {
	i := f.calls
	f.calls++
	f.requests = append(f.requests, req)
	var resp llm.ChatCompletionResponse
	var err error
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func testService(client ChatClient) *Service {
	return New(client, "test-model", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRewriteParsesNumberedLines(t *testing.T) {
	client := &fakeChatClient{
		responses: []llm.ChatCompletionResponse{{
			Content: "1: Hello there.\n2: How are you?",
			Usage:   &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}},
	}

	result, err := testService(client).Rewrite(context.Background(), []string{"hello there", "how are you"}, "en")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "Hello there." || result.Lines[1] != "How are you?" {
		t.Fatalf("unexpected lines: %v", result.Lines)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}

func TestRewriteToleratesReorderedReply(t *testing.T) {
	client := &fakeChatClient{
		responses: []llm.ChatCompletionResponse{{Content: "2: Second.\n1: First."}},
	}

	result, err := testService(client).Rewrite(context.Background(), []string{"first", "second"}, "en")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if result.Lines[0] != "First." || result.Lines[1] != "Second." {
		t.Fatalf("unexpected lines: %v", result.Lines)
	}
}

func TestRewriteRetriesOnceOnServerError(t *testing.T) {
	client := &fakeChatClient{
		errs: []error{&llm.Error{StatusCode: http.StatusServiceUnavailable}, nil},
		responses: []llm.ChatCompletionResponse{
			{},
			{Content: "1: Recovered."},
		},
	}

	result, err := testService(client).Rewrite(context.Background(), []string{"recovered"}, "en")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if result.Lines[0] != "Recovered." {
		t.Fatalf("unexpected lines: %v", result.Lines)
	}
	if client.calls != 2 {
		t.Fatalf("calls = %d, want 2", client.calls)
	}
}

func TestRewriteDoesNotRetryOnClientError(t *testing.T) {
	upstreamErr := &llm.Error{StatusCode: http.StatusBadRequest}
	client := &fakeChatClient{errs: []error{upstreamErr, upstreamErr}}

	_, err := testService(client).Rewrite(context.Background(), []string{"line"}, "en")
	if err == nil {
		t.Fatal("expected error")
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}

func TestRewriteDoesNotRetryWhenParentContextDone(t *testing.T) {
	client := &fakeChatClient{errs: []error{context.DeadlineExceeded, nil}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testService(client).Rewrite(ctx, []string{"line"}, "en")
	if err == nil {
		t.Fatal("expected error")
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}

func TestRewriteFailsOnLineCountMismatch(t *testing.T) {
	client := &fakeChatClient{
		responses: []llm.ChatCompletionResponse{{Content: "1: Only one line."}},
	}

	_, err := testService(client).Rewrite(context.Background(), []string{"one", "two"}, "en")
	if err == nil {
		t.Fatal("expected error for missing line")
	}
}

func TestRewriteFailsOnDuplicateLineNumber(t *testing.T) {
	client := &fakeChatClient{
		responses: []llm.ChatCompletionResponse{{Content: "1: A.\n1: B."}},
	}

	_, err := testService(client).Rewrite(context.Background(), []string{"a"}, "en")
	if err == nil {
		t.Fatal("expected error for duplicate line")
	}
}

func TestRewriteEmptyInput(t *testing.T) {
	client := &fakeChatClient{}
	result, err := testService(client).Rewrite(context.Background(), nil, "en")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if len(result.Lines) != 0 || client.calls != 0 {
		t.Fatalf("expected no-op, got %v after %d calls", result.Lines, client.calls)
	}
}

func TestRewriteNumbersUserMessageFromOne(t *testing.T) {
	client := &fakeChatClient{
		responses: []llm.ChatCompletionResponse{{Content: "1: ok\n2: ok"}},
	}

	if _, err := testService(client).Rewrite(context.Background(), []string{"first line", "second line"}, "zh"); err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	user := client.requests[0].Messages[1].Content
	if !strings.Contains(user, "1: first line") || !strings.Contains(user, "2: second line") {
		t.Fatalf("user message missing numbered lines:\n%s", user)
	}
	if !strings.Contains(user, "Language: zh") {
		t.Fatalf("user message missing language:\n%s", user)
	}
}

func TestRetryableCoversTimeoutAndRateLimit(t *testing.T) {
	ctx := context.Background()
	if !retryable(ctx, &llm.Error{StatusCode: http.StatusTooManyRequests}) {
		t.Fatal("429 should be retryable")
	}
	if !retryable(ctx, context.DeadlineExceeded) {
		t.Fatal("attempt timeout should be retryable")
	}
	if retryable(ctx, errors.New("parse failure")) {
		t.Fatal("arbitrary error should not be retryable")
	}
}
