package model

import "coachscribe/internal/smoothing"

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type ReadyResponse struct {
	OK          bool   `json:"ok"`
	ServiceName string `json:"service_name,omitempty"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type WordPayload struct {
	Text    string `json:"text"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

type UtterancePayload struct {
	Speaker    string        `json:"speaker"`
	StartMS    int64         `json:"start_ms"`
	EndMS      int64         `json:"end_ms"`
	Words      []WordPayload `json:"words"`
	Confidence *float64      `json:"confidence,omitempty"`
}

type OptimizeRequest struct {
	Utterances []UtterancePayload  `json:"utterances"`
	Language   string              `json:"language,omitempty"`
	Config     *smoothing.Override `json:"config,omitempty"`
}

type SegmentPayload struct {
	ID         string   `json:"id"`
	Speaker    string   `json:"speaker"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Role       string   `json:"role,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type OptimizeTimings struct {
	Smoothing int64 `json:"smoothing"`
	Rewrite   int64 `json:"rewrite"`
	Total     int64 `json:"total"`
}

type OptimizeResponse struct {
	RunID         string            `json:"run_id"`
	Language      string            `json:"language"`
	Segments      []SegmentPayload  `json:"segments"`
	Speakers      map[string]string `json:"speakers"`
	SpeakerRoles  map[string]string `json:"speaker_roles"`
	Stats         smoothing.Stats   `json:"stats"`
	RewriteStatus string            `json:"rewrite_status"`
	RewriteUsage  *TokenUsage       `json:"rewrite_usage,omitempty"`
	TimingsMS     OptimizeTimings   `json:"timings_ms"`
}

type RoleMergeRequest struct {
	SegmentRoles map[string]string `json:"segment_roles"`
	Updates      map[string]string `json:"updates"`
}

type RoleMergeResponse struct {
	SegmentRoles map[string]string `json:"segment_roles"`
}

type StatisticsRequest struct {
	Segments     []SegmentPayload  `json:"segments"`
	SegmentRoles map[string]string `json:"segment_roles,omitempty"`
	SpeakerRoles map[string]string `json:"speaker_roles,omitempty"`
}

type SpeakingStatsResponse struct {
	CoachTime         float64 `json:"coach_time"`
	ClientTime        float64 `json:"client_time"`
	TotalSpeakingTime float64 `json:"total_speaking_time"`
	CoachPct          float64 `json:"coach_pct"`
	ClientPct         float64 `json:"client_pct"`
	SilenceTime       float64 `json:"silence_time"`
}
