package httpapi

import (
	"coachscribe/internal/model"
	"coachscribe/internal/transcript"
	"coachscribe/internal/upstream/llm"
)

func toUtterances(payloads []model.UtterancePayload) []transcript.Utterance {
	out := make([]transcript.Utterance, len(payloads))
	for i, p := range payloads {
		words := make([]transcript.Word, len(p.Words))
		for j, w := range p.Words {
			words[j] = transcript.Word{Text: w.Text, StartMS: w.StartMS, EndMS: w.EndMS}
		}
		out[i] = transcript.Utterance{
			Speaker:    p.Speaker,
			StartMS:    p.StartMS,
			EndMS:      p.EndMS,
			Words:      words,
			Confidence: p.Confidence,
		}
	}
	return out
}

func toSegments(payloads []model.SegmentPayload) []transcript.Segment {
	out := make([]transcript.Segment, len(payloads))
	for i, p := range payloads {
		out[i] = transcript.Segment{
			ID:         p.ID,
			Speaker:    p.Speaker,
			Start:      p.Start,
			End:        p.End,
			Text:       p.Text,
			Role:       p.Role,
			Confidence: p.Confidence,
		}
	}
	return out
}

func toSegmentPayloads(segments []transcript.Segment) []model.SegmentPayload {
	out := make([]model.SegmentPayload, len(segments))
	for i, seg := range segments {
		out[i] = model.SegmentPayload{
			ID:         seg.EffectiveID(),
			Speaker:    seg.Speaker,
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Role:       seg.Role,
			Confidence: seg.Confidence,
		}
	}
	return out
}

// toRoleMap carries raw strings into a role map without validating them;
// resolution re-parses values, so unrecognized entries simply never match.
func toRoleMap(raw map[string]string) map[string]transcript.Role {
	out := make(map[string]transcript.Role, len(raw))
	for k, v := range raw {
		out[k] = transcript.Role(v)
	}
	return out
}

func roleMapToStrings(m map[string]transcript.Role) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = string(v)
	}
	return out
}

func toModelTokenUsage(u *llm.TokenUsage) *model.TokenUsage {
	if u == nil {
		return nil
	}
	return &model.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
