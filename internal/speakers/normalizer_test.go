package speakers

import (
	"errors"
	"testing"

	"coachscribe/internal/transcript"
)

func utt(speaker string, startMS, endMS int64, words ...string) transcript.Utterance {
	u := transcript.Utterance{Speaker: speaker, StartMS: startMS, EndMS: endMS}
	step := (endMS - startMS) / int64(len(words))
	for i, w := range words {
		u.Words = append(u.Words, transcript.Word{
			Text:    w,
			StartMS: startMS + int64(i)*step,
			EndMS:   startMS + int64(i+1)*step,
		})
	}
	return u
}

func TestNormalizeAssignsInOrderOfFirstAppearance(t *testing.T) {
	utterances := []transcript.Utterance{
		utt("Alice", 0, 1000, "hello"),
		utt("Bob", 1000, 2000, "hi"),
		utt("Alice", 2000, 3000, "so"),
	}

	normalized, table, err := Normalize(utterances)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if normalized[0].Speaker != "A" || normalized[1].Speaker != "B" || normalized[2].Speaker != "A" {
		t.Fatalf("unexpected canonical labels: %q %q %q", normalized[0].Speaker, normalized[1].Speaker, normalized[2].Speaker)
	}
	if table.Len() != 2 {
		t.Fatalf("unexpected table size: %d", table.Len())
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	utterances := []transcript.Utterance{
		utt("Coach Dana", 0, 1000, "welcome"),
		utt("Jamie", 1000, 2000, "thanks"),
	}

	_, table, err := Normalize(utterances)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	for _, original := range []string{"Coach Dana", "Jamie"} {
		canonical, ok := table.Canonical(original)
		if !ok {
			t.Fatalf("no canonical label for %q", original)
		}
		back, ok := table.Original(canonical)
		if !ok || back != original {
			t.Fatalf("round trip %q -> %q -> %q", original, canonical, back)
		}
	}
}

func TestNormalizeMixedLabelFormatsForSameSpeaker(t *testing.T) {
	// One provider pass labels the speaker "Speaker_1", another "A". Both
	// denote the first speaker and must not split into two canonicals.
	utterances := []transcript.Utterance{
		utt("Speaker_1", 0, 1000, "hello"),
		utt("A", 1000, 2000, "and"),
		utt("Speaker_1", 2000, 3000, "so"),
		utt("Speaker_2", 3000, 4000, "right"),
	}

	normalized, table, err := Normalize(utterances)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if normalized[0].Speaker != "A" || normalized[1].Speaker != "A" || normalized[2].Speaker != "A" {
		t.Fatalf("expected one canonical label, got %q %q %q",
			normalized[0].Speaker, normalized[1].Speaker, normalized[2].Speaker)
	}
	if normalized[3].Speaker != "B" {
		t.Fatalf("expected second speaker to be B, got %q", normalized[3].Speaker)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 canonical labels, got %d", table.Len())
	}
}

func TestNormalizeZeroBasedNumericLabels(t *testing.T) {
	utterances := []transcript.Utterance{
		utt("0", 0, 1000, "hello"),
		utt("1", 1000, 2000, "hi"),
	}

	normalized, _, err := Normalize(utterances)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if normalized[0].Speaker != "A" || normalized[1].Speaker != "B" {
		t.Fatalf("unexpected labels: %q %q", normalized[0].Speaker, normalized[1].Speaker)
	}
}

func TestNormalizeStableWithinRun(t *testing.T) {
	utterances := []transcript.Utterance{
		utt("spk 2", 0, 1000, "a"),
		utt("Speaker_2", 1000, 2000, "b"),
		utt("speaker-2", 2000, 3000, "c"),
	}

	normalized, _, err := Normalize(utterances)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	for i, u := range normalized {
		if u.Speaker != "B" {
			t.Fatalf("utterance %d: got %q want B", i, u.Speaker)
		}
	}
}

func TestNormalizeSparseNumericLabels(t *testing.T) {
	// Diarizers emit sparse indices; a number past the alphabet names a
	// speaker all the same and must not fail the run.
	utterances := []transcript.Utterance{
		utt("Speaker_2", 0, 1000, "hello"),
		utt("Speaker_9", 1000, 2000, "hi"),
		utt("Speaker_2", 2000, 3000, "so"),
	}

	normalized, table, err := Normalize(utterances)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if normalized[0].Speaker != "B" || normalized[2].Speaker != "B" {
		t.Fatalf("Speaker_2 should keep its structured slot, got %q %q", normalized[0].Speaker, normalized[2].Speaker)
	}
	if normalized[1].Speaker != "A" {
		t.Fatalf("Speaker_9 should fill the first free slot, got %q", normalized[1].Speaker)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 canonical labels, got %d", table.Len())
	}
}

func TestNormalizeSingleSparseNumericLabel(t *testing.T) {
	utterances := []transcript.Utterance{utt("Speaker_9", 0, 1000, "hello")}

	normalized, table, err := Normalize(utterances)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if normalized[0].Speaker != "A" {
		t.Fatalf("one speaker must get the first label, got %q", normalized[0].Speaker)
	}
	if original, ok := table.Original("A"); !ok || original != "Speaker_9" {
		t.Fatalf("round trip lost the raw label: %q %v", original, ok)
	}
}

func TestNormalizeTooManySpeakers(t *testing.T) {
	// Distinct free-text names, one more than the alphabet holds.
	var utterances []transcript.Utterance
	names := []string{"Ana", "Ben", "Cleo", "Dee", "Eli", "Fay", "Gus", "Hana", "Ira"}
	for i, name := range names {
		utterances = append(utterances, utt(name, int64(i)*1000, int64(i+1)*1000, "hm"))
	}

	_, _, err := Normalize(utterances)
	var tooMany *TooManySpeakersError
	if !errors.As(err, &tooMany) {
		t.Fatalf("expected TooManySpeakersError, got %v", err)
	}
	if tooMany.Limit != len(CanonicalAlphabet) {
		t.Fatalf("unexpected limit: %d", tooMany.Limit)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	utterances := []transcript.Utterance{utt("Speaker_1", 0, 1000, "hello")}

	_, _, err := Normalize(utterances)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if utterances[0].Speaker != "Speaker_1" {
		t.Fatalf("input mutated: %q", utterances[0].Speaker)
	}
}
