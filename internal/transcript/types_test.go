package transcript

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"coach", RoleCoach, true},
		{"COACH", RoleCoach, true},
		{" Client ", RoleClient, true},
		{"unknown", RoleUnknown, false},
		{"facilitator", RoleUnknown, false},
		{"", RoleUnknown, false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseRole(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestUtteranceValidate(t *testing.T) {
	valid := Utterance{Speaker: "A", StartMS: 0, EndMS: 1000, Words: []Word{{Text: "hi", StartMS: 0, EndMS: 1000}}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	inverted := Utterance{Speaker: "A", StartMS: 2000, EndMS: 1000, Words: []Word{{Text: "hi"}}}
	var dataErr *DataError
	if err := inverted.Validate(); !errors.As(err, &dataErr) {
		t.Fatalf("expected DataError for inverted timing, got %v", err)
	}

	empty := Utterance{Speaker: "A", StartMS: 0, EndMS: 1000}
	if err := empty.Validate(); !errors.As(err, &dataErr) {
		t.Fatalf("expected DataError for empty words, got %v", err)
	}
}

func TestUtteranceTextSkipsEmptyWords(t *testing.T) {
	u := Utterance{Words: []Word{{Text: "hello"}, {Text: ""}, {Text: "there"}}}
	if got := u.Text(); got != "hello there" {
		t.Fatalf("Text() = %q", got)
	}
}

func TestDeriveSegmentID(t *testing.T) {
	if got := DeriveSegmentID("B", 12.4); got != "B-12" {
		t.Fatalf("DeriveSegmentID() = %q, want B-12", got)
	}
	if got := DeriveSegmentID("A", 0); got != "A-0" {
		t.Fatalf("DeriveSegmentID() = %q, want A-0", got)
	}
}

func TestSegmentEffectiveID(t *testing.T) {
	explicit := Segment{ID: "custom", Speaker: "A", Start: 3.7}
	if got := explicit.EffectiveID(); got != "custom" {
		t.Fatalf("EffectiveID() = %q, want custom", got)
	}
	derived := Segment{Speaker: "A", Start: 3.7}
	if got := derived.EffectiveID(); got != "A-3" {
		t.Fatalf("EffectiveID() = %q, want A-3", got)
	}
}
