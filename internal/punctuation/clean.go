// Package punctuation is the deterministic safety net that runs after the
// LLM rewrite. The rewrite occasionally reinserts spacing artifacts, and it
// does so inconsistently across batches, so the repairs here must be
// idempotent: Clean(Clean(x)) == Clean(x) for every input.
package punctuation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Clean repairs spacing and punctuation artifacts in a single segment's
// text. For CJK-classified text it removes whitespace injected between
// adjacent CJK characters while keeping the space that separates CJK from
// non-CJK tokens in mixed-language segments. Input that is not valid UTF-8
// is returned unchanged; this function never fails.
func Clean(text, lang string) string {
	if text == "" {
		return ""
	}
	if !utf8.ValidString(text) {
		return text
	}

	out := collapseSpaces(text)
	if IsCJKLanguage(lang) || containsCJK(out) {
		out = collapseCJKSpacing(out)
	}
	out = trimSpaceBeforePunct(out)
	return strings.TrimSpace(out)
}

// HasTerminalPunctuation reports whether the last meaningful rune ends a
// sentence. Used by the boundary smoothing merge heuristic.
func HasTerminalPunctuation(text string) bool {
	trimmed := strings.TrimRightFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || isClosingQuote(r)
	})
	if trimmed == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	switch last {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}

// IsCJKLanguage classifies a language hint ("zh", "zh-TW", "jpn", ...) as
// Chinese, Japanese or Korean. Unparseable hints are not CJK.
func IsCJKLanguage(lang string) bool {
	lang = strings.TrimSpace(lang)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return false
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	switch base.String() {
	case "zh", "ja", "ko":
		return true
	}
	return false
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

func isCJKOrFullwidthPunct(r rune) bool {
	if isCJK(r) {
		return true
	}
	switch r {
	case '，', '。', '、', '！', '？', '：', '；', '「', '」', '『', '』', '（', '）':
		return true
	}
	return false
}

func isClosingQuote(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', '」', '』':
		return true
	}
	return false
}

func containsCJK(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}

// collapseSpaces folds runs of spaces and tabs into a single space.
// Newlines are preserved; the rewrite protocol is line oriented.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if !inRun {
				b.WriteRune(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// collapseCJKSpacing drops a space exactly when both its neighbors are CJK
// runes (or fullwidth punctuation). A space with a non-CJK token on either
// side separates scripts and stays.
func collapseCJKSpacing(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ' ' {
			var next rune
			if i+1 < len(runes) {
				next = runes[i+1]
			}
			if prev != 0 && next != 0 && isCJKOrFullwidthPunct(prev) && isCJKOrFullwidthPunct(next) {
				continue
			}
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// trimSpaceBeforePunct removes the stray space rewrites sometimes leave in
// front of closing punctuation ("word ," → "word,").
func trimSpaceBeforePunct(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ' ' && i+1 < len(runes) {
			switch runes[i+1] {
			case ',', '.', '!', '?', ';', ':':
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
