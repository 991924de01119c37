package smoothing

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"coachscribe/internal/transcript"
)

// DefaultsTable is the config-lookup collaborator: built-in per-language
// threshold tables, optionally overridden from a YAML file at startup.
type DefaultsTable struct {
	languages map[string]Config
	fallback  Config
}

func builtinEnglish() Config {
	return Config{
		ShortHeadSec:      0.5,
		FillerMaxSec:      0.8,
		GapSec:            1.0,
		MaxMoveSec:        2.0,
		SentGapSec:        1.5,
		MinSentenceLength: 8,
		Fillers:           []string{"uh", "um", "er", "ah", "mm", "hmm", "mhm"},
	}
}

// BuiltinDefaults returns the shipped per-language tables. CJK languages run
// with a lower minimum sentence length since their scripts pack more meaning
// per character.
func BuiltinDefaults() *DefaultsTable {
	en := builtinEnglish()

	zh := en
	zh.MinSentenceLength = 4
	zh.Fillers = []string{"嗯", "啊", "呃", "哦", "欸", "那個"}

	ja := en
	ja.MinSentenceLength = 4
	ja.Fillers = []string{"えっと", "あの", "うん", "ええ", "まあ"}

	ko := en
	ko.MinSentenceLength = 4
	ko.Fillers = []string{"음", "어", "그", "네"}

	ru := en
	ru.Fillers = []string{"э", "эм", "ну", "ага", "угу"}

	return &DefaultsTable{
		languages: map[string]Config{
			"en": en,
			"zh": zh,
			"ja": ja,
			"ko": ko,
			"ru": ru,
		},
		fallback: en,
	}
}

// LoadOverrides replaces whole language entries from a YAML file keyed by
// base language code. Unknown keys add new languages.
func (t *DefaultsTable) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read smoothing defaults: %w", err)
	}
	var overrides map[string]Config
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse smoothing defaults: %w", err)
	}
	for lang, cfg := range overrides {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("smoothing defaults for %q: %w", lang, err)
		}
		t.languages[normalizeLanguage(lang)] = cfg
	}
	return nil
}

// ForLanguage resolves the config for a language hint. Region and script
// variants collapse to their base ("zh-TW" → "zh"); unknown or empty hints
// get the fallback table.
func (t *DefaultsTable) ForLanguage(lang string) Config {
	if cfg, ok := t.languages[normalizeLanguage(lang)]; ok {
		return cfg
	}
	return t.fallback
}

// ResolveLanguage turns the ingestion language hint into a concrete base
// code. "auto" (or empty) falls back to script detection over the utterance
// text.
func (t *DefaultsTable) ResolveLanguage(hint string, utterances []transcript.Utterance) string {
	hint = strings.TrimSpace(hint)
	if hint != "" && !strings.EqualFold(hint, "auto") {
		if base := normalizeLanguage(hint); base != "" {
			return base
		}
	}
	return detectLanguage(utterances)
}

func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang)
	}
	base, _ := tag.Base()
	return base.String()
}

// detectLanguage is a coarse script classifier: it only has to pick the
// right threshold table, not identify the language precisely.
func detectLanguage(utterances []transcript.Utterance) string {
	var han, kana, hangul, total int
	for _, u := range utterances {
		for _, w := range u.Words {
			for _, r := range w.Text {
				if !unicode.IsLetter(r) {
					continue
				}
				total++
				switch {
				case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
					kana++
				case unicode.Is(unicode.Han, r):
					han++
				case unicode.Is(unicode.Hangul, r):
					hangul++
				}
			}
		}
	}
	if total == 0 {
		return "en"
	}
	switch {
	case kana*10 > total:
		return "ja"
	case hangul*10 > total:
		return "ko"
	case han*10 > total:
		return "zh"
	default:
		return "en"
	}
}
