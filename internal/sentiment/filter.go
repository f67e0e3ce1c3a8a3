package sentiment

import (
	"strings"

	"tickerpulse/internal/domain"

	"github.com/abadojack/whatlanggo"
)

const DefaultMinWords = 50

var placeholderBodies = map[string]struct{}{
	"":           {},
	"no content": {},
	"[removed]":  {},
	"[deleted]":  {},
}

// LanguageDetector returns the ISO 639-1 code of the dominant language
// of text. ok is false when detection fails.
type LanguageDetector interface {
	Detect(text string) (lang string, ok bool)
}

// WhatlangDetector detects languages with trigram profiles. Results for
// short or mixed text are probabilistic.
type WhatlangDetector struct{}

func (WhatlangDetector) Detect(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	if info.Lang < 0 {
		return "", false
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", false
	}
	return code, true
}

// Filter drops bodies that are placeholders, too short to score, or not
// in the target language.
type Filter struct {
	detector LanguageDetector
	target   string
	minWords int
}

func NewFilter(detector LanguageDetector, targetLang string, minWords int) *Filter {
	if detector == nil {
		detector = WhatlangDetector{}
	}
	targetLang = strings.ToLower(strings.TrimSpace(targetLang))
	if targetLang == "" {
		targetLang = "en"
	}
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &Filter{detector: detector, target: targetLang, minWords: minWords}
}

func (f *Filter) Accept(item domain.RawItem) bool {
	body := strings.TrimSpace(item.Body)
	if _, placeholder := placeholderBodies[strings.ToLower(body)]; placeholder {
		return false
	}
	if len(strings.Fields(body)) < f.minWords {
		return false
	}
	lang, ok := f.detector.Detect(body)
	if !ok {
		return false
	}
	return strings.EqualFold(lang, f.target)
}

// Apply returns the accepted items in their original order.
func (f *Filter) Apply(items []domain.RawItem) []domain.RawItem {
	out := make([]domain.RawItem, 0, len(items))
	for _, item := range items {
		if f.Accept(item) {
			out = append(out, item)
		}
	}
	return out
}
