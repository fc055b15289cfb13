// Package shrink turns free-form voice text into something that fits the
// display's voice box: a short intent code when the phrase is recognised,
// otherwise its first few keywords, upper-cased and cut to MaxChars.
package shrink

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/bluele/gcache"
	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

const (
	// MaxChars is the longest result Shrink returns
	MaxChars = 20

	// MaxKeywords is how many keywords survive filler removal
	MaxKeywords = 3

	// DefaultCacheSize is the number of phrases the Shrinker remembers
	DefaultCacheSize = 256
)

type intent struct {
	pattern *regexp.Regexp
	code    string
}

// intents are tried in order; the first match wins. Specific phrases come
// before the one-word catch-alls.
var intents = []intent{
	// lights
	{regexp.MustCompile(`turn on.*light`), "LIGHTS ON"},
	{regexp.MustCompile(`turn off.*light`), "LIGHTS OFF"},
	{regexp.MustCompile(`lights on`), "LIGHTS ON"},
	{regexp.MustCompile(`lights off`), "LIGHTS OFF"},
	{regexp.MustCompile(`bedroom light`), "BED LIGHT"},
	{regexp.MustCompile(`living room light`), "LR LIGHT"},
	{regexp.MustCompile(`kitchen light`), "KIT LIGHT"},

	// temperature
	{regexp.MustCompile(`(what('s| is) the|check) temp`), "CHECK TEMP"},
	{regexp.MustCompile(`too (hot|warm)`), "TOO HOT"},
	{regexp.MustCompile(`too cold`), "TOO COLD"},
	{regexp.MustCompile(`set temp`), "SET TEMP"},

	// humidity and moisture
	{regexp.MustCompile(`(what('s| is) the|check) humid`), "CHECK HUMID"},
	{regexp.MustCompile(`(what('s| is) the|check) moist`), "CHECK MOIST"},
	{regexp.MustCompile(`water.*plant`), "WATER PLANT"},
	{regexp.MustCompile(`plant.*dry`), "PLANT DRY"},

	// general; whole words only so "this" is not "hi" and "know" is not "no"
	{regexp.MustCompile(`\b(hello|hi|hey)\b`), "HELLO"},
	{regexp.MustCompile(`\bthank`), "THANKS"},
	{regexp.MustCompile(`\bhelp\b`), "HELP"},
	{regexp.MustCompile(`\b(status|report)\b`), "STATUS"},
	{regexp.MustCompile(`\b(stop|cancel)\b`), "CANCEL"},
	{regexp.MustCompile(`\b(yes|confirm|ok)\b`), "OK"},
	{regexp.MustCompile(`\b(no|deny|nope)\b`), "NO"},
}

var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"please": true, "could": true, "would": true, "can": true, "should": true, "just": true, "like": true,
	"um": true, "uh": true, "ah": true, "oh": true, "well": true, "so": true, "very": true, "really": true,
	"i": true, "me": true, "my": true, "you": true, "your": true, "we": true, "our": true, "it": true, "its": true,
}

// Intent returns the intent code for text, if one matches
func Intent(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, in := range intents {
		if in.pattern.MatchString(lower) {
			return in.code, true
		}
	}
	return "", false
}

// Keywords drops filler and one-letter words and returns the first max
// that remain, upper-cased and space-separated. Punctuation around a word
// is removed.
func Keywords(text string, max int) string {
	var kept []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(w) <= 1 || fillerWords[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) == max {
			break
		}
	}
	return strings.ToUpper(strings.Join(kept, " "))
}

// Shrink reduces text to at most MaxChars characters
func Shrink(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if code, ok := Intent(text); ok {
		return truncate(code)
	}
	if short := Keywords(text, MaxKeywords); short != "" {
		return truncate(short)
	}
	return truncate(strings.ToUpper(text))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > MaxChars {
		return strings.TrimRight(string(r[:MaxChars]), " ")
	}
	return s
}

// Shrinker is Shrink with an LRU cache in front. Voice input tends to
// repeat the same handful of phrases.
type Shrinker struct {
	cache gcache.Cache
}

// NewShrinker creates a Shrinker remembering up to size phrases
func NewShrinker(size int) *Shrinker {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Shrinker{
		cache: gcache.New(size).
			LRU().
			LoaderFunc(func(key interface{}) (interface{}, error) {
				return Shrink(key.(string)), nil
			}).
			Build(),
	}
}

// Shrink returns the shrunk form of text, computing it at most once per
// cached phrase
func (s *Shrinker) Shrink(text string) string {
	key := strings.TrimSpace(text)
	if key == "" {
		return ""
	}
	v, err := s.cache.Get(key)
	if err != nil {
		logging.Warn("Shrink cache lookup failed", zap.String("text", key), zap.Error(err))
		return Shrink(key)
	}
	short := v.(string)
	logging.Debug("Shrunk voice text",
		zap.String("text", key),
		zap.String("result", short),
	)
	return short
}

// CacheStats reports cache hits and misses
func (s *Shrinker) CacheStats() (hits, misses uint64) {
	return s.cache.HitCount(), s.cache.MissCount()
}

// Len returns the number of cached phrases
func (s *Shrinker) Len() int {
	return s.cache.Len(false)
}
