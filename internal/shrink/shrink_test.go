package shrink

import (
	"testing"
	"unicode/utf8"
)

func TestShrink(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"lights intent", "Turn on the bedroom lights please", "LIGHTS ON"},
		{"first intent wins", "Turn off the kitchen light", "LIGHTS OFF"},
		{"temperature question", "What's the temperature right now?", "CHECK TEMP"},
		{"plant", "The plant looks dry, maybe water it", "PLANT DRY"},
		{"greeting", "Hello there!", "HELLO"},
		{"set temp", "Set temperature to 72 degrees", "SET TEMP"},
		{"cancel", "please stop", "CANCEL"},
		{"thanks", "Thanks a lot", "THANKS"},
		{"keywords exactly fill the box", "Can you check the humidity level?", "CHECK HUMIDITY LEVEL"},
		{"keywords", "This is a very long sentence that should be truncated", "THIS LONG SENTENCE"},
		{"no substring intents", "I know it", "KNOW"},
		{"hard truncate", "supercalifragilisticexpialidocious", "SUPERCALIFRAGILISTIC"},
		{"nothing but filler", "a", "A"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Shrink(tt.text)
			if got != tt.want {
				t.Errorf("Shrink(%q) = %q, want %q", tt.text, got, tt.want)
			}
			if utf8.RuneCountInString(got) > MaxChars {
				t.Errorf("Shrink(%q) is %d chars, max %d", tt.text, utf8.RuneCountInString(got), MaxChars)
			}
		})
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		text string
		max  int
		want string
	}{
		{"um so the garden is thirsty today", 3, "GARDEN THIRSTY TODAY"},
		{"um so the garden is thirsty today", 1, "GARDEN"},
		{"well, really... fan!", 3, "FAN"},
		{"I me my", 3, ""},
	}

	for _, tt := range tests {
		if got := Keywords(tt.text, tt.max); got != tt.want {
			t.Errorf("Keywords(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
		}
	}
}

func TestIntent(t *testing.T) {
	if code, ok := Intent("  CHECK MOISTURE  "); !ok || code != "CHECK MOIST" {
		t.Errorf("Intent() = %q, %v, want CHECK MOIST, true", code, ok)
	}
	if _, ok := Intent("open the garage"); ok {
		t.Error("Intent(open the garage) matched")
	}
}

func TestShrinkerCaches(t *testing.T) {
	s := NewShrinker(2)

	if got := s.Shrink("water the plants"); got != "WATER PLANT" {
		t.Errorf("Shrink() = %q, want %q", got, "WATER PLANT")
	}
	if got := s.Shrink("  water the plants "); got != "WATER PLANT" {
		t.Errorf("Shrink() = %q, want %q", got, "WATER PLANT")
	}

	hits, misses := s.CacheStats()
	if hits != 1 || misses != 1 {
		t.Errorf("CacheStats() = %d hits, %d misses, want 1, 1", hits, misses)
	}

	s.Shrink("hello")
	s.Shrink("too cold in here")
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if s.Shrink("") != "" {
		t.Error("Shrink(\"\") not empty")
	}
}
