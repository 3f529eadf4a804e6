package tagging_test

import (
	"testing"

	"videoflix/internal/tagging"
)

func TestMatchFirstKeywordInListOrder(t *testing.T) {
	tagger := tagging.New([]string{"sports", "crime"})

	// "crime" occurs first in the name, but "sports" is first in the list.
	got, ok := tagger.Match("crime_and_sports.jpg")
	if !ok || got != "sports" {
		t.Fatalf("expected sports, got %q (%v)", got, ok)
	}

	reversed := tagging.New([]string{"crime", "sports"})
	got, ok = reversed.Match("crime_and_sports.jpg")
	if !ok || got != "crime" {
		t.Fatalf("expected crime, got %q (%v)", got, ok)
	}
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	tagger := tagging.New([]string{"Documentary"})
	got, ok := tagger.Match("thumbnails/NATURE_DOCUMENTARY.PNG")
	if !ok || got != "documentary" {
		t.Fatalf("expected documentary, got %q (%v)", got, ok)
	}
}

func TestMatchUsesBaseNameOnly(t *testing.T) {
	tagger := tagging.New([]string{"sports"})
	if got, ok := tagger.Match("sports/holiday.jpg"); ok {
		t.Fatalf("directory component should not match, got %q", got)
	}
}

func TestNoMatch(t *testing.T) {
	tagger := tagging.New([]string{"sports", "crime"})
	cases := []string{"", "   ", "holiday.jpg"}
	for _, name := range cases {
		if got, ok := tagger.Match(name); ok || got != "" {
			t.Fatalf("Match(%q) = %q, %v; want no match", name, got, ok)
		}
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	tagger := tagging.New([]string{"sports", "crime", "sports", " "})
	if cats := tagger.Categories(); len(cats) != 2 {
		t.Fatalf("expected deduplicated categories, got %v", cats)
	}
	first, _ := tagger.Match("a_sports_crime.jpg")
	for i := 0; i < 10; i++ {
		got, _ := tagger.Match("a_sports_crime.jpg")
		if got != first {
			t.Fatalf("non-deterministic match: %q vs %q", got, first)
		}
	}
}
