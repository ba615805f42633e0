package matching

import (
	"testing"

	"github.com/ellievs/covermatch/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Dango Daikazoku", "dango daikazoku"},
		{"strips punctuation", "Don't Stop Me Now!", "dont stop me now"},
		{"collapses whitespace", "  a   b\t c ", "a b c"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
		{"カノン", "カノン", 0},
	}

	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("Identical Strings Score One", func(t *testing.T) {
		for _, s := range []string{"", "a", "dango daikazoku", "日本語"} {
			if got := Similarity(s, s); got != 1 {
				t.Errorf("Similarity(%q, %q) = %v, want 1", s, s, got)
			}
		}
	})

	t.Run("Disjoint Strings Score Zero", func(t *testing.T) {
		if got := Similarity("abc", "xyz"); got != 0 {
			t.Errorf("Similarity = %v, want 0", got)
		}
	})

	t.Run("Partial Overlap", func(t *testing.T) {
		got := Similarity("abcd", "abcx")
		if got != 0.75 {
			t.Errorf("Similarity = %v, want 0.75", got)
		}
	})
}

func TestScore(t *testing.T) {
	song := models.Song{ID: "s1", Title: "Dango Daikazoku", Artist: "Chata", Year: 2004}

	t.Run("Exact Match With Year And Position Zero", func(t *testing.T) {
		got := Score(song, Candidate{
			Name:     "Dango Daikazoku",
			Artists:  []string{"Chata"},
			Year:     2004,
			Position: 0,
		})
		if got != 100 {
			t.Errorf("expected 100, got %d", got)
		}
	})

	t.Run("Exact Match Without Year Data", func(t *testing.T) {
		// 40 title + 30 artist + 0 year + 10 position
		got := Score(song, Candidate{
			Name:     "Dango Daikazoku",
			Artists:  []string{"Chata"},
			Year:     YearUnknown,
			Position: 0,
		})
		if got != 80 {
			t.Errorf("expected 80, got %d", got)
		}
	})

	t.Run("Missing Song Artist Gets Partial Credit", func(t *testing.T) {
		noArtist := models.Song{ID: "s2", Title: "Dango Daikazoku"}
		got := Score(noArtist, Candidate{
			Name:     "Dango Daikazoku",
			Artists:  []string{"Chata"},
			Position: 0,
		})
		// 40 title + 10 flat artist credit + 10 position
		if got != 60 {
			t.Errorf("expected 60, got %d", got)
		}
	})

	t.Run("Best Artist Among Several Is Used", func(t *testing.T) {
		got := Score(song, Candidate{
			Name:     "Dango Daikazoku",
			Artists:  []string{"Someone Else", "Chata"},
			Position: 0,
		})
		if got != 80 {
			t.Errorf("expected 80, got %d", got)
		}
	})

	t.Run("Year Bands", func(t *testing.T) {
		tests := []struct {
			name string
			year int
			want int
		}{
			{"within one year", 2005, 100},
			{"within three years", 2007, 95},
			{"within five years", 2009, 90},
			{"beyond five years", 2012, 80},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := Score(song, Candidate{
					Name:     "Dango Daikazoku",
					Artists:  []string{"Chata"},
					Year:     tt.year,
					Position: 0,
				})
				if got != tt.want {
					t.Errorf("year %d: expected %d, got %d", tt.year, tt.want, got)
				}
			})
		}
	})

	t.Run("Position Bands", func(t *testing.T) {
		tests := []struct {
			position int
			want     int
		}{
			{0, 80},
			{1, 77},
			{2, 77},
			{3, 75},
			{4, 75},
			{5, 70},
			{19, 70},
		}
		for _, tt := range tests {
			got := Score(song, Candidate{
				Name:     "Dango Daikazoku",
				Artists:  []string{"Chata"},
				Position: tt.position,
			})
			if got != tt.want {
				t.Errorf("position %d: expected %d, got %d", tt.position, tt.want, got)
			}
		}
	})

	t.Run("Score Stays In Range", func(t *testing.T) {
		candidates := []Candidate{
			{},
			{Name: "completely unrelated", Artists: []string{"nobody"}, Year: 1970, Position: 19},
			{Name: "Dango Daikazoku", Artists: []string{"Chata"}, Year: 2004, Position: 0},
		}
		for _, c := range candidates {
			got := Score(song, c)
			if got < 0 || got > 100 {
				t.Errorf("score %d out of [0,100] for candidate %+v", got, c)
			}
		}
	})
}
