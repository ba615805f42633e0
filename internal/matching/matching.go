// package matching implements the fuzzy confidence scorer used to decide
// whether a remote search result is the same song as a catalog entry.
package matching

import (
	"math"
	"regexp"
	"strings"

	"github.com/ellievs/covermatch/internal/models"
)

// MatchThreshold is the minimum confidence score required to commit a mapping
// automatically. Lower-scoring candidates are left for manual selection.
const MatchThreshold = 70

// YearUnknown marks an unavailable release year. Lightweight search results
// frequently omit the year; the year term scores 0 rather than guessing.
const YearUnknown = 0

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize lowercases a string, strips non-word/non-space characters, and
// collapses internal whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWordRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Levenshtein computes the edit distance between two strings by rune.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Similarity returns a 0-1 similarity ratio between two strings based on edit
// distance. Two empty strings are identical (1.0).
func Similarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}

// Candidate is the view of a remote track that the scorer needs: its name,
// performing artist names, release year when known, and 0-based position in
// the search result list.
type Candidate struct {
	Name     string
	Artists  []string
	Year     int // YearUnknown when unavailable
	Position int
}

// Score computes a 0-100 confidence that the candidate is the same song.
//
// Weights: title similarity 40, artist similarity 30 (flat 10 when the song
// carries no artist), release-year proximity 20, search position 10. The
// result is rounded and capped at 100. Deterministic for fixed inputs.
func Score(song models.Song, candidate Candidate) int {
	score := Similarity(Normalize(song.Title), Normalize(candidate.Name)) * 40

	if strings.TrimSpace(song.Artist) != "" && len(candidate.Artists) > 0 {
		songArtist := Normalize(song.Artist)
		best := 0.0
		for _, name := range candidate.Artists {
			if sim := Similarity(songArtist, Normalize(name)); sim > best {
				best = sim
			}
		}
		score += best * 30
	} else {
		// No artist on the song: partial credit so a strong title match
		// is not zeroed out by missing data.
		score += 10
	}

	if song.Year != YearUnknown && candidate.Year != YearUnknown {
		diff := song.Year - candidate.Year
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff <= 1:
			score += 20
		case diff <= 3:
			score += 15
		case diff <= 5:
			score += 10
		}
	}

	switch {
	case candidate.Position == 0:
		score += 10
	case candidate.Position < 3:
		score += 7
	case candidate.Position < 5:
		score += 5
	}

	final := int(math.Round(score))
	if final > 100 {
		final = 100
	}
	return final
}
