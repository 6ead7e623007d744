// internal/models/card.go
package models

import "strings"

// Card is a single Uno card encoded as "<rank><color>", e.g. "5R", "skipY",
// "draw2B". Wild cards carry "W" as their color until the player who plays
// them picks one ("draw4W" becomes e.g. "draw4R" on play).
type Card string

// Rank names for the non-numeric cards.
const (
	RankSkip        = "skip"
	RankReverse     = "reverse"
	RankDraw2       = "draw2"
	RankDraw4       = "draw4"
	RankChangeColor = "changeColor"
)

// Colors is the set of playable colors. "W" marks an unchosen wild.
var Colors = []string{"R", "G", "B", "Y"}

// ColorWild is the color code of a wild card before a color was chosen.
const ColorWild = "W"

// Rank returns the card code without its trailing color letter.
func (c Card) Rank() string {
	s := string(c)
	if len(s) < 2 {
		return s
	}
	return s[:len(s)-1]
}

// Color returns the trailing color letter ("R", "G", "B", "Y" or "W").
func (c Card) Color() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return s[len(s)-1:]
}

// IsWildRank reports whether the card's rank is one of the colorless wild
// ranks, regardless of any color already chosen for it.
func (c Card) IsWildRank() bool {
	r := c.Rank()
	return r == RankDraw4 || r == RankChangeColor
}

// Normalize strips a chosen color back off a wild card. Recycling the discard
// pile runs every card through this so wilds return to the deck colorless.
func (c Card) Normalize() Card {
	if c.IsWildRank() && c.Color() != ColorWild {
		return Card(c.Rank() + ColorWild)
	}
	return c
}

// Valid reports whether the card code parses as a known rank and color.
func (c Card) Valid() bool {
	rank, color := c.Rank(), c.Color()
	switch rank {
	case RankDraw4, RankChangeColor:
		return color == ColorWild || isPlayColor(color)
	case RankSkip, RankReverse, RankDraw2:
		return isPlayColor(color)
	default:
		return len(rank) == 1 && strings.Contains("0123456789", rank) && isPlayColor(color)
	}
}

func isPlayColor(color string) bool {
	for _, c := range Colors {
		if c == color {
			return true
		}
	}
	return false
}
