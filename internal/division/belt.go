package division

import "strings"

// Belt is a competitor rank.
type Belt string

const (
	White     Belt = "White"
	Yellow    Belt = "Yellow"
	Orange    Belt = "Orange"
	Green     Belt = "Green"
	Blue      Belt = "Blue"
	Purple    Belt = "Purple"
	Brown     Belt = "Brown"
	Red       Belt = "Red"
	RedStripe Belt = "Red Stripe"
	Black     Belt = "Black"
)

// Belts lists ranks from lowest to highest.
var Belts = []Belt{White, Yellow, Orange, Green, Blue, Purple, Brown, Red, RedStripe, Black}

// Level is the coarse skill level derived from a belt.
type Level string

const (
	Novice   Level = "Novice"
	Advanced Level = "Advanced"
)

// BeltLevel returns Novice for White through Blue, Advanced for Purple
// through Black, and "" for anything else.
func BeltLevel(b Belt) Level {
	switch b {
	case White, Yellow, Orange, Green, Blue:
		return Novice
	case Purple, Brown, Red, RedStripe, Black:
		return Advanced
	}
	return ""
}

// ParseBelt matches s against the known ranks ignoring case and extra spaces.
func ParseBelt(s string) (Belt, bool) {
	norm := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for _, b := range Belts {
		if strings.ToLower(string(b)) == norm {
			return b, true
		}
	}
	return "", false
}

// Rank returns the 0-based position of b in Belts, or -1.
func (b Belt) Rank() int {
	for i, v := range Belts {
		if v == b {
			return i
		}
	}
	return -1
}
