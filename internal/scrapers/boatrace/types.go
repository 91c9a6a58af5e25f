package boatrace

import "slices"

// Venue is a race facility holding races on a given day.
type Venue struct {
	// Date is the race day, YYYYMMDD.
	Date string `json:"date"`
	// Code is the short identifier the site addresses the venue by (`jcd`).
	Code string `json:"venue_code"`
	Name string `json:"venue_name"`
}

// BetType is a wager category, the value is the label the result page prints for it.
type BetType string

const (
	BetWin           BetType = "単勝"
	BetPlace         BetType = "複勝"
	BetExacta        BetType = "2連単"
	BetQuinella      BetType = "2連複"
	BetTrifecta      BetType = "3連単"
	BetTrio          BetType = "3連複"
	BetQuinellaPlace BetType = "拡連複"
)

// BetTypes is every bet type a payout table row is kept for.
var BetTypes = []BetType{
	BetWin,
	BetPlace,
	BetExacta,
	BetQuinella,
	BetTrifecta,
	BetTrio,
	BetQuinellaPlace,
}

var betTypeNames = map[BetType]string{
	BetWin:           "single-win",
	BetPlace:         "place",
	BetExacta:        "exacta",
	BetQuinella:      "quinella",
	BetTrifecta:      "trifecta",
	BetTrio:          "trio",
	BetQuinellaPlace: "quinella-place",
}

// Recognized reports whether b is one of BetTypes.
func (b BetType) Recognized() bool {
	return slices.Contains(BetTypes, b)
}

// Name returns the english name of the bet type, or the label itself if it isn't recognized.
func (b BetType) Name() string {
	name, ok := betTypeNames[b]
	if !ok {
		return string(b)
	}
	return name
}

// PayoutEntry is one winning combination of a bet type.
type PayoutEntry struct {
	Combination string `json:"combination"`
	// Payout is the yen amount with thousands separators removed.
	Payout string `json:"payout"`
}

// Payouts maps a bet type to its winning entries in the order the result page lists them,
// place and quinella-place usually have more than one.
type Payouts map[BetType][]PayoutEntry

type PayoutRecord struct {
	RaceNum string  `json:"race_num"`
	Payouts Payouts `json:"payouts"`
}
