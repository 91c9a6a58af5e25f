package boatrace

import (
	"boatrace-results/internal/components/assert"
	"boatrace-results/pkg/htmlutil"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_client_payout = "client.payout"
)

// sectionLookup is one way of locating the payout table on a result page.
type sectionLookup struct {
	name string
	// find returns an empty selection when this lookup does not apply.
	find func(doc *goquery.Document) *goquery.Selection
}

// markerBetTypes are the labels whose presence identifies a generic table as the payout table.
var markerBetTypes = []BetType{BetWin, BetPlace, BetExacta, BetTrio}

// payoutSectionLookups are tried in order, the first non-empty selection wins.
//  1. the dedicated payout container
//  2. the first generic table whose text mentions one of markerBetTypes
var payoutSectionLookups = []sectionLookup{
	{
		name: "payout-container",
		find: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find("div.table1.is-payout").First()
		},
	},
	{
		name: "marker-scan",
		find: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find("div.table1").FilterFunction(func(_ int, s *goquery.Selection) bool {
				text := htmlutil.GetText(s.Get(0))
				for _, marker := range markerBetTypes {
					if strings.Contains(text, string(marker)) {
						return true
					}
				}
				return false
			}).First()
		},
	},
}

func findPayoutSection(doc *goquery.Document) (*goquery.Selection, string, bool) {
	for _, lookup := range payoutSectionLookups {
		section := lookup.find(doc)
		if section.Length() > 0 {
			return section, lookup.name, true
		}
	}
	return nil, "", false
}

// parsePayouts reads every row of the section that has at least a label, a combination and an
// amount cell. Rows with a label outside of BetTypes are dropped.
func parsePayouts(section *goquery.Selection) Payouts {
	payouts := Payouts{}
	section.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td").Nodes
		if len(cells) < 3 {
			return
		}
		betType := BetType(htmlutil.GetStrippedText(cells[0]))
		if !betType.Recognized() {
			return
		}
		payouts[betType] = append(payouts[betType], PayoutEntry{
			Combination: htmlutil.GetStrippedText(cells[1]),
			Payout:      strings.ReplaceAll(htmlutil.GetStrippedText(cells[2]), ",", ""),
		})
	})
	return payouts
}

// Payout fetches the payout breakdown of a race. The boolean is false when the race has no
// payouts to report: the page could not be fetched, no payout table exists yet, or the table had no
// recognized rows. Failures are reported to telemetry and never returned.
func (c Client) Payout(ctx context.Context, date, venueCode, raceNum string) (PayoutRecord, bool) {
	assert.NotEmptyStr(venueCode)
	assert.NotEmptyStr(raceNum)
	c.tel.ReportDebug(report_client_payout, date, venueCode, raceNum)

	doc, err := c.document(ctx, pathRaceResult, url.Values{
		"rno": {raceNum},
		"jcd": {venueCode},
		"hd":  {date},
	})
	if err != nil {
		c.tel.ReportBroken(report_client_payout, err, date, venueCode, raceNum)
		return PayoutRecord{}, false
	}

	return c.payoutFromDocument(doc, venueCode, raceNum)
}

func (c Client) payoutFromDocument(doc *goquery.Document, venueCode, raceNum string) (PayoutRecord, bool) {
	section, lookup, ok := findPayoutSection(doc)
	if !ok {
		c.tel.ReportWarning(report_client_payout, "no payout section", venueCode, raceNum)
		return PayoutRecord{}, false
	}
	c.tel.ReportDebug("payout section located", lookup, venueCode, raceNum)

	payouts := parsePayouts(section)
	if len(payouts) == 0 {
		c.tel.ReportWarning(report_client_payout, "no recognized payout rows", venueCode, raceNum)
		return PayoutRecord{}, false
	}
	for _, betType := range BetTypes {
		entries, ok := payouts[betType]
		if ok {
			c.tel.ReportDebug("payout rows", betType.Name(), len(entries), venueCode, raceNum)
		}
	}

	return PayoutRecord{
		RaceNum: raceNum,
		Payouts: payouts,
	}, true
}
