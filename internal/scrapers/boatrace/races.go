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
	report_client_races = "client.races"
)

// Races lists the race numbers ("1", "2", ...) held at a venue on `date` in the order
// the venue's race index shows them.
func (c Client) Races(ctx context.Context, date, venueCode string) ([]string, error) {
	assert.NotEmptyStr(venueCode)
	c.tel.ReportDebug(report_client_races, date, venueCode)

	doc, err := c.document(ctx, pathRaceIndex, url.Values{
		"jcd": {venueCode},
		"hd":  {date},
	})
	if err != nil {
		c.tel.ReportBroken(report_client_races, err, date, venueCode)
		return nil, err
	}
	return parseRaces(doc), nil
}

func parseRaces(doc *goquery.Document) []string {
	var races []string
	for _, node := range doc.Find("div.table1 td.is-fBold a").Nodes {
		race := strings.TrimSuffix(htmlutil.GetStrippedText(node), "R")
		if race == "" {
			continue
		}
		races = append(races, race)
	}
	return races
}
