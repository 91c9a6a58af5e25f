package boatrace

import (
	"boatrace-results/pkg/htmlutil"
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_client_venues = "client.venues"
)

// Venues lists the venues holding races on `date` (YYYYMMDD). No venues is not an error,
// it means nothing is scheduled that day.
func (c Client) Venues(ctx context.Context, date string) ([]Venue, error) {
	c.tel.ReportDebug(report_client_venues, date)

	doc, err := c.document(ctx, pathRaceList, url.Values{"hd": {date}})
	if err != nil {
		c.tel.ReportBroken(report_client_venues, err, date)
		return nil, err
	}
	return parseVenues(date, doc), nil
}

// parseVenues reads one venue per table body: the code from the `jcd` parameter of the
// race index link, the name from the venue logo's alt text.
func parseVenues(date string, doc *goquery.Document) []Venue {
	var venues []Venue
	doc.Find("div.table1 tbody").Each(func(_ int, body *goquery.Selection) {
		img := body.Find("img").First()
		if img.Length() == 0 {
			return
		}
		href, ok := body.Find(`a[href*="raceindex"]`).First().Attr("href")
		if !ok {
			return
		}
		code, ok := htmlutil.QueryParam(href, "jcd")
		if !ok || code == "" {
			return
		}

		venues = append(venues, Venue{
			Date: date,
			Code: code,
			Name: img.AttrOr("alt", ""),
		})
	})
	return venues
}
