package collect

import (
	"boatrace-results/internal/components/assert"
	"boatrace-results/internal/components/chrono"
	"boatrace-results/internal/components/telemetry"
	"boatrace-results/internal/scrapers/boatrace"
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_collector_venues = "collector.venues"
	report_collector_races  = "collector.races"
	report_collector_payout = "collector.payout"
)

const (
	// FirstRace is the race number whose missing payout makes the rest of a venue's races be skipped,
	// the later races are assumed to be unsettled as well.
	FirstRace = "1"
	// Throttle is the pause after every payout fetch.
	Throttle = time.Second
)

// Source is where the collector reads the race day from, implemented by boatrace.Client.
type Source interface {
	Venues(ctx context.Context, date string) ([]boatrace.Venue, error)
	Races(ctx context.Context, date, venueCode string) ([]string, error)
	Payout(ctx context.Context, date, venueCode, raceNum string) (boatrace.PayoutRecord, bool)
}

// ResultRecord is a race's payouts along with the venue it was held at.
type ResultRecord struct {
	boatrace.PayoutRecord
	boatrace.Venue
}

// VenueSummary counts what happened to the races of a venue during a run.
type VenueSummary struct {
	Venue boatrace.Venue
	// Listed is the number of races the venue's race index showed.
	Listed int
	// Fetched is the number of payout requests made.
	Fetched int
	// Collected is the number of races with payouts.
	Collected int
	// Skipped is the number of races never fetched because the first race had no payouts.
	Skipped int
}

type Result struct {
	Date    string
	Records []ResultRecord
	Venues  []VenueSummary
}

type Collector struct {
	source Source
	time   chrono.API
	tel    telemetry.API

	fetched   metric.Int64Counter
	collected metric.Int64Counter
	skipped   metric.Int64Counter
}

func NewCollector(source Source, time chrono.API, tel telemetry.API) Collector {
	assert.NotNil(source)
	assert.NotNil(time)
	assert.NotNil(tel)

	meter := otel.Meter("boatrace.collect")
	fetched, _ := meter.Int64Counter("races_fetched")
	collected, _ := meter.Int64Counter("races_collected")
	skipped, _ := meter.Int64Counter("races_skipped")

	return Collector{
		source:    source,
		time:      time,
		tel:       telemetry.NewScopedAPI("collect", tel),
		fetched:   fetched,
		collected: collected,
		skipped:   skipped,
	}
}

// ResolveDate returns the date given on the command line, or today in JST when there is none.
func ResolveDate(args []string, clock chrono.API) string {
	if len(args) > 0 {
		return args[0]
	}
	return chrono.Today(clock)
}

// Collect walks every venue held on `date` and every race of those venues, gathering the races
// that have payouts. Failing to list venues or races aborts the run, payouts that can't be
// found only leave their race out.
func (c Collector) Collect(ctx context.Context, date string) (Result, error) {
	result := Result{Date: date}

	venues, err := c.source.Venues(ctx, date)
	if err != nil {
		return result, fmt.Errorf("list venues on %s: %w", date, err)
	}
	if len(venues) == 0 {
		c.tel.ReportInfo("no venues scheduled", date)
		return result, nil
	}
	c.tel.ReportCount(report_collector_venues, int64(len(venues)))

	for _, venue := range venues {
		summary, records, err := c.collectVenue(ctx, date, venue)
		if err != nil {
			return result, err
		}
		result.Venues = append(result.Venues, summary)
		result.Records = append(result.Records, records...)
	}

	return result, nil
}

func (c Collector) collectVenue(ctx context.Context, date string, venue boatrace.Venue) (VenueSummary, []ResultRecord, error) {
	summary := VenueSummary{Venue: venue}
	attrs := metric.WithAttributes(attribute.String("venue_code", venue.Code))

	c.tel.ReportInfo("examining venue", venue.Name, venue.Code)

	races, err := c.source.Races(ctx, date, venue.Code)
	if err != nil {
		return summary, nil, fmt.Errorf("list races of venue %s on %s: %w", venue.Code, date, err)
	}
	summary.Listed = len(races)
	if len(races) == 0 {
		c.tel.ReportInfo("no races scheduled, skipping venue", venue.Code)
		return summary, nil, nil
	}
	c.tel.ReportCount(report_collector_races, int64(len(races)))

	var records []ResultRecord
	skipRemaining := false
	for _, race := range races {
		if skipRemaining {
			c.tel.ReportInfo("skipping race, first race has no payouts", venue.Code, race)
			summary.Skipped++
			c.skipped.Add(ctx, 1, attrs)
			continue
		}

		c.tel.ReportInfo("fetching race result", venue.Code, race)
		record, ok := c.source.Payout(ctx, date, venue.Code, race)
		summary.Fetched++
		c.fetched.Add(ctx, 1, attrs)

		if ok && len(record.Payouts) > 0 {
			record.RaceNum = race
			records = append(records, ResultRecord{
				PayoutRecord: record,
				Venue:        venue,
			})
			summary.Collected++
			c.collected.Add(ctx, 1, attrs)
		} else if race == FirstRace {
			c.tel.ReportWarning(report_collector_payout, "first race has no payouts, skipping the rest", venue.Code)
			skipRemaining = true
		}

		err := c.time.Wait(ctx, Throttle)
		if err != nil {
			return summary, nil, fmt.Errorf("throttle: %w", err)
		}
	}

	return summary, records, nil
}
