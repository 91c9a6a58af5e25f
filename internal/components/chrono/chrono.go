package chrono

import (
	"context"
	"time"
)

var jst = time.FixedZone("JST", 9*60*60)

// JST returns the fixed UTC+9 [*time.Location] race days are scheduled in.
func JST() *time.Location {
	return jst
}

// DateLayout is the YYYYMMDD layout race days are addressed by.
const DateLayout = "20060102"

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in JST.
	Now() time.Time
	// Wait blocks for `d` or until ctx is done, whichever happens first.
	Wait(ctx context.Context, d time.Duration) error
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct{}

// NewStandardImpl is the constructor of StandardImpl.
func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (StandardImpl) Now() time.Time {
	return time.Now().In(jst)
}

func (StandardImpl) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Today formats the current day of `clock` as YYYYMMDD.
func Today(clock API) string {
	return clock.Now().In(jst).Format(DateLayout)
}

// ParseDate validates a YYYYMMDD string as a calendar date.
func ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, jst)
}
