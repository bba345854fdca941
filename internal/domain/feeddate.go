package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateRange selects which feed the hail map shows.
type DateRange string

const (
	RangeSample    DateRange = "sample"
	RangeToday     DateRange = "today"
	RangeYesterday DateRange = "yesterday"
	RangeCustom    DateRange = "custom"
)

// ParseDateRange validates a date range name.
func ParseDateRange(s string) (DateRange, error) {
	switch r := DateRange(s); r {
	case RangeSample, RangeToday, RangeYesterday, RangeCustom:
		return r, nil
	default:
		return "", fmt.Errorf("unknown date range %q", s)
	}
}

var (
	ErrDateRequired   = errors.New("please select a date")
	ErrInvalidDate    = errors.New("invalid date, expected YYYY-MM-DD")
	ErrDateOutOfRange = errors.New("date must be between 2012-01-01 and today")
)

// EarliestFeedDate is the first day SPC filtered hail reports are available.
var EarliestFeedDate = CalendarDate{Year: 2012, Month: time.January, Day: 1}

const (
	customDateLayout = "2006-01-02"
	feedDateLayout   = "060102"
)

// CalendarDate is a date without a time zone. Feed file names are derived
// from its components directly so no UTC conversion can shift the day.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// FeedDate formats the date as YYMMDD.
func (d CalendarDate) FeedDate() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(feedDateLayout)
}

// String formats the date as YYYY-MM-DD.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly earlier than o.
func (d CalendarDate) Before(o CalendarDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// ParseCalendarDate parses YYYY-MM-DD into its calendar components.
func ParseCalendarDate(s string) (CalendarDate, error) {
	if s == "" {
		return CalendarDate{}, ErrDateRequired
	}
	// Parsed in UTC only to validate the components; the zone is discarded.
	t, err := time.Parse(customDateLayout, s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// Today returns the local calendar date of the package clock.
func Today(loc *time.Location) CalendarDate {
	return DateOf(clock.Now().In(loc))
}

// FeedDateFor resolves the YYMMDD feed date for a range. now supplies the
// local calendar reference for today/yesterday and the upper bound for custom
// dates. RangeSample has no feed date.
func FeedDateFor(r DateRange, customDate string, now time.Time) (string, error) {
	today := DateOf(now)
	switch r {
	case RangeToday:
		return today.FeedDate(), nil
	case RangeYesterday:
		return DateOf(now.AddDate(0, 0, -1)).FeedDate(), nil
	case RangeCustom:
		d, err := ParseCalendarDate(customDate)
		if err != nil {
			return "", err
		}
		if d.Before(EarliestFeedDate) || today.Before(d) {
			return "", ErrDateOutOfRange
		}
		return d.FeedDate(), nil
	default:
		return "", fmt.Errorf("no feed for date range %q", r)
	}
}
