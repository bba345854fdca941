package domain

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrEmptyFeed is returned when a feed contains no usable hail reports.
var ErrEmptyFeed = errors.New("no hail reports for this date")

const (
	minFeedFields = 6

	defaultSizeHundredths = 75.0
	defaultText           = "Unknown"
	defaultState          = "TX"
)

// ParseFeed parses an SPC filtered hail CSV into events in feed order.
// The body is split into lines and each line on commas. The header line is
// discarded and rows with fewer than six columns are skipped. Returns
// ErrEmptyFeed when no rows are accepted.
func ParseFeed(r io.Reader) ([]HailEvent, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hail feed: %w", err)
	}
	return ParseFeedString(string(body))
}

// ParseFeedString parses feed text already held in memory.
func ParseFeedString(csvText string) ([]HailEvent, error) {
	text := strings.TrimSpace(csvText)
	if text == "" {
		return nil, ErrEmptyFeed
	}

	lines := strings.Split(text, "\n")
	var events []HailEvent
	for _, line := range lines[1:] {
		fields := strings.Split(strings.TrimSuffix(line, "\r"), ",")
		if len(fields) < minFeedFields {
			continue
		}
		events = append(events, parseRow(len(events)+1, fields))
	}

	if len(events) == 0 {
		return nil, ErrEmptyFeed
	}
	return events, nil
}

func parseRow(id int, fields []string) HailEvent {
	comments := ""
	if len(fields) > 7 {
		comments = strings.TrimSpace(strings.Join(fields[7:], ","))
	}

	return HailEvent{
		ID:       id,
		Time:     textOrDefault(field(fields, 0), defaultText),
		Size:     floatOrDefault(field(fields, 1), defaultSizeHundredths) / 100,
		Location: textOrDefault(field(fields, 2), defaultText),
		County:   textOrDefault(field(fields, 3), defaultText),
		State:    textOrDefault(field(fields, 4), defaultState),
		Lat:      floatOrDefault(field(fields, 5), DefaultCenter.Lat),
		Lon:      floatOrDefault(field(fields, 6), DefaultCenter.Lon),
		Comments: comments,
	}
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func textOrDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// floatOrDefault parses s, returning fallback for empty, unparseable, zero or
// non-finite values.
func floatOrDefault(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
