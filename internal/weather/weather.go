// Package weather assembles current conditions, a five-day forecast and
// active alerts for a location from the National Weather Service.
package weather

import (
	"context"
	"math"
	"strings"
)

// Point is the NWS grid metadata for a coordinate.
type Point struct {
	ForecastURL string
	StationsURL string
	City        string
	State       string
}

// Observation is the latest reading from the nearest station. TemperatureC is
// nil when the station did not report one.
type Observation struct {
	TemperatureC *float64
	Description  string
}

// Period is one named forecast period ("Tonight", "Wednesday", ...).
type Period struct {
	Name          string `json:"name"`
	IsDaytime     bool   `json:"isDaytime"`
	Temperature   int    `json:"temperature"`
	ShortForecast string `json:"shortForecast"`
}

// AlertColor is the display severity of an active alert.
type AlertColor string

const (
	AlertRed    AlertColor = "red"
	AlertOrange AlertColor = "orange"
	AlertYellow AlertColor = "yellow"
)

// Alert is an active NWS alert for a point.
type Alert struct {
	ID          string     `json:"id"`
	Event       string     `json:"event"`
	Headline    string     `json:"headline"`
	AreaDesc    string     `json:"areaDesc"`
	Severity    string     `json:"severity"`
	Urgency     string     `json:"urgency"`
	Instruction string     `json:"instruction,omitempty"`
	Color       AlertColor `json:"color"`
}

// Provider is the NWS API surface used to build Conditions.
type Provider interface {
	Point(ctx context.Context, lat, lon float64) (Point, error)
	LatestObservation(ctx context.Context, stationsURL string) (Observation, error)
	Forecast(ctx context.Context, forecastURL string) ([]Period, error)
	ActiveAlerts(ctx context.Context, lat, lon float64) ([]Alert, error)
}

// Icon names a forecast glyph.
type Icon string

const (
	IconRain  Icon = "rain"
	IconCloud Icon = "cloud"
	IconSun   Icon = "sun"
	IconWind  Icon = "wind"
)

// DayForecast is one collapsed day of the five-day forecast.
type DayForecast struct {
	Day       string `json:"day"`
	High      int    `json:"high"`
	Low       int    `json:"low"`
	Condition string `json:"condition"`
	Icon      Icon   `json:"icon"`
}

// Conditions is everything the home page shows for a location.
type Conditions struct {
	Location     string        `json:"location"`
	Lat          float64       `json:"lat"`
	Lon          float64       `json:"lon"`
	TemperatureF int           `json:"temperatureF"`
	Condition    string        `json:"condition"`
	Icon         Icon          `json:"icon"`
	Forecast     []DayForecast `json:"forecast"`
	Alerts       []Alert       `json:"alerts"`
}

const (
	forecastDays    = 5
	forecastPeriods = 10
)

// CollapseForecast folds day/night periods into at most five days. Each
// daytime period among the first ten becomes a day whose low is the
// following period's temperature; that following period is then skipped.
func CollapseForecast(periods []Period) []DayForecast {
	days := make([]DayForecast, 0, forecastDays)
	limit := min(forecastPeriods, len(periods))

	for i := 0; i < limit && len(days) < forecastDays; i++ {
		p := periods[i]
		if !p.IsDaytime {
			continue
		}

		low := p.Temperature
		if i+1 < len(periods) {
			low = periods[i+1].Temperature
		}
		days = append(days, DayForecast{
			Day:       dayLabel(i, p.Name),
			High:      p.Temperature,
			Low:       low,
			Condition: p.ShortForecast,
			Icon:      IconFor(p.ShortForecast),
		})
		i++
	}
	return days
}

func dayLabel(i int, name string) string {
	if i < 2 {
		return "Today"
	}
	if first, _, ok := strings.Cut(name, " "); ok {
		return first
	}
	return name
}

// IconFor picks a glyph from a short forecast text.
func IconFor(condition string) Icon {
	lower := strings.ToLower(condition)
	switch {
	case strings.Contains(lower, "rain"), strings.Contains(lower, "shower"):
		return IconRain
	case strings.Contains(lower, "cloud"):
		return IconCloud
	case strings.Contains(lower, "clear"), strings.Contains(lower, "sunny"):
		return IconSun
	case strings.Contains(lower, "wind"):
		return IconWind
	default:
		return IconCloud
	}
}

// AlertColorFor maps NWS severity and urgency to a display color.
func AlertColorFor(severity, urgency string) AlertColor {
	switch {
	case severity == "Extreme" || urgency == "Immediate":
		return AlertRed
	case severity == "Severe" || urgency == "Expected":
		return AlertOrange
	default:
		return AlertYellow
	}
}

// CelsiusToFahrenheit converts and rounds to the nearest degree.
func CelsiusToFahrenheit(c float64) int {
	return int(math.Round(c*9/5 + 32))
}
