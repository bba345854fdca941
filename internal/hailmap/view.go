package hailmap

import "github.com/couchcryptid/weather-spectrum/internal/domain"

// View is an immutable snapshot of a controller's state. Events carry their
// enrichment when it has already been resolved.
type View struct {
	DateRange   domain.DateRange    `json:"dateRange"`
	CustomDate  string              `json:"customDate,omitempty"`
	ZIP         string              `json:"zip,omitempty"`
	ZIPFilter   *domain.ZipLocation `json:"zipFilter"`
	MapCenter   domain.Coordinates  `json:"mapCenter"`
	Events      []domain.HailEvent  `json:"events"`
	TotalEvents int                 `json:"totalEvents"`
	Message     string              `json:"message,omitempty"`
	Loading     bool                `json:"loading"`
	SelectedID  int                 `json:"selectedId,omitempty"`
}

// Filtered reports whether a ZIP radius filter is active.
func (v View) Filtered() bool {
	return v.ZIPFilter != nil
}

func (c *Controller) viewLocked() View {
	events := make([]domain.HailEvent, len(c.state.filtered))
	for i, e := range c.state.filtered {
		if en, ok := c.enrichment.resolved(e.ID); ok {
			e = e.WithEnrichment(en)
		}
		events[i] = e
	}

	var filter *domain.ZipLocation
	if c.state.zipFilter != nil {
		z := *c.state.zipFilter
		filter = &z
	}

	return View{
		DateRange:   c.state.dateRange,
		CustomDate:  c.state.customDate,
		ZIP:         c.state.zip,
		ZIPFilter:   filter,
		MapCenter:   c.state.mapCenter,
		Events:      events,
		TotalEvents: len(c.state.events),
		Message:     c.state.message,
		Loading:     c.state.loading,
		SelectedID:  c.state.selectedID,
	}
}
