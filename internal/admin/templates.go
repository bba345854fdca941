package admin

// Template is a prefilled notification offered in the panel.
type Template struct {
	Label   string `json:"label"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Color   string `json:"color"`
}

// QuickTemplates returns the panel's quick templates.
func QuickTemplates() []Template {
	return []Template{
		{
			Label:   "Severe Weather",
			Title:   "⚠️ Severe Weather Alert",
			Message: "Severe thunderstorm warning issued for your area. Seek shelter immediately.",
			Color:   "red",
		},
		{
			Label:   "Tornado",
			Title:   "🌪️ Tornado Warning",
			Message: "TORNADO WARNING! Take shelter now in lowest floor interior room.",
			Color:   "purple",
		},
		{
			Label:   "Daily Forecast",
			Title:   "☀️ Today's Weather",
			Message: "Good morning! Today will be sunny with highs in the mid-70s.",
			Color:   "blue",
		},
		{
			Label:   "Special Event",
			Title:   "✨ Rare Weather Event",
			Message: "Aurora borealis may be visible tonight! Check the sky after 10 PM.",
			Color:   "yellow",
		},
	}
}
