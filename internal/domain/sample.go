package domain

// SampleEvents returns the built-in demonstration events shown when no feed
// is selected or a feed load fails. Each call returns a fresh slice.
func SampleEvents() []HailEvent {
	return []HailEvent{
		{
			ID: 1, Time: "14:30 CST", Size: 1.75,
			Location: "Fort Worth", County: "Tarrant", State: "TX",
			Lat: 32.7555, Lon: -97.3308,
			Comments: "Golf ball sized hail reported by trained spotter. Minor vehicle damage.",
		},
		{
			ID: 2, Time: "15:45 CST", Size: 1.0,
			Location: "Arlington", County: "Tarrant", State: "TX",
			Lat: 32.7357, Lon: -97.1081,
			Comments: "Quarter sized hail observed near AT&T Stadium.",
		},
		{
			ID: 3, Time: "16:20 CST", Size: 2.5,
			Location: "Dallas", County: "Dallas", State: "TX",
			Lat: 32.7767, Lon: -96.7970,
			Comments: "Baseball to softball sized hail. Multiple reports of vehicle and roof damage.",
		},
		{
			ID: 4, Time: "14:15 CST", Size: 0.75,
			Location: "Grapevine", County: "Tarrant", State: "TX",
			Lat: 32.9342, Lon: -97.0781,
			Comments: "Pea sized hail near DFW Airport.",
		},
		{
			ID: 5, Time: "17:00 CST", Size: 1.5,
			Location: "Plano", County: "Collin", State: "TX",
			Lat: 33.0198, Lon: -96.6989,
			Comments: "Ping pong ball sized hail. Tree damage reported.",
		},
	}
}
