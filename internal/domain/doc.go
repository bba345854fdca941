// Package domain models the hail reports shown on The Weather Spectrum hail
// impact map and the enrichment applied to them.
//
// # Data Source
//
// Hail reports come from the NOAA Storm Prediction Center (SPC) filtered daily
// CSV files, e.g. https://www.spc.noaa.gov/climo/reports/240426_rpts_filtered_hail.csv.
// The file name carries the report date as YYMMDD in the local calendar of the
// visitor. Files exist from 2012 onwards; [EarliestFeedDate] bounds custom
// date selection.
//
// # Feed Conventions
//
// Columns, positionally:
//
//	Time,Size,Location,County,State,Lat,Lon,Comments
//
// The first line is a header and is discarded. Rows with fewer than six
// columns are skipped without failing the load. Comments occasionally contain
// unquoted commas, so any columns after the eighth are joined back into the
// comment.
//
// Size is reported in hundredths of an inch: "175" means 1.75 inches.
// Missing or unparseable values are replaced by fixed defaults:
//
//	Time                     "Unknown"
//	Size                     75 (0.75 inches)
//	Location, County         "Unknown"
//	State                    "TX"
//	Lat, Lon                 Fort Worth, TX (32.7555, -97.3308)
//
// # IDs
//
// Event IDs are 1-based sequence numbers over the accepted rows of a single
// feed load. They are not stable across loads; enrichment results keyed by ID
// are discarded whenever a feed is reloaded.
//
// # Enrichment
//
// An event is enriched on first selection with a ZIP code and an estimated
// affected population. See [CensusEnricher] for the two-stage lookup and the
// fallbacks applied when it fails. The 30% share of the ZIP population is a
// rough proxy for a 5-mile catchment and carries no accuracy guarantee.
package domain
