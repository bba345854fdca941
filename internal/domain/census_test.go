package domain_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/stretchr/testify/assert"
)

type stubGeocoder struct {
	place domain.Place
	err   error
}

func (s stubGeocoder) ReverseGeocode(context.Context, float64, float64) (domain.Place, error) {
	return s.place, s.err
}

type stubPopulation struct {
	pop   int
	err   error
	calls int
}

func (s *stubPopulation) ZCTAPopulation(context.Context, string) (int, error) {
	s.calls++
	return s.pop, s.err
}

func newEnricher(g domain.ReverseGeocoder, p domain.PopulationSource) *domain.CensusEnricher {
	return domain.NewCensusEnricher(g, p, rand.New(rand.NewPCG(1, 2)), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCensusEnricher_GeocodeFailureReturnsSentinel(t *testing.T) {
	pop := &stubPopulation{pop: 1000}
	e := newEnricher(stubGeocoder{err: errors.New("timeout")}, pop)

	got := e.Enrich(context.Background(), 32.7, -97.3)

	assert.Equal(t, domain.SentinelEnrichment(), got)
	assert.Zero(t, pop.calls)
}

func TestCensusEnricher_CensusShare(t *testing.T) {
	pop := &stubPopulation{pop: 25001}
	e := newEnricher(stubGeocoder{place: domain.Place{PostalCode: "76102-4321", PlaceType: domain.PlaceCity}}, pop)

	got := e.Enrich(context.Background(), 32.7, -97.3)

	assert.Equal(t, domain.Enrichment{ZIP: "76102", Population: 7500, Source: domain.SourceCensus}, got)
}

func TestCensusEnricher_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		place   domain.Place
		pop     *stubPopulation
		wantZIP string
		lo, hi  int
	}{
		{"city census error", domain.Place{PostalCode: "76102", PlaceType: domain.PlaceCity}, &stubPopulation{err: errors.New("503")}, "76102", 10000, 15000},
		{"town zero population", domain.Place{PostalCode: "76102", PlaceType: domain.PlaceTown}, &stubPopulation{}, "76102", 10000, 15000},
		{"village no zip", domain.Place{PlaceType: domain.PlaceVillage}, &stubPopulation{pop: 500}, "Unknown", 2000, 5000},
		{"hamlet bad zip", domain.Place{PostalCode: "ABC", PlaceType: domain.PlaceHamlet}, &stubPopulation{pop: 500}, "Unknown", 2000, 5000},
		{"other", domain.Place{PostalCode: "79901", PlaceType: domain.PlaceOther}, &stubPopulation{err: errors.New("x")}, "79901", 500, 2000},
		{"unset type", domain.Place{}, &stubPopulation{}, "Unknown", 500, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnricher(stubGeocoder{place: tt.place}, tt.pop)
			for range 50 {
				got := e.Enrich(context.Background(), 32.7, -97.3)
				assert.Equal(t, tt.wantZIP, got.ZIP)
				assert.Equal(t, domain.SourceEstimate, got.Source)
				assert.GreaterOrEqual(t, got.Population, tt.lo)
				assert.LessOrEqual(t, got.Population, tt.hi)
			}
		})
	}
}

func TestCensusEnricher_NoPopulationLookupWithoutZIP(t *testing.T) {
	pop := &stubPopulation{pop: 1000}
	e := newEnricher(stubGeocoder{place: domain.Place{PlaceType: domain.PlaceCity}}, pop)

	e.Enrich(context.Background(), 0, 0)

	assert.Zero(t, pop.calls)
}
