package itinerary

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travya/travya-backend/internal/types"
)

// stubResolver resolves from a fixed table and records lookups. Safe for the
// concurrent chunk workers.
type stubResolver struct {
	mu         sync.Mutex
	coords     map[string][2]float64
	elevations map[string]string
	lookups    []string
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		coords: map[string][2]float64{
			"Nayapul":         {28.3069, 83.7076},
			"Ghandruk":        {28.3756, 83.8014},
			"Pokhara":         {28.2096, 83.9856},
			"Birethanti":      {28.3226, 83.7119},
			"Gurung Cottage":  {28.3757, 83.8015},
			"Poon Hill":       {28.4000, 83.6950},
			"Tadapani":        {28.4167, 83.7667},
			"Chhomrong":       {28.4170, 83.8180},
			"Sinuwa":          {28.4500, 83.8300},
			"Deurali":         {28.5000, 83.9000},
			"Annapurna Base Camp": {28.5306, 83.8789},
		},
		elevations: map[string]string{
			"Ghandruk": "1940m",
		},
	}
}

func (s *stubResolver) Geocode(_ context.Context, location string) (float64, float64, bool) {
	s.mu.Lock()
	s.lookups = append(s.lookups, location)
	s.mu.Unlock()
	if c, ok := s.coords[location]; ok {
		return c[0], c[1], true
	}
	return 0, 0, false
}

func (s *stubResolver) Elevation(_ context.Context, lat, lng float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, c := range s.coords {
		if c[0] == lat && c[1] == lng {
			return s.elevations[name]
		}
	}
	return ""
}

func trekDays() []types.Day {
	return []types.Day{
		{
			Day: 1,
			Activities: []types.Activity{
				{Time: "07:00", Activity: "Drive to trailhead", Location: "Nayapul"},
				{Time: "15:00", Activity: "Trek to village", Location: "Ghandruk"},
			},
			Transportation: []types.Transportation{
				{From: "Pokhara", To: "Nayapul", Method: "bus", Time: "06:30"},
			},
			Meals: []types.Meal{
				{Time: "19:00", Type: "dinner", Hotel: "Gurung Cottage"},
			},
		},
		{
			Day: 2,
			Activities: []types.Activity{
				{Time: "05:00", Activity: "Sunrise hike", Location: "Poon Hill"},
				{Time: "14:00", Activity: "Trek onwards", Location: "Tadapani"},
			},
		},
	}
}

func TestAssemble_ResolvesAllRecordKinds(t *testing.T) {
	resolver := newStubResolver()
	assembler := NewMapAssembler(resolver, 2, testLogger())

	mapData := assembler.Assemble(context.Background(), trekDays())

	// day 1: 2 activities + 1 transport + 1 hotel, day 2: 2 activities
	require.Len(t, mapData, 6)

	byName := make(map[string]types.MapLocation)
	for _, loc := range mapData {
		byName[loc.Name] = loc
	}

	assert.Equal(t, "Drive to trailhead", byName["Nayapul"].Description)
	assert.Equal(t, "07:00", byName["Nayapul"].Time)
	assert.Equal(t, "Transportation: bus", byName["Pokhara"].Description)
	assert.Equal(t, "Accommodation", byName["Gurung Cottage"].Description)
	assert.Equal(t, "1940m", byName["Ghandruk"].Elevation)
}

func TestAssemble_SortedByDay(t *testing.T) {
	resolver := newStubResolver()
	assembler := NewMapAssembler(resolver, 2, testLogger())

	mapData := assembler.Assemble(context.Background(), trekDays())

	for i := 1; i < len(mapData); i++ {
		assert.LessOrEqual(t, mapData[i-1].Day, mapData[i].Day)
	}
}

func TestAssemble_DeduplicatesExactTuples(t *testing.T) {
	resolver := newStubResolver()
	assembler := NewMapAssembler(resolver, 2, testLogger())

	days := []types.Day{{
		Day: 1,
		Activities: []types.Activity{
			{Time: "09:00", Activity: "Morning walk", Location: "Ghandruk"},
			{Time: "16:00", Activity: "Evening walk", Location: "Ghandruk"},
		},
	}}

	mapData := assembler.Assemble(context.Background(), days)

	require.Len(t, mapData, 1)
	// First occurrence wins
	assert.Equal(t, "Morning walk", mapData[0].Description)
}

func TestAssemble_SamePlaceOnDifferentDaysKept(t *testing.T) {
	resolver := newStubResolver()
	assembler := NewMapAssembler(resolver, 2, testLogger())

	days := []types.Day{
		{Day: 1, Activities: []types.Activity{{Activity: "Arrive", Location: "Ghandruk"}}},
		{Day: 2, Activities: []types.Activity{{Activity: "Depart", Location: "Ghandruk"}}},
	}

	mapData := assembler.Assemble(context.Background(), days)
	assert.Len(t, mapData, 2)
}

func TestAssemble_UnresolvableLocationsDropped(t *testing.T) {
	resolver := newStubResolver()
	assembler := NewMapAssembler(resolver, 2, testLogger())

	days := []types.Day{{
		Day: 1,
		Activities: []types.Activity{
			{Activity: "Visit somewhere unknown", Location: "Middle of Nowhere"},
			{Activity: "Visit the village", Location: "Ghandruk"},
		},
	}}

	mapData := assembler.Assemble(context.Background(), days)

	require.Len(t, mapData, 1)
	assert.Equal(t, "Ghandruk", mapData[0].Name)
}

func TestAssemble_TransportFallsBackToFromThenTo(t *testing.T) {
	resolver := newStubResolver()
	assembler := NewMapAssembler(resolver, 2, testLogger())

	days := []types.Day{{
		Day: 1,
		Transportation: []types.Transportation{
			{To: "Pokhara", Method: "jeep"},
		},
	}}

	mapData := assembler.Assemble(context.Background(), days)

	require.Len(t, mapData, 1)
	assert.Equal(t, "Pokhara", mapData[0].Name)
	assert.Equal(t, "Transportation: jeep", mapData[0].Description)
}

func TestAssemble_ChunkingDoesNotChangeOutput(t *testing.T) {
	days := []types.Day{
		{Day: 1, Activities: []types.Activity{{Activity: "Trek", Location: "Nayapul"}}},
		{Day: 2, Activities: []types.Activity{{Activity: "Trek", Location: "Ghandruk"}}},
		{Day: 3, Activities: []types.Activity{{Activity: "Trek", Location: "Tadapani"}}},
		{Day: 4, Activities: []types.Activity{{Activity: "Trek", Location: "Chhomrong"}}},
		{Day: 5, Activities: []types.Activity{{Activity: "Trek", Location: "Sinuwa"}}},
		{Day: 6, Activities: []types.Activity{{Activity: "Trek", Location: "Deurali"}}},
	}

	chunked := NewMapAssembler(newStubResolver(), 2, testLogger())
	single := NewMapAssembler(newStubResolver(), 10, testLogger())

	assert.Equal(t,
		single.Assemble(context.Background(), days),
		chunked.Assemble(context.Background(), days))
}

func TestAssemble_EmptyDays(t *testing.T) {
	assembler := NewMapAssembler(newStubResolver(), 2, testLogger())
	assert.Nil(t, assembler.Assemble(context.Background(), nil))
}

func TestGenerateSummary(t *testing.T) {
	summary := GenerateSummary(trekDays())

	assert.True(t, strings.HasPrefix(summary, "### Day 1"))
	assert.Contains(t, summary, "### Day 2")
	assert.Contains(t, summary, "- 07:00 Drive to trailhead (Nayapul)")
	assert.Contains(t, summary, "- **Stay:** Gurung Cottage")
	assert.Contains(t, summary, "- 05:00 Sunrise hike (Poon Hill)")
}

func TestGenerateSummary_Empty(t *testing.T) {
	assert.Equal(t, "No itinerary data available.", GenerateSummary(nil))
}

func TestGenerateSummary_ActivityWithoutTime(t *testing.T) {
	days := []types.Day{{
		Day:        1,
		Activities: []types.Activity{{Activity: "Wander the old town"}},
	}}

	summary := GenerateSummary(days)
	assert.Contains(t, summary, "- Wander the old town")
}
