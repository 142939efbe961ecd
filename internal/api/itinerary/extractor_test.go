package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/travya/travya-backend/internal/types"
)

// MockAIClient is a mock implementation of AIClient
type MockAIClient struct {
	mock.Mock
}

func (m *MockAIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func structuredItinerary() []byte {
	doc := map[string]any{
		"itinerary": map[string]any{
			"itinerary": map[string]any{
				"overview": map[string]any{"destination": "Annapurna Region"},
				"days": []map[string]any{
					{
						"day": 1,
						"activities": []map[string]any{
							{"time": "09:00", "activity": "Drive to trailhead", "location": "Nayapul"},
							{"time": "14:00", "activity": "Village walk", "location": "Ghandruk"},
						},
						"meals": []map[string]any{
							{"time": "12:00", "type": "lunch", "restaurant": "Birethanti Lodge"},
						},
						"transportation": []map[string]any{
							{"from": "Pokhara Tourist Bus Park", "to": "Nayapul", "method": "bus"},
						},
					},
				},
			},
		},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

func TestExtractPlaces_DirectExtraction(t *testing.T) {
	mockAI := new(MockAIClient)
	extractor := NewPlaceExtractor(mockAI, 15, 2000, 2000, testLogger())

	places, source := extractor.ExtractPlaces(context.Background(), structuredItinerary(), "")

	assert.Equal(t, types.SourceDirect, source)
	mockAI.AssertNotCalled(t, "GenerateContent")

	names := make(map[string]bool)
	for _, p := range places {
		assert.False(t, names[p.Name], "duplicate name %q", p.Name)
		names[p.Name] = true
	}
	// destination + 2 activity locations + restaurant + transport from
	// ("Nayapul" is already seen from the first activity)
	assert.Len(t, places, 5)
	assert.True(t, names["Annapurna Region"])
	assert.True(t, names["Nayapul"])
	assert.True(t, names["Ghandruk"])
	assert.True(t, names["Birethanti Lodge"])
	assert.True(t, names["Pokhara Tourist Bus Park"])
}

func TestExtractPlaces_DirectExtractionIsIdempotent(t *testing.T) {
	extractor := NewPlaceExtractor(nil, 15, 2000, 2000, testLogger())
	raw := structuredItinerary()

	first, _ := extractor.ExtractPlaces(context.Background(), raw, "")
	second, _ := extractor.ExtractPlaces(context.Background(), raw, "")

	assert.Equal(t, first, second)
}

func TestExtractPlaces_NoClientNoStructure(t *testing.T) {
	extractor := NewPlaceExtractor(nil, 15, 2000, 2000, testLogger())

	places, source := extractor.ExtractPlaces(context.Background(), []byte(`{"notes":"free text"}`), "")

	assert.Empty(t, places)
	assert.Equal(t, types.SourceNone, source)
}

func TestExtractPlaces_SingleShotFallback(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("GenerateContent", mock.Anything, mock.Anything).Return(
		"```json\n[{\"name\": \"Pokhara\", \"type\": \"city\", \"caption\": \"Lakeside city\"}]\n```", nil)

	extractor := NewPlaceExtractor(mockAI, 15, 2000, 2000, testLogger())
	places, source := extractor.ExtractPlaces(context.Background(), []byte(`{"notes":"a trip around Pokhara"}`), "")

	require.Len(t, places, 1)
	assert.Equal(t, types.SourceLLMSingle, source)
	assert.Equal(t, "Pokhara", places[0].Name)
	assert.Equal(t, types.PlaceTypeCity, places[0].Type)
	// search_query defaults to the name when the model omits it
	assert.Equal(t, "Pokhara", places[0].SearchQuery)
	mockAI.AssertExpectations(t)
}

func TestExtractPlaces_SingleShotFailure(t *testing.T) {
	mockAI := new(MockAIClient)
	mockAI.On("GenerateContent", mock.Anything, mock.Anything).Return("", errors.New("quota exhausted"))

	extractor := NewPlaceExtractor(mockAI, 15, 2000, 2000, testLogger())
	places, source := extractor.ExtractPlaces(context.Background(), []byte(`{"notes":"short"}`), "")

	assert.Empty(t, places)
	assert.Equal(t, types.SourceNone, source)
}

func TestExtractPlaces_ChunkedExtraction(t *testing.T) {
	// Days with prose but no location-bearing fields, padded past the
	// chunking threshold, so the direct pass finds nothing.
	days := make([]map[string]any, 3)
	for i := range days {
		days[i] = map[string]any{
			"day":   i + 1,
			"theme": fmt.Sprintf("Exploring on foot, part %d of a long journey through the hills", i+1),
			"activities": []map[string]any{
				{"time": "09:00", "activity": "Walk through terraced fields", "description": "A slow morning on stone steps with mountain views all around and plenty of tea stops"},
			},
		}
	}
	doc := map[string]any{"itinerary": map[string]any{"itinerary": map[string]any{"days": days}}}
	raw, _ := json.Marshal(doc)
	for len(raw) <= 2000 {
		doc["padding"] = string(make([]byte, 2048))
		raw, _ = json.Marshal(doc)
	}

	mockAI := new(MockAIClient)
	mockAI.On("GenerateContent", mock.Anything, mock.Anything).Return(
		`[{"name": "Ghandruk", "type": "village", "caption": "Gurung village", "search_query": "Ghandruk"}]`, nil).Times(3)

	extractor := NewPlaceExtractor(mockAI, 15, 2000, 2000, testLogger())
	places, source := extractor.ExtractPlaces(context.Background(), raw, "")

	assert.Equal(t, types.SourceLLMChunked, source)
	// The same place from all three day chunks collapses to one entry
	require.Len(t, places, 1)
	assert.Equal(t, "Ghandruk", places[0].Name)
	mockAI.AssertExpectations(t)
}

func TestExtractPlaces_ChunkFailureSkipsDay(t *testing.T) {
	days := []map[string]any{
		{"day": 1, "activities": []map[string]any{{"activity": "Morning walk along the ridge with long views", "description": "no named stops today, just trail"}}},
		{"day": 2, "activities": []map[string]any{{"activity": "Descend to the river and rest", "description": "an easy day winding down the valley path"}}},
	}
	doc := map[string]any{"itinerary": map[string]any{"itinerary": map[string]any{"days": days}}}
	raw, _ := json.Marshal(doc)
	for len(raw) <= 2000 {
		doc["padding"] = string(make([]byte, 2048))
		raw, _ = json.Marshal(doc)
	}

	mockAI := new(MockAIClient)
	mockAI.On("GenerateContent", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Day 1")
	})).Return("", errors.New("timeout")).Once()
	mockAI.On("GenerateContent", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Day 2")
	})).Return(`[{"name": "Modi Khola", "type": "river", "caption": "River valley"}]`, nil).Once()

	extractor := NewPlaceExtractor(mockAI, 15, 2000, 2000, testLogger())
	places, source := extractor.ExtractPlaces(context.Background(), raw, "")

	assert.Equal(t, types.SourceLLMChunked, source)
	require.Len(t, places, 1)
	assert.Equal(t, "Modi Khola", places[0].Name)
	mockAI.AssertExpectations(t)
}

func TestDedupePlaces_SubstringContainment(t *testing.T) {
	places := []types.ExtractedPlace{
		{Name: "Ghandruk", Type: types.PlaceTypeVillage},
		{Name: "Ghandruk Village", Type: types.PlaceTypeVillage},
		{Name: "Pokhara", Type: types.PlaceTypeCity},
	}

	unique := dedupePlaces(places)

	require.Len(t, unique, 2)
	assert.Equal(t, "Ghandruk", unique[0].Name)
	assert.Equal(t, "Pokhara", unique[1].Name)
}

func TestPrioritize_CapAndOrdering(t *testing.T) {
	var places []types.ExtractedPlace
	for i := 0; i < 10; i++ {
		places = append(places, types.ExtractedPlace{
			Name: fmt.Sprintf("Guesthouse %d", i), Type: types.PlaceTypeGuesthouse,
		})
	}
	for i := 0; i < 10; i++ {
		places = append(places, types.ExtractedPlace{
			Name: fmt.Sprintf("Summit %d", i), Type: types.PlaceTypeMountain,
		})
	}

	extractor := NewPlaceExtractor(nil, 15, 2000, 2000, testLogger())
	prioritized := extractor.prioritize(places)

	require.Len(t, prioritized, 15)
	for i := 1; i < len(prioritized); i++ {
		assert.GreaterOrEqual(t, placeScore(prioritized[i-1]), placeScore(prioritized[i]))
	}
	// All ten mountains outrank every guesthouse
	for i := 0; i < 10; i++ {
		assert.Equal(t, types.PlaceTypeMountain, prioritized[i].Type)
	}
}

func TestPlaceScore_PhotogenicBonus(t *testing.T) {
	plain := types.ExtractedPlace{Name: "Some Spot", Type: types.PlaceTypeCity}
	photogenic := types.ExtractedPlace{Name: "Some Spot", Type: types.PlaceTypeCity, Caption: "heritage settlement"}

	assert.Equal(t, 2, placeScore(plain))
	assert.Equal(t, 4, placeScore(photogenic))
}

func TestInferPlaceType(t *testing.T) {
	tests := []struct {
		location string
		activity string
		want     types.PlaceType
	}{
		{"Annapurna Base Camp", "", types.PlaceTypeMountain},
		{"Tourist Bus Park", "", types.PlaceTypeStation},
		{"Phewa Lake", "", types.PlaceTypeNaturalSpot},
		{"Modi Khola", "", types.PlaceTypeNaturalSpot},
		{"Ghandruk Village", "", types.PlaceTypeVillage},
		{"Kathmandu city center", "", types.PlaceTypeCity},
		{"Thakali Kitchen", "Dinner at a local restaurant", types.PlaceTypeRestaurant},
		{"Peace Pagoda", "", types.PlaceTypeLandmark},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, inferPlaceType(tt.location, tt.activity))
		})
	}
}
