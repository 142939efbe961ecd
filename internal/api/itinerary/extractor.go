package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/travya/travya-backend/app/observability/metrics"
	"github.com/travya/travya-backend/internal/types"
)

// AIClient is the slice of the generative AI client the extractor needs.
type AIClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// PlaceExtractor turns a raw itinerary document into a deduplicated,
// prioritized list of places. The structural pass runs first and needs no
// external calls; the LLM paths are fallbacks for unstructured input.
type PlaceExtractor struct {
	logger           *slog.Logger
	aiClient         AIClient
	maxPlaces        int
	chunkingMinChars int
	maxPromptChars   int
}

func NewPlaceExtractor(aiClient AIClient, maxPlaces, chunkingMinChars, maxPromptChars int, logger *slog.Logger) *PlaceExtractor {
	if maxPlaces <= 0 {
		maxPlaces = 15
	}
	if chunkingMinChars <= 0 {
		chunkingMinChars = 2000
	}
	if maxPromptChars <= 0 {
		maxPromptChars = 2000
	}
	return &PlaceExtractor{
		logger:           logger,
		aiClient:         aiClient,
		maxPlaces:        maxPlaces,
		chunkingMinChars: chunkingMinChars,
		maxPromptChars:   maxPromptChars,
	}
}

// ExtractPlaces produces the prioritized place list and reports which path
// produced it. It never returns an error: exhausted extraction paths degrade
// to an empty list with SourceNone.
func (e *PlaceExtractor) ExtractPlaces(ctx context.Context, raw []byte, tripURL string) ([]types.ExtractedPlace, types.ExtractionSource) {
	ctx, span := otel.Tracer("PlaceExtractor").Start(ctx, "ExtractPlaces", trace.WithAttributes(
		attribute.Int("itinerary.length", len(raw)),
	))
	defer span.End()

	l := e.logger.With(slog.String("component", "PlaceExtractor"))
	l.DebugContext(ctx, "Starting place extraction", slog.Int("input_length", len(raw)))

	itin := types.DecodeItinerary(raw)

	direct := e.extractDirect(itin)
	if len(direct) > 0 {
		l.InfoContext(ctx, "Direct extraction succeeded", slog.Int("places", len(direct)))
		span.SetAttributes(attribute.String("extraction.source", string(types.SourceDirect)))
		return e.prioritize(direct), types.SourceDirect
	}

	if e.aiClient == nil {
		l.WarnContext(ctx, "No AI client configured and direct extraction found nothing")
		return nil, types.SourceNone
	}

	if len(raw) > e.chunkingMinChars && len(itin.Days) > 0 {
		l.InfoContext(ctx, "Long itinerary detected, using chunked extraction", slog.Int("days", len(itin.Days)))
		places := e.extractChunked(ctx, itin.Days)
		span.SetAttributes(attribute.String("extraction.source", string(types.SourceLLMChunked)))
		return places, types.SourceLLMChunked
	}

	places, err := e.extractSingleShot(ctx, string(raw), tripURL)
	if err != nil {
		l.ErrorContext(ctx, "Single-shot extraction failed", slog.Any("error", err))
		return nil, types.SourceNone
	}
	span.SetAttributes(attribute.String("extraction.source", string(types.SourceLLMSingle)))
	return places, types.SourceLLMSingle
}

// extractDirect walks the known itinerary schema collecting location-bearing
// fields in first-seen order, deduplicated by exact name.
func (e *PlaceExtractor) extractDirect(itin *types.Itinerary) []types.ExtractedPlace {
	var places []types.ExtractedPlace
	seen := make(map[string]bool)

	add := func(place types.ExtractedPlace) {
		if place.Name == "" || seen[place.Name] {
			return
		}
		seen[place.Name] = true
		places = append(places, place)
	}

	if destination := itin.Overview.Destination; destination != "" {
		add(types.ExtractedPlace{
			Name:        destination,
			Type:        types.PlaceTypeNaturalSpot,
			Caption:     fmt.Sprintf("Main destination: %s", destination),
			SearchQuery: destination,
		})
	}

	for _, day := range itin.Days {
		for _, activity := range day.Activities {
			if activity.Location == "" {
				continue
			}
			add(types.ExtractedPlace{
				Name:        activity.Location,
				Type:        inferPlaceType(activity.Location, activity.Activity),
				Caption:     fmt.Sprintf("Location: %s", activity.Location),
				SearchQuery: activity.Location,
			})
		}
		for _, meal := range day.Meals {
			if meal.Restaurant == "" {
				continue
			}
			add(types.ExtractedPlace{
				Name:        meal.Restaurant,
				Type:        types.PlaceTypeRestaurant,
				Caption:     fmt.Sprintf("Restaurant: %s", meal.Restaurant),
				SearchQuery: meal.Restaurant,
			})
		}
		for _, transport := range day.Transportation {
			for _, hub := range []string{transport.From, transport.To} {
				if hub == "" {
					continue
				}
				add(types.ExtractedPlace{
					Name:        hub,
					Type:        types.PlaceTypeStation,
					Caption:     fmt.Sprintf("Transport hub: %s", hub),
					SearchQuery: hub,
				})
			}
		}
	}

	return places
}

// extractChunked issues one LLM call per day. A failed day is skipped, not
// fatal for the itinerary.
func (e *PlaceExtractor) extractChunked(ctx context.Context, days []types.Day) []types.ExtractedPlace {
	var allPlaces []types.ExtractedPlace

	for i, day := range days {
		chunkName := fmt.Sprintf("Day %d", i+1)
		chunkText := renderDayChunk(day, i+1)

		dayPlaces, err := e.callExtraction(ctx, getChunkExtractionPrompt(chunkText, chunkName))
		if err != nil {
			e.logger.ErrorContext(ctx, "Chunk extraction failed, skipping day",
				slog.String("chunk", chunkName), slog.Any("error", err))
			continue
		}
		if len(dayPlaces) == 0 {
			e.logger.WarnContext(ctx, "No places found in chunk", slog.String("chunk", chunkName))
			continue
		}
		allPlaces = append(allPlaces, dayPlaces...)
	}

	return e.prioritize(dedupePlaces(allPlaces))
}

func (e *PlaceExtractor) extractSingleShot(ctx context.Context, itineraryText, tripURL string) ([]types.ExtractedPlace, error) {
	if len(itineraryText) > e.maxPromptChars {
		itineraryText = itineraryText[:e.maxPromptChars] + "..."
	}
	places, err := e.callExtraction(ctx, getSingleShotExtractionPrompt(itineraryText, tripURL))
	if err != nil {
		return nil, err
	}
	return e.prioritize(dedupePlaces(places)), nil
}

func (e *PlaceExtractor) callExtraction(ctx context.Context, prompt string) ([]types.ExtractedPlace, error) {
	metrics.Get().LlmExtractionsTotal.Add(ctx, 1)
	response, err := e.aiClient.GenerateContent(ctx, prompt)
	if err != nil {
		metrics.Get().LlmExtractionErrsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("LLM extraction call failed: %w", err)
	}
	places, err := parsePlacesResponse(response)
	if err != nil {
		metrics.Get().LlmExtractionErrsTotal.Add(ctx, 1)
		return nil, err
	}
	return places, nil
}

// dedupePlaces collapses name variants: a place is dropped when its
// normalized name equals, contains, or is contained in an already-accepted
// name. This is deliberately loose so "Ghandruk" and "Ghandruk Village"
// merge.
func dedupePlaces(places []types.ExtractedPlace) []types.ExtractedPlace {
	var unique []types.ExtractedPlace
	var seenNames []string

	for _, place := range places {
		normalized := strings.ToLower(strings.TrimSpace(place.Name))
		if normalized == "" {
			continue
		}
		duplicate := false
		for _, seen := range seenNames {
			if strings.Contains(seen, normalized) || strings.Contains(normalized, seen) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, place)
			seenNames = append(seenNames, normalized)
		}
	}
	return unique
}

var placeTypeWeights = map[types.PlaceType]int{
	types.PlaceTypeLandmark:    4,
	types.PlaceTypeMountain:    4,
	types.PlaceTypeNaturalSpot: 3,
	types.PlaceTypeTemple:      3,
	types.PlaceTypeViewpoint:   3,
	types.PlaceTypeMuseum:      3,
	types.PlaceTypeStupa:       3,
	types.PlaceTypePagoda:      3,
	types.PlaceTypeVillage:     2,
	types.PlaceTypeCity:        2,
	types.PlaceTypeLake:        2,
	types.PlaceTypeRiver:       2,
	types.PlaceTypeValley:      2,
	types.PlaceTypeTrail:       2,
	types.PlaceTypeMarket:      1,
	types.PlaceTypeRestaurant:  1,
	types.PlaceTypeHotel:       1,
	types.PlaceTypeAirport:     1,
	types.PlaceTypeStation:     1,
	types.PlaceTypeGuesthouse:  1,
}

var photogenicKeywords = []string{
	"temple", "stupa", "pagoda", "monument", "palace", "castle",
	"lake", "mountain", "beach", "waterfall", "valley", "canyon",
	"garden", "park", "square", "market", "bridge", "tower",
	"cathedral", "mosque", "church", "monastery", "fort", "ruins",
	"viewpoint", "summit", "peak", "range", "river",
	"village", "settlement", "heritage", "cultural", "traditional",
	"circuit", "trek", "trail", "national park", "reserve", "sanctuary",
}

func placeScore(place types.ExtractedPlace) int {
	score := placeTypeWeights[place.Type]
	if score == 0 {
		score = 1
	}

	nameLower := strings.ToLower(place.Name)
	captionLower := strings.ToLower(place.Caption)
	for _, keyword := range photogenicKeywords {
		if strings.Contains(nameLower, keyword) || strings.Contains(captionLower, keyword) {
			score += 2
			break
		}
	}
	return score
}

// prioritize sorts places by descending score and caps the result.
func (e *PlaceExtractor) prioritize(places []types.ExtractedPlace) []types.ExtractedPlace {
	sorted := make([]types.ExtractedPlace, len(places))
	copy(sorted, places)
	sort.SliceStable(sorted, func(i, j int) bool {
		return placeScore(sorted[i]) > placeScore(sorted[j])
	})
	if len(sorted) > e.maxPlaces {
		sorted = sorted[:e.maxPlaces]
	}
	return sorted
}

var placeTypeKeywords = []struct {
	placeType types.PlaceType
	keywords  []string
}{
	{types.PlaceTypeMountain, []string{"mountain", "peak", "range", "circuit", "trek", "camp"}},
	{types.PlaceTypeNaturalSpot, []string{"lake", "river", "khola", "valley"}},
	{types.PlaceTypeVillage, []string{"village", "settlement"}},
	{types.PlaceTypeCity, []string{"city", "town"}},
	{types.PlaceTypeStation, []string{"bus", "park", "station", "airport", "terminal"}},
}

// inferPlaceType guesses a type from the location name, falling back to the
// activity text for dining/lodging hints, then to landmark.
func inferPlaceType(location, activity string) types.PlaceType {
	locationLower := strings.ToLower(location)
	for _, entry := range placeTypeKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(locationLower, keyword) {
				return entry.placeType
			}
		}
	}

	activityLower := strings.ToLower(activity)
	for _, keyword := range []string{"restaurant", "hotel", "guesthouse", "dining"} {
		if strings.Contains(activityLower, keyword) {
			return types.PlaceTypeRestaurant
		}
	}

	return types.PlaceTypeLandmark
}
