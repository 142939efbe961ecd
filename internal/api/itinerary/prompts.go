package itinerary

import (
	"fmt"
	"strings"

	"github.com/travya/travya-backend/internal/types"
)

const placeTypeList = "city, landmark, natural_spot, mountain, lake, temple, village, viewpoint, market, restaurant, hotel, airport, station, river, valley, trail, guesthouse, museum, stupa, pagoda"

// getChunkExtractionPrompt builds the per-day extraction prompt. The prompt
// deliberately over-asks: LLMs under-extract when left to their own judgment.
func getChunkExtractionPrompt(chunkText, chunkName string) string {
	return fmt.Sprintf(`You are a travel expert. Extract EVERY SINGLE place, location, landmark, city, village, natural feature, restaurant, hotel, viewpoint, and attraction mentioned in this %s.

%s Details:
%s

IMPORTANT: Extract ALL places mentioned in this %s. Look for:
- Every city, town, village mentioned
- Every natural feature (mountains, rivers, lakes, valleys)
- Every landmark, temple, stupa, viewpoint, museum
- Every restaurant, hotel, guesthouse mentioned
- Every transportation hub (bus park, airport, station)
- Every specific location (viewpoints, trails, markets)

Return JSON array with name, type, caption, search_query for each place.
Types: %s.

Be thorough and extract every place mentioned in this %s.`, chunkName, chunkName, chunkText, chunkName, placeTypeList, chunkName)
}

// getSingleShotExtractionPrompt builds the whole-itinerary prompt used for
// short inputs. The text is truncated by the caller to stay within token
// limits.
func getSingleShotExtractionPrompt(itineraryText, tripURL string) string {
	var context string
	if tripURL != "" {
		context = fmt.Sprintf("\nTrip URL for context: %s\n", tripURL)
	}
	return fmt.Sprintf(`You are a travel expert. Extract EVERY SINGLE place, location, landmark, city, village, natural feature, restaurant, hotel, viewpoint, and attraction mentioned in this itinerary. Be extremely thorough and comprehensive.

Itinerary: %s
%s
IMPORTANT: Extract at least 8-12 different places. Look for:
- Every city, town, village mentioned
- Every natural feature (mountain ranges, rivers, lakes, valleys)
- Every landmark, temple, stupa, viewpoint, museum
- Every restaurant, hotel, guesthouse mentioned
- Every transportation hub (bus park, airport, station)
- Every specific location (viewpoints, trails, markets)

Return JSON array with name, type, caption, search_query for each place.
Types: %s.

Return at least 8-12 places in the JSON array.`, itineraryText, context, placeTypeList)
}

// renderDayChunk flattens a single day into the compact natural-language
// block the chunk prompt operates on.
func renderDayChunk(day types.Day, dayNumber int) string {
	parts := []string{fmt.Sprintf("Day %d:", dayNumber)}

	if day.Theme != "" {
		parts = append(parts, fmt.Sprintf("Theme: %s", day.Theme))
	}

	if len(day.Activities) > 0 {
		parts = append(parts, "Activities:")
		for _, activity := range day.Activities {
			line := fmt.Sprintf("- %s %s", activity.Time, activity.Activity)
			if activity.Location != "" {
				line += fmt.Sprintf(" at %s", activity.Location)
			}
			if activity.Description != "" {
				line += fmt.Sprintf(" - %s", activity.Description)
			}
			parts = append(parts, line)
		}
	}

	if len(day.Meals) > 0 {
		parts = append(parts, "Meals:")
		for _, meal := range day.Meals {
			line := fmt.Sprintf("- %s %s", meal.Time, meal.Type)
			if meal.Restaurant != "" {
				line += fmt.Sprintf(" at %s", meal.Restaurant)
			}
			parts = append(parts, line)
		}
	}

	if len(day.Transportation) > 0 {
		parts = append(parts, "Transportation:")
		for _, transport := range day.Transportation {
			parts = append(parts, fmt.Sprintf("- %s from %s to %s", transport.Method, transport.From, transport.To))
		}
	}

	return strings.Join(parts, "\n")
}
