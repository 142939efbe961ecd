package itinerary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/travya/travya-backend/internal/types"
)

// cleanJSONArrayResponse strips markdown fences and surrounding prose from an
// LLM response expected to contain a JSON array.
func cleanJSONArrayResponse(response string) string {
	response = strings.TrimSpace(response)

	// Remove markdown code block markers
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}

	response = strings.TrimSpace(response)

	// Extract the array portion if the model wrapped it in explanatory text
	firstBracket := strings.Index(response, "[")
	if firstBracket == -1 {
		return response
	}
	lastBracket := strings.LastIndex(response, "]")
	if lastBracket == -1 || lastBracket <= firstBracket {
		return response
	}
	return strings.TrimSpace(response[firstBracket : lastBracket+1])
}

// parsePlacesResponse decodes the JSON array the extraction prompt requests.
// Missing fields get defaults: type falls back to landmark, search_query to
// the place name.
func parsePlacesResponse(response string) ([]types.ExtractedPlace, error) {
	cleaned := cleanJSONArrayResponse(response)

	var raw []struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Caption     string `json:"caption"`
		SearchQuery string `json:"search_query"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse places JSON: %w", err)
	}

	places := make([]types.ExtractedPlace, 0, len(raw))
	for _, item := range raw {
		if item.Name == "" {
			continue
		}
		placeType := types.PlaceType(item.Type)
		if !types.IsValidPlaceType(placeType) {
			placeType = types.PlaceTypeLandmark
		}
		searchQuery := item.SearchQuery
		if searchQuery == "" {
			searchQuery = item.Name
		}
		places = append(places, types.ExtractedPlace{
			Name:        item.Name,
			Type:        placeType,
			Caption:     item.Caption,
			SearchQuery: searchQuery,
		})
	}
	return places, nil
}
