package types

import (
	"encoding/json"
)

// PlaceType classifies an extracted place for prioritization and display.
type PlaceType string

const (
	PlaceTypeCity        PlaceType = "city"
	PlaceTypeLandmark    PlaceType = "landmark"
	PlaceTypeNaturalSpot PlaceType = "natural_spot"
	PlaceTypeMountain    PlaceType = "mountain"
	PlaceTypeLake        PlaceType = "lake"
	PlaceTypeTemple      PlaceType = "temple"
	PlaceTypeVillage     PlaceType = "village"
	PlaceTypeViewpoint   PlaceType = "viewpoint"
	PlaceTypeMarket      PlaceType = "market"
	PlaceTypeRestaurant  PlaceType = "restaurant"
	PlaceTypeHotel       PlaceType = "hotel"
	PlaceTypeAirport     PlaceType = "airport"
	PlaceTypeStation     PlaceType = "station"
	PlaceTypeRiver       PlaceType = "river"
	PlaceTypeValley      PlaceType = "valley"
	PlaceTypeTrail       PlaceType = "trail"
	PlaceTypeGuesthouse  PlaceType = "guesthouse"
	PlaceTypeMuseum      PlaceType = "museum"
	PlaceTypeStupa       PlaceType = "stupa"
	PlaceTypePagoda      PlaceType = "pagoda"
)

// ValidPlaceTypes lists every place type the extraction prompt allows.
var ValidPlaceTypes = []PlaceType{
	PlaceTypeCity, PlaceTypeLandmark, PlaceTypeNaturalSpot, PlaceTypeMountain,
	PlaceTypeLake, PlaceTypeTemple, PlaceTypeVillage, PlaceTypeViewpoint,
	PlaceTypeMarket, PlaceTypeRestaurant, PlaceTypeHotel, PlaceTypeAirport,
	PlaceTypeStation, PlaceTypeRiver, PlaceTypeValley, PlaceTypeTrail,
	PlaceTypeGuesthouse, PlaceTypeMuseum, PlaceTypeStupa, PlaceTypePagoda,
}

// IsValidPlaceType reports whether t is one of the known place types.
func IsValidPlaceType(t PlaceType) bool {
	for _, v := range ValidPlaceTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ExtractionSource records which extraction path produced a place list, so
// callers can tell a fallback result from a primary one.
type ExtractionSource string

const (
	SourceDirect     ExtractionSource = "direct"
	SourceLLMChunked ExtractionSource = "llm_chunked"
	SourceLLMSingle  ExtractionSource = "llm_single"
	SourceNone       ExtractionSource = "none"
)

// ExtractedPlace is a named place pulled out of an itinerary, prior to
// geocoding. Names are not unique until deduplication runs.
type ExtractedPlace struct {
	Name        string    `json:"name"`
	Type        PlaceType `json:"type"`
	Caption     string    `json:"caption"`
	SearchQuery string    `json:"search_query"`
}

// MapLocation is a single geo-resolved point on the trip map. The
// (Day, Name, Lat, Lng) tuple is unique within one parse result.
type MapLocation struct {
	Day         int     `json:"day"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description"`
	Time        string  `json:"time,omitempty"`
	Elevation   string  `json:"elevation,omitempty"`
}

// Itinerary models the planner-produced itinerary document. The input is
// loosely schema'd LLM output, so every field is optional and unknown keys
// are ignored.
type Itinerary struct {
	Overview Overview `json:"overview"`
	Days     []Day    `json:"days"`
}

type Overview struct {
	Destination string `json:"destination"`
	Duration    string `json:"duration"`
	Summary     string `json:"summary"`
}

type Day struct {
	Day            int              `json:"day"`
	Theme          string           `json:"theme"`
	Activities     []Activity       `json:"activities"`
	Meals          []Meal           `json:"meals"`
	Transportation []Transportation `json:"transportation"`
}

type Activity struct {
	Time        string `json:"time"`
	Activity    string `json:"activity"`
	Location    string `json:"location"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type Meal struct {
	Time       string `json:"time"`
	Type       string `json:"type"`
	Restaurant string `json:"restaurant"`
	Hotel      string `json:"hotel"`
}

type Transportation struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Location string `json:"location"`
	Method   string `json:"method"`
	Time     string `json:"time"`
	Duration string `json:"duration"`
}

// ParseItineraryResponse is the payload returned to the API layer and
// frontend for a parse request. Errors are embedded in Text, never raised.
type ParseItineraryResponse struct {
	ChatID      string        `json:"chatId"`
	ContentType string        `json:"content_type"`
	Text        string        `json:"text"`
	MapData     []MapLocation `json:"map_data"`
}

// ExtractPlacesResponse carries the prioritized place list plus which
// extraction path produced it.
type ExtractPlacesResponse struct {
	Places []ExtractedPlace `json:"places"`
	Source ExtractionSource `json:"source"`
}

// DecodeItinerary unwraps the nested `itinerary.itinerary.{overview,days}`
// envelope the planner produces. It tolerates a single level of nesting as
// well as a bare itinerary object. Individual days that fail to decode are
// skipped rather than failing the document.
func DecodeItinerary(raw []byte) *Itinerary {
	var envelope struct {
		Itinerary json.RawMessage `json:"itinerary"`
	}
	inner := json.RawMessage(raw)
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Itinerary) > 0 {
		inner = envelope.Itinerary
		// The planner double-wraps: {"itinerary": {"itinerary": {...}}}
		var nested struct {
			Itinerary json.RawMessage `json:"itinerary"`
		}
		if err := json.Unmarshal(inner, &nested); err == nil && len(nested.Itinerary) > 0 {
			inner = nested.Itinerary
		}
	}

	var loose map[string]json.RawMessage
	if err := json.Unmarshal(inner, &loose); err != nil {
		return &Itinerary{}
	}

	itinerary := &Itinerary{}
	if rawOverview, ok := loose["overview"]; ok {
		// A mistyped overview loses only the destination hint.
		_ = json.Unmarshal(rawOverview, &itinerary.Overview)
	}

	var rawDays []json.RawMessage
	if raw, ok := loose["days"]; ok {
		_ = json.Unmarshal(raw, &rawDays)
	}
	for _, rawDay := range rawDays {
		var day Day
		if err := json.Unmarshal(rawDay, &day); err != nil {
			continue
		}
		itinerary.Days = append(itinerary.Days, day)
	}
	return itinerary
}
