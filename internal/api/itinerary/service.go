package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/travya/travya-backend/app/observability/metrics"
	"github.com/travya/travya-backend/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for itinerary parsing.
type Service interface {
	ParseItinerary(ctx context.Context, raw json.RawMessage, chatID, tripID string) *types.ParseItineraryResponse
	ExtractPlaces(ctx context.Context, raw json.RawMessage, tripURL string) *types.ExtractPlacesResponse
}

// ServiceImpl orchestrates the geo-extraction pipeline: day extraction, map
// assembly, summary generation, and optional trip persistence. Every stage
// degrades to a partial result; the response is always well-formed.
type ServiceImpl struct {
	logger    *slog.Logger
	extractor *PlaceExtractor
	assembler *MapAssembler
	repo      Repository // nil when persistence is not configured
}

func NewServiceImpl(extractor *PlaceExtractor, assembler *MapAssembler, repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		extractor: extractor,
		assembler: assembler,
		repo:      repo,
	}
}

// ParseItinerary is the pipeline entry point. It never returns an error:
// malformed input yields the fixed no-data response and anything unexpected
// is converted to an error-shaped response payload.
func (s *ServiceImpl) ParseItinerary(ctx context.Context, raw json.RawMessage, chatID, tripID string) (resp *types.ParseItineraryResponse) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ParseItinerary", trace.WithAttributes(
		attribute.String("chat.id", chatID),
		attribute.Int("itinerary.length", len(raw)),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "Panic while parsing itinerary", slog.Any("panic", rec))
			resp = errorResponse(chatID, fmt.Sprintf("%v", rec))
		}
	}()

	start := time.Now()
	l := s.logger.With(slog.String("chatID", chatID))
	l.InfoContext(ctx, "Starting itinerary parsing")

	itin := types.DecodeItinerary(raw)
	if len(itin.Days) == 0 {
		l.WarnContext(ctx, "No valid days array found in itinerary")
		return emptyResponse(chatID)
	}
	l.InfoContext(ctx, "Extracted days from itinerary", slog.Int("days", len(itin.Days)))

	mapData := s.assembler.Assemble(ctx, itin.Days)
	summaryText := GenerateSummary(itin.Days)

	response := &types.ParseItineraryResponse{
		ChatID:      chatID,
		ContentType: "text/markdown",
		Text:        summaryText,
		MapData:     mapData,
	}
	if response.MapData == nil {
		response.MapData = []types.MapLocation{}
	}

	s.saveTripMapData(ctx, tripID, response)

	metrics.Get().ParseRequestsTotal.Add(ctx, 1)
	metrics.Get().ParseDurationSeconds.Record(ctx, time.Since(start).Seconds())
	metrics.Get().MapLocationsPerResponse.Record(ctx, int64(len(response.MapData)))

	span.SetAttributes(attribute.Int("map_data.locations", len(response.MapData)))
	l.InfoContext(ctx, "Successfully parsed itinerary", slog.Int("locations", len(response.MapData)))
	return response
}

// saveTripMapData persists the response on the trip record when a trip id
// and a repository are present. A failed save never fails the parse.
func (s *ServiceImpl) saveTripMapData(ctx context.Context, tripID string, response *types.ParseItineraryResponse) {
	if tripID == "" || s.repo == nil {
		return
	}

	id, err := uuid.Parse(tripID)
	if err != nil {
		s.logger.WarnContext(ctx, "Invalid trip ID, skipping map data save",
			slog.String("tripID", tripID), slog.Any("error", err))
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal map data for storage", slog.Any("error", err))
		return
	}

	if err := s.repo.SaveTripMapData(ctx, id, payload); err != nil {
		s.logger.ErrorContext(ctx, "Error saving map data to database",
			slog.String("tripID", tripID), slog.Any("error", err))
		return
	}
	s.logger.InfoContext(ctx, "Saved map data to database", slog.String("tripID", tripID))
}

// ExtractPlaces exposes the place extractor directly, reporting which
// extraction path produced the list.
func (s *ServiceImpl) ExtractPlaces(ctx context.Context, raw json.RawMessage, tripURL string) *types.ExtractPlacesResponse {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ExtractPlaces")
	defer span.End()

	places, source := s.extractor.ExtractPlaces(ctx, raw, tripURL)
	if places == nil {
		places = []types.ExtractedPlace{}
	}
	span.SetAttributes(
		attribute.Int("places.count", len(places)),
		attribute.String("extraction.source", string(source)),
	)
	return &types.ExtractPlacesResponse{Places: places, Source: source}
}

func emptyResponse(chatID string) *types.ParseItineraryResponse {
	return &types.ParseItineraryResponse{
		ChatID:      chatID,
		ContentType: "text/markdown",
		Text:        "No itinerary data found to parse.",
		MapData:     []types.MapLocation{},
	}
}

func errorResponse(chatID, message string) *types.ParseItineraryResponse {
	return &types.ParseItineraryResponse{
		ChatID:      chatID,
		ContentType: "text/markdown",
		Text:        fmt.Sprintf("Error parsing itinerary: %s", message),
		MapData:     []types.MapLocation{},
	}
}
