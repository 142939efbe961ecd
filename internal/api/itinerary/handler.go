package itinerary

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/travya/travya-backend/internal/api"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type parseItineraryRequest struct {
	ItineraryData json.RawMessage `json:"itinerary_data"`
	ChatID        string          `json:"chat_id"`
	TripID        string          `json:"trip_id,omitempty"`
}

type extractPlacesRequest struct {
	ItineraryData json.RawMessage `json:"itinerary_data"`
	TripURL       string          `json:"trip_url,omitempty"`
}

// ParseItinerary converts a raw itinerary into geo-enriched map data.
// Pipeline failures are embedded in the response payload; this endpoint
// answers 200 unless the request itself is invalid.
func (h *Handler) ParseItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ParseItinerary").Start(r.Context(), "ParseItinerary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/itineraries/parse"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ParseItinerary"))
	l.DebugContext(ctx, "Parse itinerary handler invoked")

	var req parseItineraryRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.ItineraryData) == 0 {
		l.ErrorContext(ctx, "Itinerary data is required")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Itinerary data is required")
		return
	}
	if req.ChatID == "" {
		l.ErrorContext(ctx, "Chat ID is required")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Chat ID is required")
		return
	}

	l = l.With(slog.String("chatID", req.ChatID))
	response := h.service.ParseItinerary(ctx, req.ItineraryData, req.ChatID, req.TripID)

	l.InfoContext(ctx, "Itinerary parsed", slog.Int("locations", len(response.MapData)))
	api.WriteJSONResponse(w, r, http.StatusOK, response)
}

// ExtractPlaces returns the prioritized place list for an itinerary along
// with the extraction path that produced it.
func (h *Handler) ExtractPlaces(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ExtractPlaces").Start(r.Context(), "ExtractPlaces", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/itineraries/places"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ExtractPlaces"))
	l.DebugContext(ctx, "Extract places handler invoked")

	var req extractPlacesRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.ItineraryData) == 0 {
		l.ErrorContext(ctx, "Itinerary data is required")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Itinerary data is required")
		return
	}

	response := h.service.ExtractPlaces(ctx, req.ItineraryData, req.TripURL)

	l.InfoContext(ctx, "Places extracted",
		slog.Int("places", len(response.Places)), slog.String("source", string(response.Source)))
	api.WriteJSONResponse(w, r, http.StatusOK, response)
}

// Health reports liveness for the parser subsystem.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "itinerary_parser",
	})
}
