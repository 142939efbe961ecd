package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/travya/travya-backend/internal/types"
)

// GeoResolver is the slice of GeoEnricher the assembler needs.
type GeoResolver interface {
	Geocode(ctx context.Context, location string) (float64, float64, bool)
	Elevation(ctx context.Context, lat, lng float64) string
}

// MapAssembler merges per-day itinerary records into a single ordered,
// deduplicated map-data array. Days are processed in fixed-size chunks;
// chunk outputs are independent, so chunks run concurrently and merge by
// concatenation.
type MapAssembler struct {
	resolver     GeoResolver
	logger       *slog.Logger
	maxChunkDays int
}

func NewMapAssembler(resolver GeoResolver, maxChunkDays int, logger *slog.Logger) *MapAssembler {
	if maxChunkDays <= 0 {
		maxChunkDays = 2
	}
	return &MapAssembler{
		resolver:     resolver,
		logger:       logger,
		maxChunkDays: maxChunkDays,
	}
}

// Assemble geocodes every location-bearing record in the given days and
// returns the deduplicated, day-ordered map data. Locations that fail to
// geocode are dropped silently; the result is whatever resolved.
func (a *MapAssembler) Assemble(ctx context.Context, days []types.Day) []types.MapLocation {
	if len(days) == 0 {
		return nil
	}

	chunks := a.chunkDays(days)
	results := make([][]types.MapLocation, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			results[i] = a.processChunk(gctx, chunk)
			return nil
		})
	}
	// Workers never return errors; failures degrade to dropped locations.
	_ = g.Wait()

	var mapData []types.MapLocation
	for _, chunkData := range results {
		mapData = append(mapData, chunkData...)
	}
	return deduplicateAndSort(mapData)
}

func (a *MapAssembler) chunkDays(days []types.Day) [][]types.Day {
	var chunks [][]types.Day
	for i := 0; i < len(days); i += a.maxChunkDays {
		end := i + a.maxChunkDays
		if end > len(days) {
			end = len(days)
		}
		chunks = append(chunks, days[i:end])
	}
	return chunks
}

func (a *MapAssembler) processChunk(ctx context.Context, days []types.Day) []types.MapLocation {
	var mapData []types.MapLocation

	for _, day := range days {
		for _, activity := range day.Activities {
			if location, ok := a.resolveLocation(ctx, activity.Location, day.Day); ok {
				location.Description = activity.Activity
				location.Time = activity.Time
				mapData = append(mapData, location)
			}
		}
		for _, transport := range day.Transportation {
			raw := transport.Location
			if raw == "" {
				raw = transport.From
			}
			if raw == "" {
				raw = transport.To
			}
			if location, ok := a.resolveLocation(ctx, raw, day.Day); ok {
				location.Description = fmt.Sprintf("Transportation: %s", transport.Method)
				location.Time = transport.Time
				mapData = append(mapData, location)
			}
		}
		for _, meal := range day.Meals {
			if meal.Hotel == "" {
				continue
			}
			if location, ok := a.resolveLocation(ctx, meal.Hotel, day.Day); ok {
				location.Description = "Accommodation"
				mapData = append(mapData, location)
			}
		}
	}

	return mapData
}

// resolveLocation cleans, geocodes, and elevation-enriches one raw location
// string. ok=false means the record contributes nothing to the map.
func (a *MapAssembler) resolveLocation(ctx context.Context, rawLocation string, day int) (types.MapLocation, bool) {
	if rawLocation == "" {
		return types.MapLocation{}, false
	}

	cleaned := CleanLocationString(rawLocation)
	lat, lng, ok := a.resolver.Geocode(ctx, cleaned)
	if !ok {
		a.logger.DebugContext(ctx, "Dropping unresolvable location",
			slog.String("location", rawLocation), slog.Int("day", day))
		return types.MapLocation{}, false
	}

	return types.MapLocation{
		Day:       day,
		Name:      cleaned,
		Lat:       lat,
		Lng:       lng,
		Elevation: a.resolver.Elevation(ctx, lat, lng),
	}, true
}

// deduplicateAndSort removes exact (day, name, lat, lng) duplicates and
// sorts by day, preserving within-day order.
func deduplicateAndSort(mapData []types.MapLocation) []types.MapLocation {
	type dedupeKey struct {
		Day  int
		Name string
		Lat  float64
		Lng  float64
	}
	seen := make(map[dedupeKey]bool)
	unique := make([]types.MapLocation, 0, len(mapData))

	for _, item := range mapData {
		key := dedupeKey{Day: item.Day, Name: item.Name, Lat: item.Lat, Lng: item.Lng}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, item)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Day < unique[j].Day
	})
	return unique
}

// GenerateSummary builds the markdown day-by-day summary. It is independent
// of geocoding: the text renders even when every location failed to resolve.
func GenerateSummary(days []types.Day) string {
	if len(days) == 0 {
		return "No itinerary data available."
	}

	var parts []string
	for _, day := range days {
		parts = append(parts, fmt.Sprintf("### Day %d", day.Day))

		for _, activity := range day.Activities {
			if activity.Activity == "" {
				continue
			}
			line := fmt.Sprintf("- %s", activity.Activity)
			if activity.Time != "" {
				line = fmt.Sprintf("- %s %s", activity.Time, activity.Activity)
			}
			if activity.Location != "" {
				line += fmt.Sprintf(" (%s)", activity.Location)
			}
			parts = append(parts, line)
		}

		for _, meal := range day.Meals {
			if meal.Hotel != "" {
				parts = append(parts, fmt.Sprintf("- **Stay:** %s", meal.Hotel))
				break
			}
		}

		parts = append(parts, "")
	}

	return strings.Join(parts, "\n")
}
