package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	ParseRequestsTotal      metric.Int64Counter
	ParseDurationSeconds    metric.Float64Histogram
	GeocodeRequestsTotal    metric.Int64Counter
	GeocodeErrorsTotal      metric.Int64Counter
	LlmExtractionsTotal     metric.Int64Counter
	LlmExtractionErrsTotal  metric.Int64Counter
	MapLocationsPerResponse metric.Int64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("travya-backend")
		var err error
		m := &AppMetrics{}

		m.ParseRequestsTotal, err = meter.Int64Counter(
			"itinerary_parse_requests_total",
			metric.WithDescription("Total number of itinerary parse requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_parse_requests_total: %v", err)
		}

		m.ParseDurationSeconds, err = meter.Float64Histogram(
			"itinerary_parse_duration_seconds",
			metric.WithDescription("Duration of itinerary parse requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_parse_duration_seconds: %v", err)
		}

		m.GeocodeRequestsTotal, err = meter.Int64Counter(
			"geocode_requests_total",
			metric.WithDescription("Total number of forward geocoding requests issued"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create geocode_requests_total: %v", err)
		}

		m.GeocodeErrorsTotal, err = meter.Int64Counter(
			"geocode_errors_total",
			metric.WithDescription("Total number of geocoding requests that failed or returned no match"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create geocode_errors_total: %v", err)
		}

		m.LlmExtractionsTotal, err = meter.Int64Counter(
			"llm_extraction_requests_total",
			metric.WithDescription("Total number of LLM place-extraction calls issued"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create llm_extraction_requests_total: %v", err)
		}

		m.LlmExtractionErrsTotal, err = meter.Int64Counter(
			"llm_extraction_errors_total",
			metric.WithDescription("Total number of LLM place-extraction calls that failed"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create llm_extraction_errors_total: %v", err)
		}

		m.MapLocationsPerResponse, err = meter.Int64Histogram(
			"map_locations_per_response",
			metric.WithDescription("Number of resolved map locations returned per parse response"),
			metric.WithUnit("{location}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create map_locations_per_response: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance, initializing it
// against the current global MeterProvider on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
