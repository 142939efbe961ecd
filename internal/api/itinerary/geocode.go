package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/travya/travya-backend/app/observability/metrics"
)

// GeoEnricherConfig carries the external-service settings for geocoding and
// elevation lookups. Region is the disambiguation suffix appended to every
// geocoding query ("Pokhara" -> "Pokhara, Nepal").
type GeoEnricherConfig struct {
	NominatimURL      string
	ElevationURL      string
	Region            string
	RequestsPerSecond float64
	MaxConcurrent     int64
	RequestTimeout    time.Duration
	CacheTTL          time.Duration
}

// GeoEnricher resolves place names to coordinates and elevations. Lookups
// are rate limited client-side (public Nominatim allows 1 req/sec), bounded
// in concurrency, and cached in-process.
type GeoEnricher struct {
	client       *http.Client
	nominatimURL string
	elevationURL string
	region       string
	limiter      *rate.Limiter
	sem          *semaphore.Weighted
	cache        *cache.Cache
	logger       *slog.Logger
}

func NewGeoEnricher(cfg GeoEnricherConfig, logger *slog.Logger) *GeoEnricher {
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = "https://nominatim.openstreetmap.org/search"
	}
	if cfg.ElevationURL == "" {
		cfg.ElevationURL = "https://api.open-meteo.com/v1/elevation"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	return &GeoEnricher{
		client:       &http.Client{Timeout: cfg.RequestTimeout},
		nominatimURL: cfg.NominatimURL,
		elevationURL: cfg.ElevationURL,
		region:       cfg.Region,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		sem:          semaphore.NewWeighted(cfg.MaxConcurrent),
		cache:        cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		logger:       logger,
	}
}

type coordinates struct {
	Lat float64
	Lng float64
}

// Geocode resolves a cleaned location string to coordinates. Any failure
// (network, non-200, empty result) reports ok=false; nothing propagates.
func (g *GeoEnricher) Geocode(ctx context.Context, location string) (float64, float64, bool) {
	if location == "" {
		return 0, 0, false
	}

	cacheKey := "geocode:" + strings.ToLower(location)
	if cached, found := g.cache.Get(cacheKey); found {
		if coords, ok := cached.(coordinates); ok {
			return coords.Lat, coords.Lng, true
		}
		// Negative cache entry
		return 0, 0, false
	}

	searchQuery := location
	if g.region != "" {
		searchQuery = fmt.Sprintf("%s, %s", location, g.region)
	}

	metrics.Get().GeocodeRequestsTotal.Add(ctx, 1)
	lat, lng, err := g.fetchCoordinates(ctx, searchQuery)
	if err != nil {
		metrics.Get().GeocodeErrorsTotal.Add(ctx, 1)
		g.logger.WarnContext(ctx, "Geocoding failed",
			slog.String("location", location), slog.Any("error", err))
		g.cache.Set(cacheKey, nil, cache.DefaultExpiration)
		return 0, 0, false
	}

	g.cache.Set(cacheKey, coordinates{Lat: lat, Lng: lng}, cache.DefaultExpiration)
	return lat, lng, true
}

func (g *GeoEnricher) fetchCoordinates(ctx context.Context, searchQuery string) (float64, float64, error) {
	if err := g.acquire(ctx); err != nil {
		return 0, 0, err
	}
	defer g.sem.Release(1)

	params := url.Values{}
	params.Set("q", searchQuery)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.nominatimURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", "travya-backend/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	// Nominatim returns lat/lon as strings
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no coordinates found for %q", searchQuery)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}
	return lat, lng, nil
}

// Elevation returns a formatted elevation string ("840m") for the given
// coordinates, or "" when the lookup fails.
func (g *GeoEnricher) Elevation(ctx context.Context, lat, lng float64) string {
	cacheKey := fmt.Sprintf("elevation:%.6f:%.6f", lat, lng)
	if cached, found := g.cache.Get(cacheKey); found {
		if elevation, ok := cached.(string); ok {
			return elevation
		}
		return ""
	}

	elevation, err := g.fetchElevation(ctx, lat, lng)
	if err != nil {
		g.logger.WarnContext(ctx, "Elevation lookup failed",
			slog.Float64("lat", lat), slog.Float64("lng", lng), slog.Any("error", err))
		g.cache.Set(cacheKey, nil, cache.DefaultExpiration)
		return ""
	}

	g.cache.Set(cacheKey, elevation, cache.DefaultExpiration)
	return elevation
}

func (g *GeoEnricher) fetchElevation(ctx context.Context, lat, lng float64) (string, error) {
	if err := g.acquire(ctx); err != nil {
		return "", err
	}
	defer g.sem.Release(1)

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.elevationURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build elevation request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("elevation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("elevation returned status %d", resp.StatusCode)
	}

	var result struct {
		Elevation []float64 `json:"elevation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode elevation response: %w", err)
	}
	if len(result.Elevation) == 0 {
		return "", fmt.Errorf("no elevation data returned")
	}

	return fmt.Sprintf("%.0fm", result.Elevation[0]), nil
}

// acquire combines the rate limiter and the concurrency bound ahead of an
// outbound call.
func (g *GeoEnricher) acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.sem.Release(1)
		return err
	}
	return nil
}

// genericLocationTerms are stripped from location strings before geocoding:
// "Local restaurant near Lakeside" geocodes poorly, "Lakeside" does not.
var genericLocationTerms = []string{
	"bus park", "bus station", "airport", "hotel", "restaurant",
	"guesthouse", "viewpoint", "local restaurant", "guesthouse restaurant",
	"tourist bus", "taxi", "trek", "breakfast", "lunch", "dinner",
	"check-in", "rest and relax", "explore", "sunset photography",
	"sunrise viewing", "lakeside stroll", "takeoff point", "dock",
	"area", "near", "around", "vicinity", "region", "zone",
}

var parenthesesRe = regexp.MustCompile(`\(([^)]+)\)`)

func containsGenericTerm(s string) bool {
	lower := strings.ToLower(s)
	for _, term := range genericLocationTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func isGenericWord(word string) bool {
	for _, term := range genericLocationTerms {
		if word == term {
			return true
		}
	}
	return false
}

func filterGenericWords(s string) string {
	var specific []string
	for _, word := range strings.Fields(s) {
		trimmed := strings.Trim(word, ".,()")
		if len(trimmed) > 2 && !isGenericWord(strings.ToLower(trimmed)) {
			specific = append(specific, trimmed)
		}
	}
	return strings.Join(specific, " ")
}

// CleanLocationString extracts the most geocodable place name from a noisy
// itinerary location string. Priority: parenthetical content if specific,
// then the text before parentheses, then the full string with generic words
// removed, then the original untouched. The heuristic is lossy; a cleaned
// name can still be wrong, which surfaces as a geocoding miss.
func CleanLocationString(location string) string {
	if location == "" {
		return ""
	}

	if match := parenthesesRe.FindStringSubmatch(location); match != nil {
		placeName := strings.TrimSpace(match[1])
		if placeName != "" && !containsGenericTerm(placeName) {
			return placeName
		}
	}

	beforeParens := strings.TrimSpace(strings.SplitN(location, "(", 2)[0])
	if beforeParens != "" && beforeParens != strings.TrimSpace(location) {
		if cleaned := filterGenericWords(beforeParens); cleaned != "" {
			return cleaned
		}
	}

	if cleaned := filterGenericWords(location); cleaned != "" {
		return cleaned
	}

	return strings.TrimSpace(location)
}
