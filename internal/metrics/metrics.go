// Package metrics exposes the prometheus collectors of the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Domain
	RecipeWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipe_writes_total",
			Help: "Recipes created, updated or deleted",
		},
		[]string{"operation"},
	)

	RelationChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_relation_changes_total",
			Help: "Favorite, shopping cart and subscription toggles",
		},
		[]string{"relation", "action"},
	)

	ShoppingListDownloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_shopping_list_downloads_total",
			Help: "Shopping lists rendered for download",
		},
	)

	ShoppingListLines = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "foodgram_shopping_list_lines",
			Help:    "Number of aggregated lines per downloaded shopping list",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_rate_limit_rejections_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)
)

// RecordHTTPRequest records one served request. route is the matched pattern, not the raw path.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordRecipeWrite(operation string) {
	RecipeWrites.WithLabelValues(operation).Inc()
}

// RecordRelationChange records an add or remove on favorite, shopping_cart or subscription
func RecordRelationChange(relation, action string) {
	RelationChanges.WithLabelValues(relation, action).Inc()
}

func RecordShoppingListDownload(lines int) {
	ShoppingListDownloads.Inc()
	ShoppingListLines.Observe(float64(lines))
}

func RecordRateLimitRejection(limiter string) {
	RateLimitRejections.WithLabelValues(limiter).Inc()
}
