package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adetunji-o/relaypay/internal/infrastructure/postgres"
)

// RouteHandlers is the set of route functions the server mounts; the handlers
// package provides the implementation.
type RouteHandlers interface {
	AuthorizePayment(w http.ResponseWriter, r *http.Request)
	CapturePayment(w http.ResponseWriter, r *http.Request)
	VoidPayment(w http.ResponseWriter, r *http.Request)
	SyncPayment(w http.ResponseWriter, r *http.Request)
	CreateRefund(w http.ResponseWriter, r *http.Request)
	SyncRefund(w http.ResponseWriter, r *http.Request)
	PaymentMetrics(w http.ResponseWriter, r *http.Request)
	RefundMetrics(w http.ResponseWriter, r *http.Request)
	APIEventMetrics(w http.ResponseWriter, r *http.Request)
}

// NewRouter assembles the route table. Middleware is applied by the caller so
// tests can mount a bare router.
func NewRouter(h RouteHandlers, registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/payments", h.AuthorizePayment)
	mux.HandleFunc("GET /api/v1/payments/{id}", h.SyncPayment)
	mux.HandleFunc("POST /api/v1/payments/{id}/capture", h.CapturePayment)
	mux.HandleFunc("POST /api/v1/payments/{id}/void", h.VoidPayment)

	mux.HandleFunc("POST /api/v1/refunds", h.CreateRefund)
	mux.HandleFunc("GET /api/v1/refunds/{id}", h.SyncRefund)

	mux.HandleFunc("POST /api/v1/analytics/metrics/payments", h.PaymentMetrics)
	mux.HandleFunc("POST /api/v1/analytics/metrics/refunds", h.RefundMetrics)
	mux.HandleFunc("POST /api/v1/analytics/metrics/api_events", h.APIEventMetrics)

	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type apiEventWriter struct {
	http.ResponseWriter
	status int
}

func (w *apiEventWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RecordAPIEvents persists one api_events row per request, feeding the
// api_count and api_latency_avg metrics. Writes happen off the request path;
// a lost event shifts an average, it never fails a payment.
func RecordAPIEvents(store *postgres.AnalyticsStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &apiEventWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			merchantID := r.Header.Get("X-Merchant-Id")
			if merchantID == "" {
				return
			}

			event := &postgres.APIEvent{
				ID:         uuid.New().String(),
				MerchantID: merchantID,
				Status:     strconv.Itoa(rec.status),
				LatencyMs:  time.Since(start).Milliseconds(),
				CreatedAt:  start.UTC(),
			}

			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = store.InsertAPIEvent(ctx, event)
			}()
		})
	}
}
