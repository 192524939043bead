package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/adetunji-o/relaypay/internal/interfaces/rest"
)

// Timeout bounds every request to d. The cutoff is enforced twice: the
// request context is cancelled so downstream work stops, and the response is
// replaced with a 503 error envelope if the handler has not written by then.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(rest.ErrorResponse{
		Error: rest.ErrorDetail{
			Code:    "TIMEOUT",
			Message: "request deadline exceeded",
		},
	})

	return func(next http.Handler) http.Handler {
		withDeadline := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		return http.TimeoutHandler(withDeadline, d, string(body))
	}
}
