package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dtroode/beatstream-server/internal/api/http/response"
)

// Recover turns a handler panic into a 500 response.
func Recover(writer *response.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				writer.Internal(w, r, fmt.Errorf("panic: %v", rec), debug.Stack())
			}()
			next.ServeHTTP(w, r)
		})
	}
}
