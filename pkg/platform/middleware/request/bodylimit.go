package request

import "net/http"

// BodyLimit caps request bodies at maxBytes. Reads past the cap fail, so the
// JSON or multipart decoder behind it rejects the body with 400. Apply before
// any parsing.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
