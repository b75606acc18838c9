package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the checker as JSON; unhealthy maps to 503.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if response.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK) // degraded still serves
		}

		json.NewEncoder(w).Encode(response)
	}
}
