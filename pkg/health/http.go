package health

import (
	"net/http"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmehra2102/watchstore/pkg/httpx"
)

type liveness struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Liveness answers as long as the process serves HTTP. The body reports the
// last checked dependency status without failing the request.
func (s *Server) Liveness(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.Status(r.Context(), "")
		if err != nil {
			st = healthpb.HealthCheckResponse_UNKNOWN
		}
		httpx.JSON(w, http.StatusOK, "Watch Store API is running", liveness{
			Status:    st.String(),
			Timestamp: now().UTC(),
		})
	}
}
