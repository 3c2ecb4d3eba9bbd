package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/domain/types"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
)

// handleHealth handles health check requests
func handleHealth(sessionUC interfaces.SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := &model.HealthStatus{
			Status:  "healthy",
			Service: types.ServiceName,
			Version: types.Version,
			Running: sessionUC.Running(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logging.From(r.Context()).Error("Failed to encode health response", "error", err)
		}
	}
}
