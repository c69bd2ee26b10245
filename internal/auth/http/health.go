package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/admindash/pkg/authsdk"
	"github.com/aussiebroadwan/admindash/pkg/httpx"
)

// APIHealthHandler godoc
//
//	@Summary		API health
//	@Description	Always succeeds while the process is serving requests.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.APIHealthResponse	"success, message, timestamp"
//	@Router			/api/health [get].
func APIHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.APIHealthResponse{
			Success:   true,
			Message:   "API server is running",
			Timestamp: time.Now().UTC(),
		})
	}
}
