package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jortega/partidasync/internal/middleware"
	"github.com/jortega/partidasync/internal/storage"
	"github.com/jortega/partidasync/internal/ws"
)

// RouterConfig holds the HTTP surface's collaborators
type RouterConfig struct {
	Logger  *slog.Logger
	Hub     *ws.Hub
	Router  *ws.Router
	Gateway storage.Gateway
}

// NewRouter builds the HTTP router: the WebSocket endpoint and a health
// check. Everything else rides over the socket.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler))
	r.Use(middleware.Logging(cfg.Logger))

	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(w, req, cfg.Hub, cfg.Router, cfg.Logger)
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := http.StatusOK
		body := map[string]any{
			"status":      "ok",
			"connections": cfg.Hub.Count(),
		}
		if err := cfg.Gateway.Ping(req.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["storage"] = err.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}).Methods(http.MethodGet)

	return r
}
