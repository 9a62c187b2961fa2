package service

import (
	"context"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// HealthzServer answers liveness probes while a suite is running.
type HealthzServer struct {
	server *http.Server
}

// Handler returns the healthz routes wrapped in a permissive CORS policy.
func (h *HealthzServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

// Serve accepts connections on ln until Shutdown is called.
func (h *HealthzServer) Serve(ln net.Listener) error {
	return h.server.Serve(ln)
}

func (h *HealthzServer) setup() {
	h.server = &http.Server{Handler: h.Handler()}
}

func (h *HealthzServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}
