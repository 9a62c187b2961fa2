package service

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the default Prometheus registry on /metrics.
type MetricsServer struct {
	server *http.Server
}

func (m *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve accepts connections on ln until Shutdown is called.
func (m *MetricsServer) Serve(ln net.Listener) error {
	return m.server.Serve(ln)
}

func (m *MetricsServer) setup() {
	m.server = &http.Server{Handler: m.Handler()}
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
