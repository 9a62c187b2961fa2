// Package service runs the optional healthz and metrics HTTP servers that
// let a long suite run be probed and scraped.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/metrics"
)

type server interface {
	setup()
	Serve(ln net.Listener) error
	Shutdown(ctx context.Context) error
}

// Service groups the HTTP servers. An empty address disables a server.
type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	healthzAddr string
	metricsAddr string
	addrs       map[string]net.Addr
	log         log.Logger
	wg          sync.WaitGroup
}

func New(logger log.Logger, healthzAddr, metricsAddr string) *Service {
	if logger == nil {
		logger = log.Root()
	}
	return &Service{
		Healthz:     &HealthzServer{},
		Metrics:     &MetricsServer{},
		healthzAddr: healthzAddr,
		metricsAddr: metricsAddr,
		addrs:       make(map[string]net.Addr),
		log:         logger,
	}
}

// Start binds the enabled servers and serves them in the background.
func (s *Service) Start() error {
	if s.healthzAddr != "" {
		if err := s.serve("healthz", s.healthzAddr, s.Healthz); err != nil {
			return err
		}
	}
	if s.metricsAddr != "" {
		if err := s.serve("metrics", s.metricsAddr, s.Metrics); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) serve(name, addr string, srv server) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		metrics.RecordErrorDetails(name+"_server", err)
		return fmt.Errorf("failed to listen for %s server on %s: %w", name, addr, err)
	}
	srv.setup()
	s.addrs[name] = ln.Addr()
	s.log.Info("Starting "+name+" server", "addr", ln.Addr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Error serving "+name, "err", err)
			metrics.RecordErrorDetails(name+"_server", err)
		}
	}()
	return nil
}

// Addr returns the bound address of the named server ("healthz" or
// "metrics"), or nil when it is not running.
func (s *Service) Addr(name string) net.Addr {
	return s.addrs[name]
}

// Shutdown stops the servers and waits for them to return.
func (s *Service) Shutdown(ctx context.Context) {
	if err := s.Healthz.Shutdown(ctx); err != nil {
		s.log.Warn("Failed to stop healthz server", "err", err)
	}
	if err := s.Metrics.Shutdown(ctx); err != nil {
		s.log.Warn("Failed to stop metrics server", "err", err)
	}
	s.wg.Wait()
	s.log.Debug("HTTP servers stopped")
}
