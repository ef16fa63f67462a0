// Package server exposes the button store over HTTP, replays buttons on the
// transmitter and streams store changes over a websocket.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/derktes/rfsniffer/pulse"
	"github.com/derktes/rfsniffer/store"
)

const DefaultAddr = ":8080"

// TransmitFunc sends a train on the transmitter pin.
type TransmitFunc func(ctx context.Context, train pulse.Train) error

type Config struct {
	Addr  string
	Store *store.Store
	// Transmit is nil when the host has no transmitter; play requests are
	// then refused.
	Transmit TransmitFunc
	Logger   *log.Logger
}

type Server struct {
	addr     string
	store    *store.Store
	transmit TransmitFunc
	logger   *log.Logger
	notifier *notifier
	// one slot: the transmitter plays one button at a time
	hwLock chan struct{}
}

func New(cfg Config) *Server {
	s := &Server{
		addr:     cfg.Addr,
		store:    cfg.Store,
		transmit: cfg.Transmit,
		logger:   cfg.Logger,
		notifier: newNotifier(),
		hwLock:   make(chan struct{}, 1),
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Handler maps the URL patterns:
//
//	/buttons
//	/buttons/stream
//	/buttons/{name}
//	/buttons/{name}/play
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/buttons", s.listHandler)
	mux.HandleFunc("/buttons/stream", s.streamHandler)
	mux.HandleFunc("/buttons/", s.buttonHandler)
	return mux
}

// Serve listens on the configured address until ctx is done, then shuts the
// server down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv.RegisterOnShutdown(func() {
		s.logger.Info("shutting down server")
	})
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("server started", "addr", s.addr, "store", s.store.Path())

	select {
	case err := <-errc:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
