package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"SmartLoan/pkg/config"
	xhttp "SmartLoan/pkg/http"
	applogger "SmartLoan/pkg/logger"
)

// LogShipping reports whether error logs are forwarded to Kafka. The
// collector is flushed before the decision sinks close the producer.
type LogShipping bool

// NamedCloser is an extra resource released at shutdown.
type NamedCloser struct {
	Name   string
	Closer io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	server   *xhttp.Server
	sink     io.Closer
	shipping LogShipping
	closers  []NamedCloser
	logger   *applogger.Logger
}

func New(cfg *config.Config, srv *xhttp.Server, sink io.Closer, shipping LogShipping, l *applogger.Logger, closers ...NamedCloser) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:      cfg,
		server:   srv,
		sink:     sink,
		shipping: shipping,
		closers:  closers,
		logger:   l,
	}
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the HTTP server and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.server.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("smartloan started",
		applogger.String("addr", a.server.Addr()),
		applogger.String("backend", a.cfg.Models.Backend),
	)

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops accepting requests, then releases the sinks and caches.
func (a *App) shutdown() error {
	err := a.server.Stop(context.Background())
	if err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.shipping {
		a.logger.RemoveCollector()
	}

	if a.sink != nil {
		if cerr := a.sink.Close(); cerr != nil {
			a.logger.Warn("decision sink close error", applogger.Error(cerr))
		}
	}

	for _, c := range a.closers {
		if cerr := c.Closer.Close(); cerr != nil {
			a.logger.Warn("close error", applogger.String("resource", c.Name), applogger.Error(cerr))
		}
	}

	a.logger.Info("shutdown complete")
	return err
}
