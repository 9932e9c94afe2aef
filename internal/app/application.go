// Package app composes the shell layer into a running application: devnet
// chain, deployer service, HTTP API, metrics, and lifecycle management.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
	"github.com/R3E-Network/shell_layer/internal/app/host/memory"
	"github.com/R3E-Network/shell_layer/internal/app/httpapi"
	"github.com/R3E-Network/shell_layer/internal/app/metrics"
	"github.com/R3E-Network/shell_layer/internal/app/services/deployer"
	"github.com/R3E-Network/shell_layer/internal/config"
	"github.com/R3E-Network/shell_layer/pkg/logger"
)

// Application wires the devnet chain, the deployer service and the HTTP
// server, and manages their lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	chain      *memory.Chain
	deployer   *deployer.Service
	httpServer *http.Server
}

// NewApplication constructs an application from the config at path.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	chain := memory.New()
	for _, acct := range cfg.Genesis.Accounts {
		addr, err := shell.ParseAddress(acct.Address)
		if err != nil {
			return nil, fmt.Errorf("genesis account: %w", err)
		}
		chain.Credit(addr, acct.Balance)
		log.Debugf("funded genesis account %s with %d", addr, acct.Balance)
	}

	dep := deployer.New(chain, log)
	handler := metrics.InstrumentHandler(httpapi.NewHandler(dep, chain, log))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		chain:      chain,
		deployer:   dep,
		httpServer: srv,
	}, nil
}

// Chain exposes the devnet chain, mainly for local tooling and tests.
func (a *Application) Chain() *memory.Chain {
	return a.chain
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server stops.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.log.Infof("shellnode listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	a.log.Infof("shellnode stopped")
	return nil
}
