// Package deployer creates shell instances against the host environment,
// either at an environment-assigned address or at one derived in advance
// from (controller, salt, image hash).
package deployer

import (
	"context"
	"errors"
	"fmt"

	"github.com/R3E-Network/shell_layer/internal/app/derive"
	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
	"github.com/R3E-Network/shell_layer/internal/app/host"
	"github.com/R3E-Network/shell_layer/pkg/logger"
)

// Service deploys shells. The fixed executable image is identical for every
// instance; only the controller binding and the address differ.
type Service struct {
	env host.Environment
	log *logger.Logger
}

// New creates a deployer backed by the given environment.
func New(env host.Environment, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{env: env, log: log}
}

// Create installs a fresh shell at an environment-assigned address, bound
// permanently to controller.
func (s *Service) Create(ctx context.Context, controller shell.Address) (shell.Address, error) {
	addr, err := s.env.Instantiate(ctx, shell.Image(), controller)
	if err != nil {
		return shell.Address{}, fmt.Errorf("%w: %v", shell.ErrDeploymentFailed, err)
	}
	s.log.Infof("shell deployed at %s, controller %s", addr, controller)
	return addr, nil
}

// CreateDeterministic installs a fresh shell at the address Predict reports
// for (controller, salt). Fails with shell.ErrSaltAlreadyUsed when that
// address is occupied, which a caller can avoid by checking Predict first.
func (s *Service) CreateDeterministic(ctx context.Context, controller shell.Address, salt shell.Salt) (shell.Address, error) {
	target := derive.PredictShell(controller, salt)

	addr, err := s.env.InstantiateAt(ctx, shell.Image(), controller, target)
	if err != nil {
		if errors.Is(err, shell.ErrAddressOccupied) {
			return shell.Address{}, fmt.Errorf("deploy at %s: %w", target, shell.ErrSaltAlreadyUsed)
		}
		return shell.Address{}, fmt.Errorf("%w: %v", shell.ErrDeploymentFailed, err)
	}
	s.log.Infof("shell deployed deterministically at %s, controller %s", addr, controller)
	return addr, nil
}

// Predict reports the address CreateDeterministic would use for the given
// controller and salt. Pure; it touches no state.
func (s *Service) Predict(controller shell.Address, salt shell.Salt) shell.Address {
	return derive.PredictShell(controller, salt)
}
