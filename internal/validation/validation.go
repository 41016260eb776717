// Package validation checks that the optional backends an operator marked as
// required are actually reachable before the server starts taking traffic.
package validation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/communehq/commune/internal/logger"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by checks for services that were never set up.
var ErrNotConfigured = errors.New("not configured")

// DefaultTimeout bounds a single check.
const DefaultTimeout = 10 * time.Second

// Check probes one service.
type Check func(ctx context.Context) error

// ServiceValidator holds the checks for every optional service.
type ServiceValidator struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewServiceValidator creates a validator with no checks registered.
func NewServiceValidator() *ServiceValidator {
	return &ServiceValidator{
		checks:  make(map[string]Check),
		timeout: DefaultTimeout,
	}
}

// SetTimeout overrides the per-check timeout.
func (sv *ServiceValidator) SetTimeout(d time.Duration) {
	if d > 0 {
		sv.timeout = d
	}
}

// Register adds or replaces the check for name.
func (sv *ServiceValidator) Register(name string, check Check) {
	sv.checks[strings.ToLower(name)] = check
}

// Services lists the registered service names.
func (sv *ServiceValidator) Services() []string {
	names := make([]string, 0, len(sv.checks))
	for name := range sv.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateServices runs the checks of the required services in order and
// stops at the first failure. A required name without a check is an error.
func (sv *ServiceValidator) ValidateServices(ctx context.Context, required []string) error {
	if len(required) == 0 {
		logger.Log.Debug("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", required))

	for _, name := range required {
		name = strings.ToLower(strings.TrimSpace(name))
		check, ok := sv.checks[name]
		if !ok {
			return fmt.Errorf("required service %q is unknown (known: %s)", name, strings.Join(sv.Services(), ", "))
		}

		checkCtx, cancel := context.WithTimeout(ctx, sv.timeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			logger.Log.Error("Required service validation failed",
				zap.String("service", name),
				zap.Error(err),
			)
			return fmt.Errorf("required service %q: %w", name, err)
		}

		logger.Log.Info("Service validated", zap.String("service", name))
	}
	return nil
}
