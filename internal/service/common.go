package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/events"
	"github.com/restokit/restaurant-billing/internal/observability"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

// Runtime bundles the ambient collaborators every service shares.
type Runtime struct {
	Logger     *zap.Logger
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Clock      func() time.Time
	Location   *time.Location
}

func (rt Runtime) withDefaults() Runtime {
	if rt.Logger == nil {
		rt.Logger = zap.NewNop()
	}
	if rt.Clock == nil {
		rt.Clock = time.Now
	}
	if rt.Location == nil {
		rt.Location = time.UTC
	}
	return rt
}

func (rt Runtime) now() time.Time {
	return rt.Clock().In(rt.Location)
}

func (rt Runtime) publish(ctx context.Context, event events.Event) {
	if rt.Dispatcher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = rt.Clock().UTC()
	}
	if err := rt.Dispatcher.Publish(ctx, event); err != nil {
		rt.Logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// PasswordHasher is the slice of the credential service used for account writes.
type PasswordHasher interface {
	CheckStrength(secret string) error
	Hash(secret string) (string, error)
}

func actorOf(actor domain.Actor) events.Actor {
	return events.Actor{UserID: actor.ID, Role: actor.Role}
}

// storeError wraps an unexpected repository failure.
func storeError(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewInternalError(err)
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func isBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}

func requiredFields(fields map[string]string) error {
	missing := map[string]any{}
	for name, value := range fields {
		if isBlank(value) {
			missing[name] = "required"
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", missing)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
