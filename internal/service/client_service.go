package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/events"
	"github.com/restokit/restaurant-billing/internal/repository"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

var validate = validator.New()

// ClientService manages client accounts and their restaurant profile.
type ClientService struct {
	users       repository.UserRepository
	restaurants repository.RestaurantRepository
	payments    repository.PaymentRepository
	tx          repository.TxManager
	access      *AccessControl
	cascade     *CascadeCoordinator
	hasher      PasswordHasher
	rt          Runtime
}

// ClientDependencies bundles collaborators for the client registry.
type ClientDependencies struct {
	UserRepo       repository.UserRepository
	RestaurantRepo repository.RestaurantRepository
	PaymentRepo    repository.PaymentRepository
	TxManager      repository.TxManager
	Access         *AccessControl
	Cascade        *CascadeCoordinator
	Hasher         PasswordHasher
	Runtime        Runtime
}

// CreateClientInput describes client onboarding.
type CreateClientInput struct {
	Email             string
	Password          string
	Name              string
	RestaurantName    string
	RestaurantAddress string
	Phone             *string
	MonthlyAmount     decimal.Decimal
	PaymentDay        int
}

// ClientOnboarding is what CreateClient wrote.
type ClientOnboarding struct {
	User       *domain.User
	Restaurant *domain.Restaurant
	Payment    *domain.Payment
}

// NextPayment is the earliest-due open payment of a client.
type NextPayment struct {
	Payment   domain.Payment
	IsOverdue bool
}

// ClientSummary is one row of a client listing.
type ClientSummary struct {
	User        domain.User
	Restaurant  *domain.Restaurant
	NextPayment *NextPayment
}

// UpdateClientInput carries the fields to change; nil means unchanged.
type UpdateClientInput struct {
	Name              *string
	Email             *string
	Password          *string
	RestaurantName    *string
	RestaurantAddress *string
	RestaurantPhone   *string
	RestaurantEmail   *string
	MonthlyAmount     *decimal.Decimal
	PaymentDay        *int
}

// ClientUpdate reports the outcome of UpdateClient.
type ClientUpdate struct {
	User            *domain.User
	Restaurant      *domain.Restaurant
	PaymentsUpdated int
}

// NewClientService constructs the service.
func NewClientService(deps ClientDependencies) *ClientService {
	return &ClientService{
		users:       deps.UserRepo,
		restaurants: deps.RestaurantRepo,
		payments:    deps.PaymentRepo,
		tx:          deps.TxManager,
		access:      deps.Access,
		cascade:     deps.Cascade,
		hasher:      deps.Hasher,
		rt:          deps.Runtime.withDefaults(),
	}
}

// CreateClient onboards a client: user, restaurant and the first monthly
// payment, due on PaymentDay of next month, are written atomically.
func (s *ClientService) CreateClient(ctx context.Context, actor domain.Actor, input CreateClientInput) (*ClientOnboarding, error) {
	if err := s.access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := requiredFields(map[string]string{
		"email":              input.Email,
		"password":           input.Password,
		"name":               input.Name,
		"restaurant_name":    input.RestaurantName,
		"restaurant_address": input.RestaurantAddress,
	}); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(input.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.checkPassword(input.Password); err != nil {
		return nil, err
	}
	if err := validateBillingTerms(&input.MonthlyAmount, &input.PaymentDay); err != nil {
		return nil, err
	}
	if err := s.ensureEmailAvailable(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	ref := domain.ReferenceMonthOf(s.rt.now()).Next()
	token := ref.String()
	onboarding := &ClientOnboarding{
		User: &domain.User{
			Name:         strings.TrimSpace(input.Name),
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleUser,
			Active:       true,
		},
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, onboarding.User); err != nil {
			return err
		}
		address := strings.TrimSpace(input.RestaurantAddress)
		onboarding.Restaurant = &domain.Restaurant{
			Name:    strings.TrimSpace(input.RestaurantName),
			Address: &address,
			Phone:   trimmedOrNil(input.Phone),
			OwnerID: onboarding.User.ID,
		}
		if err := s.restaurants.Create(ctx, onboarding.Restaurant); err != nil {
			return err
		}
		onboarding.Payment = &domain.Payment{
			ClientID:       onboarding.User.ID,
			ClientName:     onboarding.User.Name,
			ClientEmail:    onboarding.User.Email,
			Amount:         input.MonthlyAmount,
			DueDate:        ref.DueDate(input.PaymentDay, s.rt.Location),
			Type:           domain.PaymentTypeMonthly,
			Status:         domain.PaymentStatusPending,
			Description:    domain.MonthlyDescription(token),
			ReferenceMonth: &token,
		}
		return s.payments.Create(ctx, onboarding.Payment)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, storeError(err)
	}

	s.rt.Logger.Info("client created",
		zap.String("client_id", onboarding.User.ID),
		zap.String("restaurant_id", onboarding.Restaurant.ID),
		zap.String("reference_month", token))
	s.rt.Metrics.ClientLifecycle("created")
	s.rt.Metrics.PaymentsCreated(string(domain.PaymentTypeMonthly), 1)
	s.rt.publish(ctx, events.Event{
		Type:     events.EventClientCreated,
		ClientID: onboarding.User.ID,
		Actor:    actorOf(actor),
		Payload: events.ClientCreatedPayload{
			Email:          onboarding.User.Email,
			RestaurantID:   onboarding.Restaurant.ID,
			FirstPaymentID: onboarding.Payment.ID,
			ReferenceMonth: token,
		},
	})
	return onboarding, nil
}

// ListActiveClients returns active clients with their next open payment.
func (s *ClientService) ListActiveClients(ctx context.Context, actor domain.Actor) ([]ClientSummary, error) {
	return s.listClients(ctx, actor, true)
}

// ListDeactivatedClients returns deactivated clients with their next open payment.
func (s *ClientService) ListDeactivatedClients(ctx context.Context, actor domain.Actor) ([]ClientSummary, error) {
	return s.listClients(ctx, actor, false)
}

func (s *ClientService) listClients(ctx context.Context, actor domain.Actor, active bool) ([]ClientSummary, error) {
	if err := s.access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.users.ListClients(ctx, active)
	if err != nil {
		return nil, storeError(err)
	}
	ids := make([]string, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}

	restaurants, err := s.restaurants.ListByOwners(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}
	firstRestaurant := make(map[string]domain.Restaurant, len(restaurants))
	for _, restaurant := range restaurants {
		if _, seen := firstRestaurant[restaurant.OwnerID]; !seen {
			firstRestaurant[restaurant.OwnerID] = restaurant
		}
	}

	next, err := s.payments.NextOpenByClients(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}

	now := s.rt.now()
	result := make([]ClientSummary, 0, len(users))
	for _, user := range users {
		summary := ClientSummary{User: user}
		if restaurant, ok := firstRestaurant[user.ID]; ok {
			summary.Restaurant = &restaurant
		}
		if payment, ok := next[user.ID]; ok {
			summary.NextPayment = &NextPayment{Payment: payment, IsOverdue: payment.IsOverdueAt(now)}
		}
		result = append(result, summary)
	}
	return result, nil
}

// DeactivateClient blocks a client's access. Deactivating an inactive client
// is a silent success.
func (s *ClientService) DeactivateClient(ctx context.Context, actor domain.Actor, clientID string) (*domain.User, error) {
	return s.setActive(ctx, actor, clientID, false)
}

// ReactivateClient restores a client's access. Reactivating an active client
// is a silent success.
func (s *ClientService) ReactivateClient(ctx context.Context, actor domain.Actor, clientID string) (*domain.User, error) {
	return s.setActive(ctx, actor, clientID, true)
}

func (s *ClientService) setActive(ctx context.Context, actor domain.Actor, clientID string, active bool) (*domain.User, error) {
	if err := s.access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := clientTarget(ctx, s.users, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, user.ID, active); err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("client", map[string]any{"client_id": clientID})
		}
		return nil, storeError(err)
	}
	user.Active = active

	eventType, action := events.EventClientDeactivated, "deactivated"
	if active {
		eventType, action = events.EventClientReactivated, "reactivated"
	}
	s.rt.Logger.Info("client "+action, zap.String("client_id", user.ID))
	s.rt.Metrics.ClientLifecycle(action)
	s.rt.publish(ctx, events.Event{Type: eventType, ClientID: user.ID, Actor: actorOf(actor)})
	return user, nil
}

// UpdateClient edits account, restaurant and open billing terms. New amount or
// payment day applies to every PENDING or OVERDUE payment; payments settled in
// the meantime are left untouched and reference months never change.
func (s *ClientService) UpdateClient(ctx context.Context, actor domain.Actor, clientID string, input UpdateClientInput) (*ClientUpdate, error) {
	if err := s.access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := clientTarget(ctx, s.users, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.validateUpdate(input); err != nil {
		return nil, err
	}

	var fields []string
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
		fields = append(fields, "name")
	}
	if input.Email != nil {
		email := domain.NormalizeEmail(*input.Email)
		if email != user.Email {
			if err := s.ensureEmailAvailable(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
			fields = append(fields, "email")
		}
	}
	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
		fields = append(fields, "password")
	}

	result := &ClientUpdate{User: user}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		restaurant, changed, err := s.updateFirstRestaurant(ctx, user.ID, input)
		if err != nil {
			return err
		}
		result.Restaurant = restaurant
		if changed {
			fields = append(fields, "restaurant")
		}
		if input.MonthlyAmount == nil && input.PaymentDay == nil {
			return nil
		}
		result.PaymentsUpdated, err = s.rewriteOpenPayments(ctx, user.ID, input.MonthlyAmount, input.PaymentDay)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		return nil, storeError(err)
	}
	if result.PaymentsUpdated > 0 {
		fields = append(fields, "billing_terms")
	}

	s.rt.Logger.Info("client updated",
		zap.String("client_id", user.ID),
		zap.Strings("fields", fields),
		zap.Int("payments_updated", result.PaymentsUpdated))
	s.rt.Metrics.ClientLifecycle("updated")
	s.rt.publish(ctx, events.Event{
		Type:     events.EventClientUpdated,
		ClientID: user.ID,
		Actor:    actorOf(actor),
		Payload:  events.ClientUpdatedPayload{Fields: fields, PaymentsUpdated: result.PaymentsUpdated},
	})
	return result, nil
}

func (s *ClientService) validateUpdate(input UpdateClientInput) error {
	if input.Name != nil && isBlank(*input.Name) {
		return apperrors.NewValidationError("name cannot be empty", map[string]any{"name": "required"})
	}
	if input.RestaurantName != nil && isBlank(*input.RestaurantName) {
		return apperrors.NewValidationError("restaurant name cannot be empty", map[string]any{"restaurant_name": "required"})
	}
	if input.Email != nil {
		if err := validateEmail(domain.NormalizeEmail(*input.Email)); err != nil {
			return err
		}
	}
	if input.Password != nil {
		if err := s.checkPassword(*input.Password); err != nil {
			return err
		}
	}
	return validateBillingTerms(input.MonthlyAmount, input.PaymentDay)
}

func (s *ClientService) updateFirstRestaurant(ctx context.Context, ownerID string, input UpdateClientInput) (*domain.Restaurant, bool, error) {
	restaurants, err := s.restaurants.ListByOwners(ctx, []string{ownerID})
	if err != nil || len(restaurants) == 0 {
		return nil, false, err
	}
	restaurant := restaurants[0]
	if input.RestaurantName == nil && input.RestaurantAddress == nil &&
		input.RestaurantPhone == nil && input.RestaurantEmail == nil {
		return &restaurant, false, nil
	}
	if input.RestaurantName != nil {
		restaurant.Name = strings.TrimSpace(*input.RestaurantName)
	}
	if input.RestaurantAddress != nil {
		restaurant.Address = trimmedOrNil(input.RestaurantAddress)
	}
	if input.RestaurantPhone != nil {
		restaurant.Phone = trimmedOrNil(input.RestaurantPhone)
	}
	if input.RestaurantEmail != nil {
		restaurant.Email = trimmedOrNil(input.RestaurantEmail)
	}
	if err := s.restaurants.Update(ctx, &restaurant); err != nil {
		return nil, false, err
	}
	return &restaurant, true, nil
}

// rewriteOpenPayments applies new terms payment by payment. Each write is
// conditional on the payment still being open, so one marked PAID
// concurrently is skipped instead of reverted.
func (s *ClientService) rewriteOpenPayments(ctx context.Context, clientID string, amount *decimal.Decimal, day *int) (int, error) {
	open, err := s.payments.ListOpenByClient(ctx, clientID)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, payment := range open {
		var dueDate *time.Time
		if day != nil {
			d := domain.WithDay(payment.DueDate.In(s.rt.Location), *day)
			dueDate = &d
		}
		err := s.payments.UpdateOpenTerms(ctx, payment.ID, amount, dueDate)
		if errors.Is(err, repository.ErrStateChanged) {
			s.rt.Logger.Info("payment settled during term update; skipped",
				zap.String("client_id", clientID),
				zap.String("payment_id", payment.ID))
			continue
		}
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// DeleteClient permanently removes a client with all tenant-owned records.
func (s *ClientService) DeleteClient(ctx context.Context, actor domain.Actor, clientID string) error {
	if err := s.access.RequireAdmin(actor); err != nil {
		return err
	}
	user, err := clientTarget(ctx, s.users, clientID)
	if err != nil {
		return err
	}

	var purged *CascadeResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if purged, err = s.cascade.DeleteClientData(ctx, user.ID); err != nil {
			return err
		}
		return s.users.Delete(ctx, user.ID)
	})
	if err != nil {
		s.rt.Logger.Error("client deletion failed", zap.String("client_id", user.ID), zap.Error(err))
		return storeError(err)
	}

	s.rt.Logger.Info("client deleted", zap.String("client_id", user.ID))
	s.rt.Metrics.ClientLifecycle("deleted")
	s.rt.publish(ctx, events.Event{
		Type:     events.EventClientDeleted,
		ClientID: user.ID,
		Actor:    actorOf(actor),
		Payload: events.ClientDeletedPayload{
			Email:             user.Email,
			RestaurantIDs:     purged.RestaurantIDs,
			PaymentsRemoved:   purged.PaymentsRemoved,
			DependentsRemoved: purged.DependentsRemoved,
		},
	})
	return nil
}

func (s *ClientService) checkPassword(password string) error {
	if err := s.hasher.CheckStrength(password); err != nil {
		return apperrors.NewValidationError("password does not meet policy", map[string]any{"password": err.Error()})
	}
	return nil
}

func (s *ClientService) ensureEmailAvailable(ctx context.Context, email, ownID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return apperrors.NewInternalError(err)
	}
	if existing.ID == ownID {
		return nil
	}
	return apperrors.NewConflict("email already registered", map[string]any{"email": email})
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return apperrors.NewValidationError("invalid email", map[string]any{"email": "must be a valid email"})
	}
	return nil
}

// validateBillingTerms checks whichever of amount and day are supplied.
func validateBillingTerms(amount *decimal.Decimal, day *int) error {
	details := map[string]any{}
	if amount != nil && !amount.IsPositive() {
		details["monthly_amount"] = "must be greater than 0"
	}
	if day != nil && (*day < 1 || *day > 31) {
		details["payment_day"] = "must be between 1 and 31"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid billing terms", details)
	}
	return nil
}
