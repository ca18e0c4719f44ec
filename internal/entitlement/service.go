package entitlement

import (
	"context"
	"errors"
	"log/slog"

	"dttools/internal/types"
)

// UserSource loads the user row a resolution starts from.
type UserSource interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
}

// PlanSource loads plan rows from the catalog.
type PlanSource interface {
	GetByID(ctx context.Context, id string) (*types.SubscriptionPlan, error)
	GetByName(ctx context.Context, name types.PlanName) (*types.SubscriptionPlan, error)
}

// SubscriptionSource loads the user's active subscription, if any.
type SubscriptionSource interface {
	GetActiveByUserID(ctx context.Context, userID string) (*types.UserSubscription, error)
}

// AddonSource loads the user's active add-on grants.
type AddonSource interface {
	ListActiveByUserID(ctx context.Context, userID string) ([]types.UserAddon, error)
}

// Service loads the rows a resolution needs and feeds them through Resolve.
// One instance serves every request; it holds no per-user state.
type Service struct {
	users  UserSource
	plans  PlanSource
	subs   SubscriptionSource
	addons AddonSource
	logger *slog.Logger
}

func NewService(users UserSource, plans PlanSource, subs SubscriptionSource, addons AddonSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		plans:  plans,
		subs:   subs,
		addons: addons,
		logger: logger,
	}
}

// ResolveForUser assembles the entitlement for a user. Plan selection order:
// the active subscription's plan, then the plan pinned on the user row, then
// the free plan. A catalog with no free plan is a configuration fault and
// returns ErrCodeConfigNoPlan; gates downstream fail closed on it.
func (s *Service) ResolveForUser(ctx context.Context, userID string) (*types.Entitlement, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subs.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, err := s.selectPlan(ctx, user, sub)
	if err != nil {
		return nil, err
	}

	addons, err := s.addons.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return Resolve(Input{
		User:         user,
		Plan:         plan,
		Subscription: sub,
		Addons:       addons,
	}), nil
}

// ResolveAnonymous produces the free-plan defaults served to callers with no
// account, such as the public subscription-info endpoint.
func (s *Service) ResolveAnonymous(ctx context.Context) (*types.Entitlement, error) {
	plan, err := s.plans.GetByName(ctx, types.PlanFree)
	if err != nil {
		if isPlanNotFound(err) {
			return nil, types.NewAppError(types.ErrCodeConfigNoPlan, "no free plan configured", err)
		}
		return nil, err
	}
	return Resolve(Input{Plan: plan}), nil
}

func (s *Service) selectPlan(ctx context.Context, user *types.User, sub *types.UserSubscription) (*types.SubscriptionPlan, error) {
	if sub != nil {
		plan, err := s.plans.GetByID(ctx, sub.PlanID)
		if err == nil {
			return plan, nil
		}
		if !isPlanNotFound(err) {
			return nil, err
		}
		// An active subscription pointing at a deleted plan. Fall through to
		// the user's pinned plan rather than failing the whole resolution.
		s.logger.WarnContext(ctx, "active subscription references unknown plan",
			slog.String("user_id", user.ID),
			slog.String("plan_id", sub.PlanID),
		)
	}

	if user.SubscriptionPlanID != nil {
		plan, err := s.plans.GetByID(ctx, *user.SubscriptionPlanID)
		if err == nil {
			return plan, nil
		}
		if !isPlanNotFound(err) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "user references unknown plan",
			slog.String("user_id", user.ID),
			slog.String("plan_id", *user.SubscriptionPlanID),
		)
	}

	plan, err := s.plans.GetByName(ctx, types.PlanFree)
	if err != nil {
		if isPlanNotFound(err) {
			return nil, types.NewAppError(types.ErrCodeConfigNoPlan, "no free plan configured", err)
		}
		return nil, err
	}
	return plan, nil
}

func isPlanNotFound(err error) bool {
	var appErr *types.AppError
	return errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundPlan
}
