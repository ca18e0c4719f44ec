package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dttools/internal/types"
)

// SubscriptionRepository provides data access for the user_subscriptions
// table. A user has at most one active subscription; absence implies the
// free plan.
type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `s.id, s.user_id, s.plan_id, s.status,
	s.stripe_subscription_id, s.current_period_end, s.created_at, s.canceled_at`

func scanSubscription(row pgx.Row) (*types.UserSubscription, error) {
	var s types.UserSubscription
	var stripeSubID *string
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlanID,
		&s.Status,
		&stripeSubID,
		&s.CurrentPeriodEnd,
		&s.CreatedAt,
		&s.CanceledAt,
	)
	if err != nil {
		return nil, err
	}
	if stripeSubID != nil {
		s.StripeSubscriptionID = *stripeSubID
	}
	return &s, nil
}

// GetActiveByUserID returns the user's active or trialing subscription, or
// (nil, nil) when there is none. "No subscription" is a normal state, not an
// error, because the resolver falls back to the free plan.
func (r *SubscriptionRepository) GetActiveByUserID(ctx context.Context, userID string) (*types.UserSubscription, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM user_subscriptions s
		 WHERE s.user_id = $1 AND s.status IN ('active', 'trialing')
		 ORDER BY s.created_at DESC
		 LIMIT 1`,
		userID,
	)

	s, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve subscription", err)
	}
	return s, nil
}

// GetByStripeSubscriptionID returns the subscription row tracking a Stripe
// subscription object. Used by the webhook handler.
func (r *SubscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*types.UserSubscription, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM user_subscriptions s
		 WHERE s.stripe_subscription_id = $1`,
		stripeSubID,
	)

	s, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPlan, "subscription not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve subscription by stripe id", err)
	}
	return s, nil
}

// Upsert inserts or refreshes the subscription row keyed by the Stripe
// subscription ID. The webhook handler calls this on create and update
// events, so replays and out-of-order deliveries converge on the same row.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *types.UserSubscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_subscriptions (id, user_id, plan_id, status,
		 stripe_subscription_id, current_period_end, created_at, canceled_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()), $8)
		 ON CONFLICT (stripe_subscription_id) DO UPDATE SET
		   plan_id = EXCLUDED.plan_id,
		   status = EXCLUDED.status,
		   current_period_end = EXCLUDED.current_period_end,
		   canceled_at = EXCLUDED.canceled_at`,
		sub.ID,
		sub.UserID,
		sub.PlanID,
		sub.Status,
		nilIfEmpty(sub.StripeSubscriptionID),
		sub.CurrentPeriodEnd,
		nilIfZeroTime(sub.CreatedAt),
		sub.CanceledAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert subscription", err)
	}
	return nil
}

// UpdateStatus moves a subscription to a new provider status, stamping
// canceled_at when the status is canceled.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id string, status types.SubscriptionStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_subscriptions
		 SET status = $1,
		     canceled_at = CASE WHEN $1 = 'canceled' THEN NOW() ELSE canceled_at END
		 WHERE id = $2`,
		status,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update subscription status", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPlan, "subscription not found", nil)
	}
	return nil
}
