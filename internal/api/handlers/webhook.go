package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"

	"dttools/internal/core"
	"dttools/internal/external"
	"dttools/internal/types"
)

// Stripe webhook payloads are small; the limit protects against abuse.
const maxWebhookBodySize = 64 * 1024

// WebhookUserStore updates the user's pinned plan as billing events arrive.
type WebhookUserStore interface {
	SetPlan(ctx context.Context, userID string, planID *string) error
}

// WebhookSubscriptionStore synchronizes local subscription rows with Stripe.
type WebhookSubscriptionStore interface {
	Upsert(ctx context.Context, sub *types.UserSubscription) error
	GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*types.UserSubscription, error)
	UpdateStatus(ctx context.Context, id string, status types.SubscriptionStatus) error
}

// WebhookAddonStore grants and revokes add-ons purchased through checkout.
type WebhookAddonStore interface {
	Grant(ctx context.Context, userID string, key types.AddonKey) error
	Revoke(ctx context.Context, userID string, key types.AddonKey) error
}

// StripeWebhookHandler handles asynchronous events from Stripe. The route is
// public; security comes from verifying the Stripe-Signature header.
type StripeWebhookHandler struct {
	verifier external.WebhookVerifier
	users    WebhookUserStore
	subs     WebhookSubscriptionStore
	addons   WebhookAddonStore
	logger   *slog.Logger
}

func NewStripeWebhookHandler(verifier external.WebhookVerifier, users WebhookUserStore, subs WebhookSubscriptionStore, addons WebhookAddonStore, l *slog.Logger) *StripeWebhookHandler {
	if l == nil {
		l = slog.Default()
	}
	return &StripeWebhookHandler{
		verifier: verifier,
		users:    users,
		subs:     subs,
		addons:   addons,
		logger:   l,
	}
}

// RegisterRoutes mounts the webhook endpoint. Kept separate from
// BillingHandler.RegisterRoutes because the route skips auth middleware.
func (h *StripeWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/billing/webhook", h.Handle)
}

// Handle processes incoming Stripe webhook events. It always acknowledges
// verified events with 200, even when internal processing fails, so Stripe
// does not retry indefinitely; failures are logged for investigation.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read webhook body", slog.Any("error", err))
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidJSON, "failed to read request body", err))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		h.logger.WarnContext(r.Context(), "missing Stripe-Signature header")
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "missing Stripe-Signature header", nil))
		return
	}

	event, err := h.verifier.VerifyAndParse(payload, sigHeader)
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed", slog.Any("error", err))
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "processing stripe webhook event",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
	)

	if err := h.routeEvent(r.Context(), &event); err != nil {
		h.logger.ErrorContext(r.Context(), "webhook event processing failed",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
			slog.Any("error", err),
		)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *StripeWebhookHandler) routeEvent(ctx context.Context, event *stripe.Event) error {
	switch string(event.Type) {
	case external.EventStripeCheckoutCompleted:
		return h.handleCheckoutCompleted(ctx, event)
	case external.EventStripeSubUpdated:
		return h.handleSubscriptionUpdated(ctx, event)
	case external.EventStripeSubDeleted:
		return h.handleSubscriptionDeleted(ctx, event)
	case external.EventStripePaymentFailed:
		return h.handlePaymentFailed(ctx, event)
	case external.EventStripeInvoicePaid:
		// Payment succeeded on an existing subscription; subscription.updated
		// carries the authoritative status change, so nothing to do here.
		return nil
	default:
		h.logger.InfoContext(ctx, "ignoring unhandled webhook event type",
			slog.String("event_type", string(event.Type)),
		)
		return nil
	}
}

// handleCheckoutCompleted confirms a plan upgrade or an add-on purchase after
// the user finishes the Checkout flow. The checkout session's metadata
// distinguishes the two: plan checkouts carry plan_id, add-on checkouts carry
// addon_key.
func (h *StripeWebhookHandler) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session checkoutSessionObj
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("parse checkout session: %w", err)
	}

	userID := session.userID()
	if userID == "" {
		return fmt.Errorf("checkout.session.completed: missing user_id in event %s", event.ID)
	}

	if key := session.Metadata["addon_key"]; key != "" {
		h.logger.InfoContext(ctx, "granting addon from checkout",
			slog.String("user_id", userID),
			slog.String("addon_key", key),
		)
		return h.addons.Grant(ctx, userID, types.AddonKey(key))
	}

	planID := session.Metadata["plan_id"]
	if planID == "" {
		return fmt.Errorf("checkout.session.completed: missing plan_id and addon_key in event %s", event.ID)
	}

	if err := h.users.SetPlan(ctx, userID, &planID); err != nil {
		return fmt.Errorf("SetPlan: %w", err)
	}

	sub := &types.UserSubscription{
		ID:                   "sub_" + uuid.New().String(),
		UserID:               userID,
		PlanID:               planID,
		Status:               types.SubStatusActive,
		StripeSubscriptionID: session.Subscription,
		CreatedAt:            time.Unix(event.Created, 0).UTC(),
	}
	if err := h.subs.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("Upsert subscription: %w", err)
	}

	h.logger.InfoContext(ctx, "plan activated from checkout",
		slog.String("user_id", userID),
		slog.String("plan_id", planID),
	)
	return nil
}

// handleSubscriptionUpdated synchronizes status changes (past_due, unpaid,
// renewals) onto the local subscription row.
func (h *StripeWebhookHandler) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	var subObj subscriptionObj
	if err := json.Unmarshal(event.Data.Raw, &subObj); err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}

	local, err := h.subs.GetByStripeSubscriptionID(ctx, subObj.ID)
	if err != nil {
		return fmt.Errorf("GetByStripeSubscriptionID: %w", err)
	}

	status := mapStripeSubStatus(subObj.Status)
	if err := h.subs.UpdateStatus(ctx, local.ID, status); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	h.logger.InfoContext(ctx, "subscription status updated",
		slog.String("subscription_id", local.ID),
		slog.String("status", string(status)),
	)
	return nil
}

// handleSubscriptionDeleted reverts the user to the free tier when the
// subscription is canceled. The plan pin is cleared rather than set to the
// free plan's ID so resolution falls through naturally.
func (h *StripeWebhookHandler) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var subObj subscriptionObj
	if err := json.Unmarshal(event.Data.Raw, &subObj); err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}

	local, err := h.subs.GetByStripeSubscriptionID(ctx, subObj.ID)
	if err != nil {
		return fmt.Errorf("GetByStripeSubscriptionID: %w", err)
	}

	if err := h.subs.UpdateStatus(ctx, local.ID, types.SubStatusCanceled); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if err := h.users.SetPlan(ctx, local.UserID, nil); err != nil {
		return fmt.Errorf("SetPlan: %w", err)
	}

	h.logger.InfoContext(ctx, "subscription canceled",
		slog.String("subscription_id", local.ID),
		slog.String("user_id", local.UserID),
	)
	return nil
}

// handlePaymentFailed records dunning state on the subscription.
func (h *StripeWebhookHandler) handlePaymentFailed(ctx context.Context, event *stripe.Event) error {
	var invoice invoiceObj
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("parse invoice: %w", err)
	}
	if invoice.Subscription == "" {
		h.logger.WarnContext(ctx, "payment failed for non-subscription invoice",
			slog.String("event_id", event.ID),
		)
		return nil
	}

	local, err := h.subs.GetByStripeSubscriptionID(ctx, invoice.Subscription)
	if err != nil {
		return fmt.Errorf("GetByStripeSubscriptionID: %w", err)
	}

	if err := h.subs.UpdateStatus(ctx, local.ID, types.SubStatusPastDue); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	h.logger.WarnContext(ctx, "subscription past due after payment failure",
		slog.String("subscription_id", local.ID),
		slog.String("user_id", local.UserID),
	)
	return nil
}

// Minimal projections of the Stripe objects the handler reads. Parsing the
// raw JSON keeps the handler independent of stripe-go's full object structs.

type checkoutSessionObj struct {
	ClientReferenceID string            `json:"client_reference_id"`
	Subscription      string            `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
}

// userID prefers client_reference_id, which CreatePlanCheckout always sets.
func (s *checkoutSessionObj) userID() string {
	if s.ClientReferenceID != "" {
		return s.ClientReferenceID
	}
	return s.Metadata["user_id"]
}

type subscriptionObj struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

type invoiceObj struct {
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

func mapStripeSubStatus(status string) types.SubscriptionStatus {
	switch status {
	case "active":
		return types.SubStatusActive
	case "trialing":
		return types.SubStatusTrialing
	case "past_due":
		return types.SubStatusPastDue
	case "canceled":
		return types.SubStatusCanceled
	case "unpaid":
		return types.SubStatusUnpaid
	default:
		return types.SubscriptionStatus(status)
	}
}
