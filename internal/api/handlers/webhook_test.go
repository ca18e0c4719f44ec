package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"

	"dttools/internal/types"
)

type mockWebhookVerifier struct {
	event stripe.Event
	err   error
}

func (m *mockWebhookVerifier) VerifyAndParse(payload []byte, sigHeader string) (stripe.Event, error) {
	if m.err != nil {
		return stripe.Event{}, m.err
	}
	return m.event, nil
}

type mockWebhookUsers struct {
	setPlanFn func(ctx context.Context, userID string, planID *string) error

	setPlanCalls []struct {
		UserID string
		PlanID *string
	}
}

func (m *mockWebhookUsers) SetPlan(ctx context.Context, userID string, planID *string) error {
	m.setPlanCalls = append(m.setPlanCalls, struct {
		UserID string
		PlanID *string
	}{userID, planID})
	if m.setPlanFn != nil {
		return m.setPlanFn(ctx, userID, planID)
	}
	return nil
}

type mockWebhookSubs struct {
	getFn func(ctx context.Context, stripeSubID string) (*types.UserSubscription, error)

	upserted []*types.UserSubscription
	statuses []types.SubscriptionStatus
}

func (m *mockWebhookSubs) Upsert(ctx context.Context, sub *types.UserSubscription) error {
	m.upserted = append(m.upserted, sub)
	return nil
}

func (m *mockWebhookSubs) GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*types.UserSubscription, error) {
	if m.getFn != nil {
		return m.getFn(ctx, stripeSubID)
	}
	return &types.UserSubscription{
		ID:                   "sub_local_1",
		UserID:               "user_1",
		PlanID:               "plan_pro",
		Status:               types.SubStatusActive,
		StripeSubscriptionID: stripeSubID,
	}, nil
}

func (m *mockWebhookSubs) UpdateStatus(ctx context.Context, id string, status types.SubscriptionStatus) error {
	m.statuses = append(m.statuses, status)
	return nil
}

type mockWebhookAddons struct {
	granted []types.AddonKey
	revoked []types.AddonKey
}

func (m *mockWebhookAddons) Grant(ctx context.Context, userID string, key types.AddonKey) error {
	m.granted = append(m.granted, key)
	return nil
}

func (m *mockWebhookAddons) Revoke(ctx context.Context, userID string, key types.AddonKey) error {
	m.revoked = append(m.revoked, key)
	return nil
}

var (
	_ WebhookUserStore         = (*mockWebhookUsers)(nil)
	_ WebhookSubscriptionStore = (*mockWebhookSubs)(nil)
	_ WebhookAddonStore        = (*mockWebhookAddons)(nil)
)

func stripeEvent(t *testing.T, eventType string, obj any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshal event object: %v", err)
	}
	return stripe.Event{
		ID:      "evt_test_1",
		Type:    stripe.EventType(eventType),
		Created: 1756600000,
		Data:    &stripe.EventData{Raw: raw},
	}
}

func newWebhookFixture(verifier *mockWebhookVerifier) (*StripeWebhookHandler, *mockWebhookUsers, *mockWebhookSubs, *mockWebhookAddons) {
	users := &mockWebhookUsers{}
	subs := &mockWebhookSubs{}
	addons := &mockWebhookAddons{}
	h := NewStripeWebhookHandler(verifier, users, subs, addons, nil)
	return h, users, subs, addons
}

func postWebhook(h *StripeWebhookHandler, body string, withSig bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/billing/webhook", strings.NewReader(body))
	if withSig {
		req.Header.Set("Stripe-Signature", "t=1,v1=sig")
	}
	rr := httptest.NewRecorder()
	h.Handle(rr, req)
	return rr
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	h, _, _, _ := newWebhookFixture(&mockWebhookVerifier{})

	rr := postWebhook(h, "{}", false)
	wantStatus(t, rr, http.StatusUnauthorized)
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	verifier := &mockWebhookVerifier{
		err: types.NewAppError(types.ErrCodeAuthTokenInvalid, "webhook signature verification failed", errors.New("bad sig")),
	}
	h, _, _, _ := newWebhookFixture(verifier)

	rr := postWebhook(h, "{}", true)
	wantStatus(t, rr, http.StatusUnauthorized)
}

func TestWebhook_CheckoutCompleted_PlanActivated(t *testing.T) {
	event := stripeEvent(t, "checkout.session.completed", checkoutSessionObj{
		ClientReferenceID: "user_1",
		Subscription:      "sub_stripe_1",
		Metadata:          map[string]string{"user_id": "user_1", "plan_id": "plan_pro"},
	})
	h, users, subs, _ := newWebhookFixture(&mockWebhookVerifier{event: event})

	rr := postWebhook(h, "{}", true)
	wantStatus(t, rr, http.StatusOK)

	if len(users.setPlanCalls) != 1 {
		t.Fatalf("SetPlan calls = %d, want 1", len(users.setPlanCalls))
	}
	call := users.setPlanCalls[0]
	if call.UserID != "user_1" || call.PlanID == nil || *call.PlanID != "plan_pro" {
		t.Errorf("SetPlan(%q, %v), want user_1/plan_pro", call.UserID, call.PlanID)
	}

	if len(subs.upserted) != 1 {
		t.Fatalf("Upsert calls = %d, want 1", len(subs.upserted))
	}
	sub := subs.upserted[0]
	if sub.StripeSubscriptionID != "sub_stripe_1" || sub.Status != types.SubStatusActive {
		t.Errorf("upserted = %+v", sub)
	}
}

func TestWebhook_CheckoutCompleted_AddonGranted(t *testing.T) {
	event := stripeEvent(t, "checkout.session.completed", checkoutSessionObj{
		ClientReferenceID: "user_1",
		Metadata:          map[string]string{"user_id": "user_1", "addon_key": "ai_turbo"},
	})
	h, users, subs, addons := newWebhookFixture(&mockWebhookVerifier{event: event})

	rr := postWebhook(h, "{}", true)
	wantStatus(t, rr, http.StatusOK)

	if len(addons.granted) != 1 || addons.granted[0] != types.AddonAITurbo {
		t.Errorf("granted = %v, want [ai_turbo]", addons.granted)
	}
	if len(users.setPlanCalls) != 0 || len(subs.upserted) != 0 {
		t.Error("addon checkout must not touch plan or subscription state")
	}
}

func TestWebhook_SubscriptionUpdated_StatusSynced(t *testing.T) {
	event := stripeEvent(t, "customer.subscription.updated", subscriptionObj{
		ID:     "sub_stripe_1",
		Status: "past_due",
	})
	h, _, subs, _ := newWebhookFixture(&mockWebhookVerifier{event: event})

	rr := postWebhook(h, "{}", true)
	wantStatus(t, rr, http.StatusOK)

	if len(subs.statuses) != 1 || subs.statuses[0] != types.SubStatusPastDue {
		t.Errorf("statuses = %v, want [past_due]", subs.statuses)
	}
}

func TestWebhook_SubscriptionDeleted_RevertsToFree(t *testing.T) {
	event := stripeEvent(t, "customer.subscription.deleted", subscriptionObj{
		ID:     "sub_stripe_1",
		Status: "canceled",
	})
	h, users, subs, _ := newWebhookFixture(&mockWebhookVerifier{event: event})

	rr := postWebhook(h, "{}", true)
	wantStatus(t, rr, http.StatusOK)

	if len(subs.statuses) != 1 || subs.statuses[0] != types.SubStatusCanceled {
		t.Errorf("statuses = %v, want [canceled]", subs.statuses)
	}
	if len(users.setPlanCalls) != 1 || users.setPlanCalls[0].PlanID != nil {
		t.Errorf("SetPlan calls = %+v, want single call clearing the pin", users.setPlanCalls)
	}
}

func TestWebhook_PaymentFailed_MarksPastDue(t *testing.T) {
	event := stripeEvent(t, "invoice.payment_failed", invoiceObj{
		Subscription: "sub_stripe_1",
	})
	h, _, subs, _ := newWebhookFixture(&mockWebhookVerifier{event: event})

	rr := postWebhook(h, "{}", true)
	wantStatus(t, rr, http.StatusOK)

	if len(subs.statuses) != 1 || subs.statuses[0] != types.SubStatusPastDue {
		t.Errorf("statuses = %v, want [past_due]", subs.statuses)
	}
}

func TestWebhook_UnhandledEventAcknowledged(t *testing.T) {
	event := stripeEvent(t, "customer.created", map[string]string{"id": "cus_1"})
	h, users, subs, addons := newWebhookFixture(&mockWebhookVerifier{event: event})

	rr := postWebhook(h, "{}", true)
	wantStatus(t, rr, http.StatusOK)

	if len(users.setPlanCalls) != 0 || len(subs.upserted) != 0 || len(addons.granted) != 0 {
		t.Error("unhandled event must not mutate state")
	}
}

func TestWebhook_ProcessingFailureStillAcknowledged(t *testing.T) {
	event := stripeEvent(t, "customer.subscription.updated", subscriptionObj{
		ID: "sub_unknown",
	})
	subsErr := &mockWebhookSubs{
		getFn: func(ctx context.Context, stripeSubID string) (*types.UserSubscription, error) {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "db down", nil)
		},
	}
	h := NewStripeWebhookHandler(&mockWebhookVerifier{event: event}, &mockWebhookUsers{}, subsErr, &mockWebhookAddons{}, nil)

	rr := postWebhook(h, "{}", true)
	wantStatus(t, rr, http.StatusOK)
}
