package external

import (
	"context"

	"dttools/internal/billing"
	"dttools/internal/types"

	stripe "github.com/stripe/stripe-go/v82"
)

// BillingProvider abstracts the payment provider (Stripe). Implementations
// translate between domain types and vendor-specific APIs.
type BillingProvider interface {
	// EnsureCustomer returns the Stripe customer ID for the user, creating
	// the customer if needed. Search-first logic prevents duplicates.
	EnsureCustomer(ctx context.Context, userID string) (string, error)

	// CreatePlanCheckout generates a Checkout URL for a plan upgrade. The
	// user ID rides as client_reference_id for webhook correlation.
	CreatePlanCheckout(ctx context.Context, userID string, plan *types.SubscriptionPlan, urls CheckoutURLs) (checkoutURL string, sessionID string, err error)

	// CreateAddonCheckout generates a Checkout URL for an add-on purchase.
	CreateAddonCheckout(ctx context.Context, userID string, addon billing.AddonDefinition, urls CheckoutURLs) (checkoutURL string, sessionID string, err error)

	// CreatePortalSession generates a Billing Portal URL for self-serve
	// billing management.
	CreatePortalSession(ctx context.Context, userID string, returnURL string) (portalURL string, err error)
}

// WebhookVerifier validates a webhook payload against its signature header
// and returns the parsed event.
type WebhookVerifier interface {
	VerifyAndParse(payload []byte, sigHeader string) (stripe.Event, error)
}

// Stripe event type constants prevent magic strings in webhook handlers.
const (
	EventStripeCheckoutCompleted = "checkout.session.completed"
	EventStripeInvoicePaid       = "invoice.paid"
	EventStripePaymentFailed     = "invoice.payment_failed"
	EventStripeSubUpdated        = "customer.subscription.updated"
	EventStripeSubDeleted        = "customer.subscription.deleted"
)
