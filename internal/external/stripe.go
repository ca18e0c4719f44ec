package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dttools/internal/billing"
	"dttools/internal/types"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeAPIBase is the default Stripe API base URL.
// Overridable in tests via StripeClientConfig.BaseURL.
const stripeAPIBase = "https://api.stripe.com"

// UserBillingStore is the minimal user data access StripeClient needs: a user
// row carries the Stripe customer ID, and newly created customers are written
// back. db.UserRepository satisfies it directly.
type UserBillingStore interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
	SetStripeCustomerID(ctx context.Context, userID string, customerID string) error
}

// CheckoutURLs are the redirect targets for a checkout session.
type CheckoutURLs struct {
	Success string
	Cancel  string
}

// StripeClientConfig holds the configuration for creating a StripeClient.
type StripeClientConfig struct {
	SecretKey string
	BaseURL   string // Override for testing; defaults to stripeAPIBase
	Logger    *slog.Logger
}

// StripeClient talks to the Stripe REST API through BaseClient, so every call
// gets the circuit breaker, retries, and error mapping. Checkout sessions are
// priced ad hoc from the plan catalog's cent amounts; no Stripe dashboard
// price objects are required.
type StripeClient struct {
	base      *BaseClient
	secretKey string
	baseURL   string
	users     UserBillingStore
	logger    *slog.Logger
}

func NewStripeClient(
	httpClient *http.Client,
	users UserBillingStore,
	cfg StripeClientConfig,
) *StripeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stripeAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"stripe",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"DTTools/1.0",
		WithSleepFunc(time.Sleep),
	)

	return &StripeClient{
		base:      base,
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		users:     users,
		logger:    logger,
	}
}

// NewStripeClientWithBase creates a StripeClient with a pre-configured
// BaseClient. This is useful for testing when you want to control the
// BaseClient configuration.
func NewStripeClientWithBase(
	base *BaseClient,
	users UserBillingStore,
	cfg StripeClientConfig,
) *StripeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stripeAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &StripeClient{
		base:      base,
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		users:     users,
		logger:    logger,
	}
}

// EnsureCustomer returns the Stripe customer ID for the user, creating the
// customer if needed. Search-first to prevent duplicate customers when the
// local column was lost:
//  1. Return the ID stored on the user row if present
//  2. Query Stripe Search for metadata['user_id']
//  3. Create a new customer with user_id metadata
//  4. Write the ID back to the user row
func (s *StripeClient) EnsureCustomer(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	searchQuery := fmt.Sprintf("metadata['user_id']:'%s'", userID)
	params := url.Values{}
	params.Set("query", searchQuery)

	searchResp, err := s.doGet(ctx, "/v1/customers/search", params)
	if err != nil {
		return "", s.wrapStripeError("EnsureCustomer.search", err)
	}
	defer searchResp.Body.Close()

	if searchResp.StatusCode != http.StatusOK {
		return "", s.handleErrorResponse(searchResp, "EnsureCustomer.search")
	}

	var searchResult stripeSearchResult
	if err := json.NewDecoder(searchResp.Body).Decode(&searchResult); err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe customer search response",
			err,
		)
	}

	if len(searchResult.Data) > 0 {
		customerID := searchResult.Data[0].ID
		s.persistCustomerID(ctx, userID, customerID)
		return customerID, nil
	}

	createParams := url.Values{}
	createParams.Set("email", user.Email)
	createParams.Set("name", user.Name)
	createParams.Set("metadata[user_id]", userID)

	createResp, err := s.doPost(ctx, "/v1/customers", createParams)
	if err != nil {
		return "", s.wrapStripeError("EnsureCustomer.create", err)
	}
	defer createResp.Body.Close()

	if createResp.StatusCode != http.StatusOK {
		return "", s.handleErrorResponse(createResp, "EnsureCustomer.create")
	}

	var customer stripeCustomer
	if err := json.NewDecoder(createResp.Body).Decode(&customer); err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe customer creation response",
			err,
		)
	}

	s.persistCustomerID(ctx, userID, customer.ID)
	return customer.ID, nil
}

func (s *StripeClient) persistCustomerID(ctx context.Context, userID, customerID string) {
	if err := s.users.SetStripeCustomerID(ctx, userID, customerID); err != nil {
		// The customer exists in Stripe either way; the next call re-finds it
		// through search.
		s.logger.WarnContext(ctx, "failed to persist stripe customer id",
			slog.String("user_id", userID),
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}
}

// CreatePlanCheckout generates a Checkout Session URL for a plan upgrade.
// client_reference_id and metadata carry the user ID and plan name so the
// webhook can correlate the completed session.
func (s *StripeClient) CreatePlanCheckout(
	ctx context.Context,
	userID string,
	plan *types.SubscriptionPlan,
	urls CheckoutURLs,
) (checkoutURL string, sessionID string, err error) {
	customerID, err := s.EnsureCustomer(ctx, userID)
	if err != nil {
		return "", "", err
	}

	params := url.Values{}
	params.Set("customer", customerID)
	params.Set("mode", "subscription")
	params.Set("client_reference_id", userID)
	params.Set("success_url", urls.Success)
	params.Set("cancel_url", urls.Cancel)
	params.Set("metadata[user_id]", userID)
	params.Set("metadata[plan_id]", plan.ID)
	params.Set("metadata[plan_name]", plan.Name)
	setRecurringLineItem(params, plan.DisplayName, plan.PriceCents)

	session, err := s.createCheckoutSession(ctx, "CreatePlanCheckout", params)
	if err != nil {
		return "", "", err
	}
	return session.URL, session.ID, nil
}

// CreateAddonCheckout generates a Checkout Session URL for an add-on
// purchase. Add-ons bill as monthly subscriptions alongside the plan.
func (s *StripeClient) CreateAddonCheckout(
	ctx context.Context,
	userID string,
	addon billing.AddonDefinition,
	urls CheckoutURLs,
) (checkoutURL string, sessionID string, err error) {
	customerID, err := s.EnsureCustomer(ctx, userID)
	if err != nil {
		return "", "", err
	}

	params := url.Values{}
	params.Set("customer", customerID)
	params.Set("mode", "subscription")
	params.Set("client_reference_id", userID)
	params.Set("success_url", urls.Success)
	params.Set("cancel_url", urls.Cancel)
	params.Set("metadata[user_id]", userID)
	params.Set("metadata[addon_key]", string(addon.Key))
	setRecurringLineItem(params, addon.DisplayName, addon.PriceCents)

	session, err := s.createCheckoutSession(ctx, "CreateAddonCheckout", params)
	if err != nil {
		return "", "", err
	}
	return session.URL, session.ID, nil
}

// setRecurringLineItem writes an ad-hoc monthly price_data line item. The
// catalog's cent amounts are the source of truth; no dashboard price objects.
func setRecurringLineItem(params url.Values, name string, priceCents int64) {
	params.Set("line_items[0][price_data][currency]", "usd")
	params.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(priceCents, 10))
	params.Set("line_items[0][price_data][recurring][interval]", "month")
	params.Set("line_items[0][price_data][product_data][name]", name)
	params.Set("line_items[0][quantity]", "1")
}

func (s *StripeClient) createCheckoutSession(ctx context.Context, operation string, params url.Values) (*stripeCheckoutSession, error) {
	resp, err := s.doPost(ctx, "/v1/checkout/sessions", params)
	if err != nil {
		return nil, s.wrapStripeError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleErrorResponse(resp, operation)
	}

	var session stripeCheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe checkout session response",
			err,
		)
	}
	return &session, nil
}

// CreatePortalSession generates a Stripe Billing Portal URL.
func (s *StripeClient) CreatePortalSession(
	ctx context.Context,
	userID string,
	returnURL string,
) (portalURL string, err error) {
	customerID, err := s.EnsureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("customer", customerID)
	params.Set("return_url", returnURL)

	resp, err := s.doPost(ctx, "/v1/billing_portal/sessions", params)
	if err != nil {
		return "", s.wrapStripeError("CreatePortalSession", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", s.handleErrorResponse(resp, "CreatePortalSession")
	}

	var session stripePortalSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe portal session response",
			err,
		)
	}

	return session.URL, nil
}

// doGet performs an authenticated GET request to the Stripe API.
func (s *StripeClient) doGet(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := s.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	s.setAuthHeaders(req)

	return s.base.Do(req)
}

// doPost performs an authenticated POST request to the Stripe API with
// form-encoded body.
func (s *StripeClient) doPost(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := s.baseURL + path
	body := params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.setAuthHeaders(req)

	return s.base.Do(req)
}

// setAuthHeaders sets the Stripe API authentication and version headers.
func (s *StripeClient) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", stripe.APIVersion)
}

// stripeErrorResponse represents the JSON error body returned by the Stripe API.
type stripeErrorResponse struct {
	Error stripeErrorBody `json:"error"`
}

type stripeErrorBody struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
	Param       string `json:"param"`
}

// handleErrorResponse reads a Stripe error response and maps it to a
// types.AppError.
func (s *StripeClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
		)
	}

	var stripeErr stripeErrorResponse
	if jsonErr := json.Unmarshal(body, &stripeErr); jsonErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe returned status %d with non-JSON body", operation, resp.StatusCode),
			jsonErr,
		)
	}

	return s.mapStripeError(operation, resp.StatusCode, &stripeErr.Error)
}

// mapStripeError translates a Stripe error into a types.AppError.
func (s *StripeClient) mapStripeError(operation string, statusCode int, stripeErr *stripeErrorBody) error {
	if stripeErr.Code == "card_declined" || stripeErr.DeclineCode != "" {
		return types.NewAppErrorWithDetails(
			types.ErrCodePaymentDeclined,
			fmt.Sprintf("%s: payment declined: %s", operation, stripeErr.Message),
			nil,
			map[string]any{
				"decline_code": stripeErr.DeclineCode,
				"stripe_code":  stripeErr.Code,
			},
		)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimit,
			fmt.Sprintf("%s: Stripe rate limit exceeded", operation),
			nil,
		)
	case statusCode >= 500:
		return types.NewAppError(
			types.ErrCodeUpstreamUnavail,
			fmt.Sprintf("%s: Stripe server error: %s", operation, stripeErr.Message),
			nil,
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe error (%d): %s", operation, statusCode, stripeErr.Message),
			nil,
		)
	}
}

// wrapStripeError wraps a BaseClient transport error with context.
func (s *StripeClient) wrapStripeError(operation string, err error) error {
	// AppErrors from BaseClient (circuit breaker, retries exhausted) already
	// carry the right upstream code.
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamStripe,
		fmt.Sprintf("%s: Stripe request failed: %v", operation, err),
		err,
	)
}

type stripeCustomer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

type stripeSearchResult struct {
	Data    []stripeCustomer `json:"data"`
	HasMore bool             `json:"has_more"`
}

type stripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripePortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StripeWebhookVerifier validates webhook payloads with stripe-go's
// HMAC-SHA256 signature check and timestamp tolerance, and returns the
// parsed event.
type StripeWebhookVerifier struct {
	Secret string
}

func (v *StripeWebhookVerifier) VerifyAndParse(payload []byte, sigHeader string) (stripe.Event, error) {
	// Endpoints can be pinned to an older Stripe API version than the one
	// stripe-go expects; the handler reads only the fields it needs from
	// Data.Raw, so a version mismatch must not fail verification.
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, types.NewAppError(
			types.ErrCodeAuthTokenInvalid,
			"webhook signature verification failed",
			err,
		)
	}
	return event, nil
}
