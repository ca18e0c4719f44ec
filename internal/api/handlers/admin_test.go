package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"dttools/internal/types"
)

type mockAdminUsers struct {
	getFn      func(ctx context.Context, id string) (*types.User, error)
	overrideFn func(ctx context.Context, userID string, maxProjects, aiChatLimit, maxDDProjects, maxDDExports *int) error

	overrideCalls int
}

func (m *mockAdminUsers) GetByID(ctx context.Context, id string) (*types.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &types.User{ID: id, Email: "user@example.com", Status: types.UserStatusActive}, nil
}

func (m *mockAdminUsers) UpdateOverrides(ctx context.Context, userID string, maxProjects, aiChatLimit, maxDDProjects, maxDDExports *int) error {
	m.overrideCalls++
	if m.overrideFn != nil {
		return m.overrideFn(ctx, userID, maxProjects, aiChatLimit, maxDDProjects, maxDDExports)
	}
	return nil
}

var _ AdminUserStore = (*mockAdminUsers)(nil)

func newTestAdminHandler(users *mockAdminUsers, addons *mockWebhookAddons) (*AdminHandler, *mockWebhookAddons) {
	if users == nil {
		users = &mockAdminUsers{}
	}
	if addons == nil {
		addons = &mockWebhookAddons{}
	}
	return NewAdminHandler(users, addons, testValidator(), nil), addons
}

func TestAdminUpdateOverrides_Success(t *testing.T) {
	var gotMaxProjects, gotAIChat *int
	users := &mockAdminUsers{
		overrideFn: func(ctx context.Context, userID string, maxProjects, aiChatLimit, maxDDProjects, maxDDExports *int) error {
			gotMaxProjects, gotAIChat = maxProjects, aiChatLimit
			return nil
		},
	}
	h, _ := newTestAdminHandler(users, nil)

	maxProjects := 100
	ctx := contextWithActor("admin_1", types.RoleAdmin)
	req := makeRequest("PUT", "/api/admin/users/user_1/overrides", UpdateOverridesRequest{
		MaxProjects: &maxProjects,
	}, ctx)
	req = withChiParam(req, "userID", "user_1")
	rr := httptest.NewRecorder()

	h.UpdateOverrides(rr, req)
	wantStatus(t, rr, http.StatusOK)

	if gotMaxProjects == nil || *gotMaxProjects != 100 {
		t.Errorf("maxProjects override = %v, want 100", gotMaxProjects)
	}
	if gotAIChat != nil {
		t.Errorf("aiChatLimit override = %v, want nil (cleared)", gotAIChat)
	}
}

func TestAdminUpdateOverrides_UnknownUser(t *testing.T) {
	users := &mockAdminUsers{
		getFn: func(ctx context.Context, id string) (*types.User, error) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		},
	}
	h, _ := newTestAdminHandler(users, nil)

	ctx := contextWithActor("admin_1", types.RoleAdmin)
	req := makeRequest("PUT", "/api/admin/users/user_ghost/overrides", UpdateOverridesRequest{}, ctx)
	req = withChiParam(req, "userID", "user_ghost")
	rr := httptest.NewRecorder()

	h.UpdateOverrides(rr, req)
	wantStatus(t, rr, http.StatusNotFound)

	if users.overrideCalls != 0 {
		t.Errorf("override calls = %d, want 0", users.overrideCalls)
	}
}

func TestAdminGrantAddon_Success(t *testing.T) {
	h, addons := newTestAdminHandler(nil, nil)

	ctx := contextWithActor("admin_1", types.RoleAdmin)
	req := makeRequest("POST", "/api/admin/users/user_1/addons/double_diamond_pro", nil, ctx)
	req = withChiParam(req, "userID", "user_1")
	req = withChiParam(req, "addonKey", "double_diamond_pro")
	rr := httptest.NewRecorder()

	h.GrantAddon(rr, req)
	wantStatus(t, rr, http.StatusNoContent)

	if len(addons.granted) != 1 || addons.granted[0] != types.AddonDoubleDiamondPro {
		t.Errorf("granted = %v, want [double_diamond_pro]", addons.granted)
	}
}

func TestAdminGrantAddon_UnknownKeyRejected(t *testing.T) {
	h, addons := newTestAdminHandler(nil, nil)

	ctx := contextWithActor("admin_1", types.RoleAdmin)
	req := makeRequest("POST", "/api/admin/users/user_1/addons/mystery_pack", nil, ctx)
	req = withChiParam(req, "userID", "user_1")
	req = withChiParam(req, "addonKey", "mystery_pack")
	rr := httptest.NewRecorder()

	h.GrantAddon(rr, req)
	wantStatus(t, rr, http.StatusBadRequest)

	if len(addons.granted) != 0 {
		t.Errorf("granted = %v, want none", addons.granted)
	}
}

func TestAdminRevokeAddon_Success(t *testing.T) {
	h, addons := newTestAdminHandler(nil, nil)

	ctx := contextWithActor("admin_1", types.RoleAdmin)
	req := makeRequest("DELETE", "/api/admin/users/user_1/addons/export_pro", nil, ctx)
	req = withChiParam(req, "userID", "user_1")
	req = withChiParam(req, "addonKey", "export_pro")
	rr := httptest.NewRecorder()

	h.RevokeAddon(rr, req)
	wantStatus(t, rr, http.StatusNoContent)

	if len(addons.revoked) != 1 || addons.revoked[0] != types.AddonExportPro {
		t.Errorf("revoked = %v, want [export_pro]", addons.revoked)
	}
}
