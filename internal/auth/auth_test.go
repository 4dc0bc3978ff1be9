package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvillar/tienda/internal/auth"
)

func TestRoleGate_Allows(t *testing.T) {
	tests := []struct {
		name   string
		role   auth.Role
		action auth.Action
		want   bool
	}{
		{name: "AdminVoids", role: auth.RoleAdmin, action: auth.ActionVoidSale, want: true},
		{name: "SellerVoids", role: auth.RoleSeller, action: auth.ActionVoidSale, want: true},
		{name: "ViewerCannotVoid", role: auth.RoleViewer, action: auth.ActionVoidSale, want: false},
		{name: "AdminSells", role: auth.RoleAdmin, action: auth.ActionCreateSale, want: true},
		{name: "SellerSells", role: auth.RoleSeller, action: auth.ActionCreateSale, want: true},
		{name: "ViewerCannotSell", role: auth.RoleViewer, action: auth.ActionCreateSale, want: false},
		{name: "UnknownAction", role: auth.RoleAdmin, action: auth.Action("sale:export"), want: false},
	}

	gate := auth.NewRoleGate()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := auth.Actor{ID: uuid.New(), Role: tt.role}
			assert.Equal(t, tt.want, gate.Allows(actor, tt.action))
		})
	}
}

func TestActorContext(t *testing.T) {
	actor := auth.Actor{ID: uuid.New(), Name: "ana", Role: auth.RoleSeller}

	ctx := auth.WithActor(context.Background(), actor)

	got, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, actor, got)

	_, ok = auth.FromContext(context.Background())
	assert.False(t, ok)
}

func TestTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"

	actor := auth.Actor{ID: uuid.New(), Name: "ana", Role: auth.RoleSeller}

	raw, err := auth.IssueToken(secret, actor, time.Hour)
	require.NoError(t, err)

	got, err := auth.ParseToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestParseToken_Rejections(t *testing.T) {
	actor := auth.Actor{ID: uuid.New(), Name: "ana", Role: auth.RoleSeller}

	t.Run("WrongSecret", func(t *testing.T) {
		raw, err := auth.IssueToken("secret-a", actor, time.Hour)
		require.NoError(t, err)

		_, err = auth.ParseToken("secret-b", raw)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		raw, err := auth.IssueToken("secret", actor, -time.Minute)
		require.NoError(t, err)

		_, err = auth.ParseToken("secret", raw)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := auth.ParseToken("secret", "not-a-token")
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	const secret = "test-secret"

	actor := auth.Actor{ID: uuid.New(), Name: "ana", Role: auth.RoleSeller}

	token, err := auth.IssueToken(secret, actor, time.Hour)
	require.NoError(t, err)

	var (
		gotActor auth.Actor
		gotOK    bool
	)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, gotOK = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := auth.Middleware(secret)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  bool
	}{
		{name: "ValidToken", header: "Bearer " + token, wantStatus: http.StatusOK, wantActor: true},
		{name: "NoHeader", header: "", wantStatus: http.StatusOK, wantActor: false},
		{name: "MalformedHeader", header: "Token " + token, wantStatus: http.StatusUnauthorized},
		{name: "InvalidToken", header: "Bearer garbage", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotActor, gotOK = auth.Actor{}, false

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantActor, gotOK)

			if tt.wantActor {
				assert.Equal(t, actor, gotActor)
			}
		})
	}
}
