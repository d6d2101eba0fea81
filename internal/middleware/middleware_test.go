package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trading_ledger/internal/domain"
	"trading_ledger/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type adminTable map[uint]*domain.Admin

func (a adminTable) GetAdmin(_ context.Context, id uint) (*domain.Admin, error) {
	if id == 500 {
		return nil, errors.New("db down")
	}
	admin, ok := a[id]
	if !ok {
		return nil, fmt.Errorf("admin %d: %w", id, domain.ErrNotFound)
	}
	return admin, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":         c.GetUint(CtxUserID),
			"is_admin":        c.GetBool(CtxIsAdmin),
			"impersonated_by": c.GetUint(CtxImpersonatedBy),
		})
	})
	r.GET("/", chain...)
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := newRouter(JWTAuthMiddleware(secret))

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "garbage").Code)

	other, err := utils.GenerateJWT(7, "other-secret")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, other).Code)

	token, err := utils.GenerateJWT(7, secret)
	require.NoError(t, err)
	w := get(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"is_admin":false,"impersonated_by":0}`, w.Body.String())

	imp, err := utils.GenerateImpersonationJWT(7, 3, secret, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, imp).Code, "expired impersonation token")
}

func TestUserOnlyMiddleware(t *testing.T) {
	r := newRouter(JWTAuthMiddleware(secret), UserOnlyMiddleware())

	adminToken, err := utils.GenerateAdminJWT(1, secret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, adminToken).Code)

	userToken, err := utils.GenerateJWT(1, secret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(r, userToken).Code)
}

func TestRequirePermission(t *testing.T) {
	admins := adminTable{
		1: {ID: 1, Role: domain.RoleSuperAdmin, IsActive: true},
		2: {ID: 2, Role: domain.RoleSupport, Permissions: []domain.Permission{domain.PermUsers}, IsActive: true},
		3: {ID: 3, Role: domain.RoleFinance, Permissions: []domain.Permission{domain.PermFunds}, IsActive: false},
	}
	r := newRouter(JWTAuthMiddleware(secret), RequirePermission(admins, domain.PermFunds))

	tests := []struct {
		name    string
		adminID uint
		admin   bool
		want    int
	}{
		{"super admin", 1, true, http.StatusOK},
		{"missing capability", 2, true, http.StatusForbidden},
		{"disabled admin", 3, true, http.StatusForbidden},
		{"unknown admin", 4, true, http.StatusForbidden},
		{"store failure", 500, true, http.StatusInternalServerError},
		{"user token", 1, false, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var token string
			var err error
			if tt.admin {
				token, err = utils.GenerateAdminJWT(tt.adminID, secret)
			} else {
				token, err = utils.GenerateJWT(tt.adminID, secret)
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, get(r, token).Code)
		})
	}
}

func TestRequirePermissionAnyAdmin(t *testing.T) {
	admins := adminTable{2: {ID: 2, Role: domain.RoleViewer, IsActive: true}}
	r := newRouter(JWTAuthMiddleware(secret), RequirePermission(admins, ""))

	token, err := utils.GenerateAdminJWT(2, secret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(r, token).Code)
}
