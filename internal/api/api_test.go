package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"trading_ledger/internal/domain"
	"trading_ledger/internal/ledger"
	"trading_ledger/internal/store"
	"trading_ledger/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtSecret   = "test-secret"
	userID      = uint(7)
	superAdmin  = uint(1)
	viewerAdmin = uint(2)
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.PINHashCost = bcrypt.MinCost
	logrus.SetLevel(logrus.ErrorLevel)
	os.Exit(m.Run())
}

type testServer struct {
	router *gin.Engine
	mem    *store.Memory
	svc    *ledger.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	mem.PutAccountType(domain.AccountType{
		ID: 1, Name: "Standard", MinDeposit: decimal.NewFromInt(10), Leverage: 100,
		ExposureLimit: decimal.NewFromInt(10000), IsActive: true,
	})
	mem.PutAdmin(domain.Admin{ID: superAdmin, Email: "root@example.com", Role: domain.RoleSuperAdmin, IsActive: true})
	mem.PutAdmin(domain.Admin{ID: viewerAdmin, Email: "viewer@example.com", Role: domain.RoleViewer,
		Permissions: []domain.Permission{domain.PermAccounts}, IsActive: true})

	svc := ledger.NewService(ledger.Deps{Store: mem})
	r := gin.New()
	RegisterRoutes(r, svc, nil, RouteConfig{JWTSecret: jwtSecret, ImpersonationTTL: time.Hour})
	return &testServer{router: r, mem: mem, svc: svc}
}

func userToken(t *testing.T, id uint) string {
	t.Helper()
	token, err := utils.GenerateJWT(id, jwtSecret)
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T, id uint) string {
	t.Helper()
	token, err := utils.GenerateAdminJWT(id, jwtSecret)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

// openFundedAccount gives the user a wallet of walletFunds and opens one account
func (s *testServer) openFundedAccount(t *testing.T, walletFunds int) string {
	t.Helper()
	code, _ := s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/add-fund", userID), adminToken(t, superAdmin),
		gin.H{"amount": walletFunds, "reason": "bank wire"})
	require.Equal(t, http.StatusOK, code)

	code, body := s.do(t, http.MethodPost, "/api/trading-accounts", userToken(t, userID),
		gin.H{"account_type_id": 1, "pin": "1234"})
	require.Equal(t, http.StatusCreated, code, body)
	account := body["account"].(map[string]any)
	return account["account_id"].(string)
}

func TestTransferFlow(t *testing.T) {
	s := newTestServer(t)
	token := userToken(t, userID)
	accountID := s.openFundedAccount(t, 110)

	// Wallet 100, account 10 after the opening deposit.
	code, body := s.do(t, http.MethodGet, "/api/wallet", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "100", body["wallet"].(map[string]any)["balance"])

	path := "/api/trading-accounts/" + accountID + "/transfer"
	code, body = s.do(t, http.MethodPost, path, token, gin.H{"amount": 40, "direction": "deposit", "pin": "1234"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "60", body["wallet_balance"])
	assert.Equal(t, "50", body["account_balance"])

	code, body = s.do(t, http.MethodPost, path, token, gin.H{"amount": 1, "direction": "deposit", "pin": "9999"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "incorrect PIN", body["error"])

	code, body = s.do(t, http.MethodPost, path, token, gin.H{"amount": 500, "direction": "withdraw", "pin": "1234"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "insufficient funds", body["error"])

	code, _ = s.do(t, http.MethodPost, path, token, gin.H{"amount": 0, "direction": "deposit", "pin": "1234"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, path, token, gin.H{"amount": 1, "direction": "sideways", "pin": "1234"})
	assert.Equal(t, http.StatusBadRequest, code)

	// Skipping the PIN is ignored outside admin sessions.
	code, _ = s.do(t, http.MethodPost, path, token, gin.H{"amount": 1, "direction": "deposit", "skip_pin_verification": true})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, path, token, gin.H{"amount": 1, "direction": "deposit", "pin": "12"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, path, token, gin.H{"amount": "0.000000005", "direction": "deposit", "pin": "1234"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/api/wallet/transactions", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["total"]) // admin credit, opening deposit, transfer
	txs := body["transactions"].([]any)
	assert.Equal(t, string(domain.TxTransferToAccount), txs[0].(map[string]any)["type"])

	code, body = s.do(t, http.MethodGet, "/api/trading-accounts/"+accountID+"/summary", token, nil)
	require.Equal(t, http.StatusOK, code)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, "50", summary["equity"])
	assert.Equal(t, "0.00", summary["margin_level"])
}

func TestAccountOwnership(t *testing.T) {
	s := newTestServer(t)
	accountID := s.openFundedAccount(t, 10)
	stranger := userToken(t, 8)

	code, _ := s.do(t, http.MethodGet, "/api/trading-accounts/"+accountID, stranger, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodGet, "/api/trading-accounts/"+accountID+"/summary", stranger, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodPost, "/api/trading-accounts/"+accountID+"/transfer", stranger,
		gin.H{"amount": 1, "direction": "withdraw", "pin": "1234"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body := s.do(t, http.MethodGet, "/api/trading-accounts/"+accountID, userToken(t, userID), nil)
	require.Equal(t, http.StatusOK, code)
	account := body["account"].(map[string]any)
	assert.NotContains(t, account, "pin_hash")
	assert.NotContains(t, account, "PINHash")
}

func TestCreateAccountWithoutFunds(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodPost, "/api/trading-accounts", userToken(t, userID), gin.H{"account_type_id": 1, "pin": "1234"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "insufficient funds", body["error"])

	code, _ = s.do(t, http.MethodPost, "/api/trading-accounts", userToken(t, userID), gin.H{"account_type_id": 1, "pin": "12345"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPINEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := userToken(t, userID)
	accountID := s.openFundedAccount(t, 10)
	base := "/api/trading-accounts/" + accountID

	code, body := s.do(t, http.MethodPost, base+"/verify-pin", token, gin.H{"pin": "1234"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["valid"])

	code, body = s.do(t, http.MethodPost, base+"/verify-pin", token, gin.H{"pin": "0000"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["valid"])

	code, _ = s.do(t, http.MethodPut, base+"/change-pin", token, gin.H{"current_pin": "0000", "new_pin": "5678"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPut, base+"/change-pin", token, gin.H{"current_pin": "1234", "new_pin": "5678"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPut, "/api/admin/trading-accounts/"+accountID+"/reset-pin", adminToken(t, superAdmin),
		gin.H{"new_pin": "4321", "reason": "customer request"})
	assert.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPost, base+"/verify-pin", token, gin.H{"pin": "4321"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["valid"])
}

func TestAdminCreditFlow(t *testing.T) {
	s := newTestServer(t)
	accountID := s.openFundedAccount(t, 10)
	admin := adminToken(t, superAdmin)
	base := "/api/admin/trading-accounts/" + accountID

	code, body := s.do(t, http.MethodPost, base+"/add-credit", admin, gin.H{"amount": 50, "reason": "bonus"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "0", body["previous_credit"])
	assert.Equal(t, "50", body["credit"])

	code, body = s.do(t, http.MethodPost, base+"/remove-credit", admin, gin.H{"amount": 20, "reason": "clawback"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "30", body["credit"])

	code, body = s.do(t, http.MethodPost, base+"/remove-credit", admin, gin.H{"amount": 31, "reason": "clawback"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "insufficient credit", body["error"])

	code, _ = s.do(t, http.MethodPost, base+"/add-credit", admin, gin.H{"amount": 5})
	assert.Equal(t, http.StatusBadRequest, code, "reason is mandatory")

	code, body = s.do(t, http.MethodGet, base+"/summary", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "40", body["summary"].(map[string]any)["equity"])

	logs := s.mem.AdminLogs()
	var credits int
	for _, l := range logs {
		if l.Action == domain.ActionAddCredit || l.Action == domain.ActionRemoveCredit {
			credits++
		}
	}
	assert.Equal(t, 2, credits)
}

func TestAdminPermissions(t *testing.T) {
	s := newTestServer(t)
	accountID := s.openFundedAccount(t, 10)
	viewer := adminToken(t, viewerAdmin)

	code, _ := s.do(t, http.MethodPost, "/api/admin/trading-accounts/"+accountID+"/add-credit", viewer, gin.H{"amount": 5, "reason": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body := s.do(t, http.MethodGet, "/api/admin/trading-accounts", viewer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])

	code, _ = s.do(t, http.MethodGet, "/api/admin/trading-accounts", userToken(t, userID), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/wallet", viewer, nil)
	assert.Equal(t, http.StatusForbidden, code, "admin tokens cannot act as users")

	code, body = s.do(t, http.MethodGet, "/api/admin/me", viewer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "viewer@example.com", body["admin"].(map[string]any)["email"])
}

func TestAdminUpdateAccount(t *testing.T) {
	s := newTestServer(t)
	accountID := s.openFundedAccount(t, 10)

	code, body := s.do(t, http.MethodPut, "/api/admin/trading-accounts/"+accountID, adminToken(t, superAdmin),
		gin.H{"leverage": 50, "status": "Suspended", "reason": "risk review"})
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 50, body["account"].(map[string]any)["leverage"])

	code, body = s.do(t, http.MethodPost, "/api/trading-accounts/"+accountID+"/transfer", userToken(t, userID),
		gin.H{"amount": 1, "direction": "withdraw", "pin": "1234"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "account is not active", body["error"])
}

func TestLoginAsUser(t *testing.T) {
	s := newTestServer(t)
	accountID := s.openFundedAccount(t, 20)

	code, body := s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/login-as-user/%d", userID), adminToken(t, superAdmin),
		gin.H{"reason": "ticket 981"})
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)

	claims, err := utils.ParseJWT(token, jwtSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, superAdmin, claims.ImpersonatedBy)

	code, body = s.do(t, http.MethodPost, "/api/trading-accounts/"+accountID+"/transfer", token,
		gin.H{"amount": 5, "direction": "deposit", "skip_pin_verification": true})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "5", body["wallet_balance"])

	var impersonations int
	for _, l := range s.mem.AdminLogs() {
		if l.Action == domain.ActionLoginAsUser {
			impersonations++
			assert.Equal(t, "ticket 981", l.Reason)
		}
	}
	assert.Equal(t, 1, impersonations)
}

func TestGetWalletServedFromCache(t *testing.T) {
	mem := store.NewMemory()
	svc := ledger.NewService(ledger.Deps{Store: mem})
	rdb, mock := redismock.NewClientMock()

	cached, err := json.Marshal(domain.Wallet{ID: 3, UserID: userID, Balance: decimal.NewFromInt(42)})
	require.NoError(t, err)
	mock.ExpectGet(utils.WalletKey(userID)).SetVal(string(cached))

	r := gin.New()
	RegisterRoutes(r, svc, rdb, RouteConfig{JWTSecret: jwtSecret})
	s := &testServer{router: r, mem: mem, svc: svc}

	code, body := s.do(t, http.MethodGet, "/api/wallet", userToken(t, userID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["cached"])
	assert.Equal(t, "42", body["wallet"].(map[string]any)["balance"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferInvalidatesCachedReads(t *testing.T) {
	mem := store.NewMemory()
	mem.PutAccountType(domain.AccountType{ID: 1, Name: "Standard", MinDeposit: decimal.NewFromInt(10), Leverage: 100, IsActive: true})
	svc := ledger.NewService(ledger.Deps{Store: mem})
	ctx := context.Background()
	_, err := svc.AddFunds(ctx, superAdmin, userID, decimal.NewFromInt(50), "bank wire")
	require.NoError(t, err)
	opening, err := svc.CreateAccount(ctx, userID, 1, "1234")
	require.NoError(t, err)
	accountID := opening.Account.AccountID

	rdb, mock := redismock.NewClientMock()
	history := utils.TxHistoryKey(userID, 1, 20)
	adminPage := utils.AdminAccountsKey(1, 20)
	mock.ExpectDel(utils.WalletKey(userID), utils.AccountKey(accountID)).SetVal(2)
	mock.ExpectScan(0, utils.TxHistoryPrefix(userID)+"*", 100).SetVal([]string{history}, 0)
	mock.ExpectDel(history).SetVal(1)
	mock.ExpectScan(0, utils.AdminAccountsPrefix+"*", 100).SetVal([]string{adminPage}, 0)
	mock.ExpectDel(adminPage).SetVal(1)

	r := gin.New()
	RegisterRoutes(r, svc, rdb, RouteConfig{JWTSecret: jwtSecret})
	s := &testServer{router: r, mem: mem, svc: svc}

	code, body := s.do(t, http.MethodPost, "/api/trading-accounts/"+accountID+"/transfer", userToken(t, userID),
		gin.H{"amount": 5, "direction": "deposit", "pin": "1234"})
	require.Equal(t, http.StatusOK, code, body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: amount", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("account: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrWrongPIN, http.StatusUnauthorized},
		{domain.ErrAccountInactive, http.StatusForbidden},
		{domain.ErrPINLocked, http.StatusLocked},
		{fmt.Errorf("%w: wallet", domain.ErrInsufficientFunds), http.StatusUnprocessableEntity},
		{domain.ErrInsufficientCredit, http.StatusUnprocessableEntity},
		{domain.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := errorStatus(tt.err, "fallback")
		assert.Equal(t, tt.want, status, tt.err.Error())
	}
}
