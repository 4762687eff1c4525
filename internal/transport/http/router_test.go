package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sentinelhive/internal/bootstrap"
	"sentinelhive/internal/cache"
	"sentinelhive/internal/config"
	"sentinelhive/internal/model"
	"sentinelhive/internal/pkg/token"
)

// newTestApp wires both routers around one shared database and denylist,
// mirroring a deployment where client-api and db-api share state.
func newTestApp(t *testing.T) (*gin.Engine, *gin.Engine) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.DataRecord{}, &model.AuditEvent{}))

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{
		UserID:       "admin",
		PasswordHash: string(hash),
		Role:         "admin",
	}).Error)

	cfg := &config.Config{}
	cfg.App.GinMode = gin.TestMode
	cfg.App.Env = "test"

	app := &bootstrap.App{
		Config:     cfg,
		Logger:     zap.NewNop(),
		DB:         db,
		TokenCodec: token.NewCodec("test-secret", time.Hour),
		Denylist:   cache.NewMemoryDenylist(),
		StartedAt:  time.Now(),
	}
	return NewClientRouter(app), NewDBRouter(app)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body, bearer string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	parsed := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec, parsed
}

func login(t *testing.T, clientRouter *gin.Engine, userID, password string) string {
	t.Helper()

	rec, body := doJSON(t, clientRouter, http.MethodPost, "/auth/login",
		fmt.Sprintf(`{"user_id":%q,"password":%q}`, userID, password), "")
	require.Equal(t, http.StatusOK, rec.Code)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestLoginSuccessAndFailure(t *testing.T) {
	t.Parallel()

	clientRouter, _ := newTestApp(t)

	login(t, clientRouter, "admin", "admin")

	rec, body := doJSON(t, clientRouter, http.MethodPost, "/auth/login",
		`{"user_id":"admin","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", body["error"])

	// Unknown user must produce the exact same body as wrong password.
	rec2, body2 := doJSON(t, clientRouter, http.MethodPost, "/auth/login",
		`{"user_id":"nobody","password":"admin"}`, "")
	assert.Equal(t, rec.Code, rec2.Code)
	assert.Equal(t, body, body2)
}

func TestIngestEndToEnd(t *testing.T) {
	t.Parallel()

	clientRouter, dbRouter := newTestApp(t)
	tok := login(t, clientRouter, "admin", "admin")

	rec, body := doJSON(t, dbRouter, http.MethodPost, "/data", `{"k":"v"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["id"])
	assert.Equal(t, false, body["deduplicated"])

	// Same body again: idempotent, same id.
	rec, body = doJSON(t, dbRouter, http.MethodPost, "/data", `{"k":"v"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["id"])
	assert.Equal(t, true, body["deduplicated"])

	// Different body: new id.
	rec, body = doJSON(t, dbRouter, http.MethodPost, "/data", `{"k":"w"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["id"])

	rec, body = doJSON(t, dbRouter, http.MethodGet, "/data/1", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"k":"v"}`, body["content"])

	rec, _ = doJSON(t, dbRouter, http.MethodGet, "/data/999", "", tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestRequiresAuth(t *testing.T) {
	t.Parallel()

	clientRouter, dbRouter := newTestApp(t)

	rec, _ := doJSON(t, dbRouter, http.MethodPost, "/data", `{"k":"v"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, dbRouter, http.MethodPost, "/data", `{"k":"v"}`, "forged.0.deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token with one signature character flipped must be rejected.
	tok := login(t, clientRouter, "admin", "admin")
	last := tok[len(tok)-1]
	flipped := byte('a')
	if last == 'a' {
		flipped = 'b'
	}
	rec, _ = doJSON(t, dbRouter, http.MethodPost, "/data", `{"k":"v"}`, tok[:len(tok)-1]+string(flipped))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIngestRejectsBadPayload(t *testing.T) {
	t.Parallel()

	clientRouter, dbRouter := newTestApp(t)
	tok := login(t, clientRouter, "admin", "admin")

	rec, _ := doJSON(t, dbRouter, http.MethodPost, "/data", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, dbRouter, http.MethodPost, "/data", `{"broken":`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutRevokesAcrossRouters(t *testing.T) {
	t.Parallel()

	clientRouter, dbRouter := newTestApp(t)
	tok := login(t, clientRouter, "admin", "admin")

	rec, body := doJSON(t, clientRouter, http.MethodGet, "/auth/check?token="+tok, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", body["status"])

	rec, _ = doJSON(t, clientRouter, http.MethodPost, "/auth/logout", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, clientRouter, http.MethodGet, "/auth/check?token="+tok, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "revoked", body["status"])

	rec, _ = doJSON(t, dbRouter, http.MethodPost, "/data", `{"k":"v"}`, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	clientRouter, _ := newTestApp(t)

	rec, body := doJSON(t, clientRouter, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-api", body["service"])
}
