package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"quitpath/internal/httputil"
	"quitpath/internal/model"
	"quitpath/internal/session"
)

var now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

const testSecret = "k"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	return signedWith(t, testSecret, claims)
}

func signedWith(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	s, _ := GetSessionFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"user": userID, "token": s.Token})
}

func TestAuthMiddleware(t *testing.T) {
	valid := signed(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(time.Hour).Unix()})
	expired := signed(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(-time.Minute).Unix()})
	forged := signedWith(t, "attacker-chosen-key", jwt.MapClaims{"sub": "victim-42", "exp": now.Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		code   string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusOK, ""},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+valid) }, http.StatusOK, ""},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: valid}) }, http.StatusOK, ""},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized, httputil.ErrCodeUnauthorized},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, http.StatusUnauthorized, model.CodeTokenExpired},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not.a.jwt") }, http.StatusUnauthorized, model.CodeTokenInvalid},
		{"foreign key", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+forged) }, http.StatusUnauthorized, model.CodeTokenInvalid},
		{"foreign key cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: forged}) }, http.StatusUnauthorized, model.CodeTokenInvalid},
	}

	h := AuthMiddleware(session.NewVerifier(testSecret), func() time.Time { return now })(http.HandlerFunc(echoUser))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "u1", body["user"])
				assert.Equal(t, valid, body["token"])
				return
			}
			var resp httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	_, ok := GetUserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := chimw.RequestID(RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/posts/p1/comments", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.Equal(t, "/posts/p1/comments", fields["path"])
	assert.NotEmpty(t, fields["request_id"])
}
