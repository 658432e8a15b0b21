package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "breachledger/pkg/domain"
	"breachledger/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := uuid.New()
	orgID := uuid.New()

	var gotUser id.UserID
	var gotOrg id.OrganizationID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = requestcontext.UserID(r.Context())
		gotOrg = requestcontext.OrganizationID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("valid token populates context", func(t *testing.T) {
		v := &stubValidator{claims: &JWTClaims{UserID: userID.String(), OrganizationID: orgID.String()}}
		req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
		req.Header.Set("Authorization", "Bearer abc.def.ghi")
		rr := httptest.NewRecorder()

		RequireAuth(v, logger)(next).ServeHTTP(rr, req)

		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "abc.def.ghi", v.seen)
		assert.Equal(t, id.UserID(userID), gotUser)
		assert.Equal(t, id.OrganizationID(orgID), gotOrg)
	})

	t.Run("missing header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		RequireAuth(&stubValidator{}, logger)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/incidents", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`, rr.Body.String())
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rr := httptest.NewRecorder()

		RequireAuth(&stubValidator{err: errors.New("expired")}, logger)(next).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid or expired token")
	})

	t.Run("malformed organization claim", func(t *testing.T) {
		v := &stubValidator{claims: &JWTClaims{UserID: userID.String(), OrganizationID: "acme"}}
		req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rr := httptest.NewRecorder()

		RequireAuth(v, logger)(next).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
