package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func ownerEcho(t *testing.T, got *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticator_IssueParse(t *testing.T) {
	a := New("secret")

	tok, err := a.Issue("user-1", time.Hour)
	require.NoError(t, err)

	owner, err := a.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", owner)

	_, err = New("other-secret").Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_RejectsExpiredAndForeignAlg(t *testing.T) {
	a := New("secret")

	expired, err := a.Issue("user-1", -time.Minute)
	require.NoError(t, err)
	_, err = a.Parse(expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1", Issuer: issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Parse(none)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	a := New("secret")
	tok, err := a.Issue("user-42", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		prepare   func(r *http.Request)
		wantCode  int
		wantOwner string
	}{
		{
			name:     "anonymous passes without owner",
			prepare:  func(r *http.Request) {},
			wantCode: http.StatusNoContent,
		},
		{
			name:      "bearer header",
			prepare:   func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) },
			wantCode:  http.StatusNoContent,
			wantOwner: "user-42",
		},
		{
			name:      "cookie",
			prepare:   func(r *http.Request) { r.AddCookie(&http.Cookie{Name: cookieName, Value: tok}) },
			wantCode:  http.StatusNoContent,
			wantOwner: "user-42",
		},
		{
			name:     "garbage token",
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := "untouched"
			h := a.Middleware(ownerEcho(t, &got))

			req := httptest.NewRequest(http.MethodGet, "/Gallery", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusUnauthorized {
				require.Equal(t, "untouched", got)
				require.JSONEq(t, `"Invalid token."`, w.Body.String())
				return
			}
			require.Equal(t, tt.wantOwner, got)
		})
	}
}
