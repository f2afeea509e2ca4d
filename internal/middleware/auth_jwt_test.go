package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignVerifyJWT(t *testing.T) {
	t.Parallel()

	token, err := SignJWT("secret", TokenClaims{Sub: "user-1", Role: RoleAdmin, Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Sub != "user-1" || claims.Role != RoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := VerifyJWT("other", token); err == nil {
		t.Fatal("expected signature error")
	}

	expired, _ := SignJWT("secret", TokenClaims{Sub: "user-1", Exp: time.Now().Add(-time.Minute).Unix()})
	if _, err := VerifyJWT("secret", expired); err == nil {
		t.Fatal("expected expiry error")
	}

	anonymous, _ := SignJWT("secret", TokenClaims{Exp: time.Now().Add(time.Hour).Unix()})
	if _, err := VerifyJWT("secret", anonymous); err == nil {
		t.Fatal("expected error for token without subject")
	}
}

func TestAuthJWT(t *testing.T) {
	t.Parallel()

	var gotUser, gotRole, gotLang string
	h := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotLang = LanguageFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header = %d, want 401", rec.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error.Code != "unauthorized" {
		t.Fatalf("body = %s", rec.Body.String())
	}

	token, _ := SignJWT("secret", TokenClaims{Sub: "user-7", Role: "member", Language: "id"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid token = %d, want 204", rec.Code)
	}
	if gotUser != "user-7" || gotRole != "member" || gotLang != "id" {
		t.Fatalf("context = %q %q %q", gotUser, gotRole, gotLang)
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	token, _ := SignJWT("secret", TokenClaims{Sub: "user-7", Role: "member"})
	adminToken, _ := SignJWT("secret", TokenClaims{Sub: "ops", Role: RoleAdmin})
	h := AuthJWT("secret")(RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	for _, tc := range []struct {
		token string
		want  int
	}{
		{token: token, want: http.StatusForbidden},
		{token: adminToken, want: http.StatusNoContent},
	} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("status = %d, want %d", rec.Code, tc.want)
		}
	}
}
