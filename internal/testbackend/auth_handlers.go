package testbackend

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type tokenBody struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	MFARequired  bool   `json:"mfa_required,omitempty"`
	MFAToken     string `json:"mfa_token,omitempty"`
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{
			{"loc": []string{"body"}, "msg": "invalid json"},
		}})
		return
	}

	b.mu.Lock()
	password, ok := b.users[strings.ToLower(req.Email)]
	b.mu.Unlock()
	if !ok || password != req.Password {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
		return
	}
	if strings.EqualFold(req.Email, MFAEmail) {
		WriteJSON(w, http.StatusOK, tokenBody{MFARequired: true, MFAToken: "mfa-" + uuid.NewString()})
		return
	}
	b.issueSession(w, http.StatusOK)
}

func (b *Backend) handleLoginMFA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MFAToken string `json:"mfa_token"`
		Code     string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !strings.HasPrefix(req.MFAToken, "mfa-") {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"detail": map[string]string{"msg": "Invalid MFA token", "code": "mfa_invalid"}})
		return
	}
	if req.Code != MFACode {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid verification code"})
		return
	}
	b.issueSession(w, http.StatusOK)
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	_, exists := b.users[strings.ToLower(req.Email)]
	if !exists {
		b.users[strings.ToLower(req.Email)] = req.Password
	}
	b.mu.Unlock()

	if exists {
		w.WriteHeader(http.StatusConflict)
		return
	}
	b.issueSession(w, http.StatusCreated)
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
	if b.FailRefresh.Load() {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Refresh token expired"})
		return
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	presented := req.RefreshToken
	if presented == "" {
		c, err := r.Cookie(RefreshCookie)
		if err != nil {
			WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Missing refresh token"})
			return
		}
		presented = c.Value
		if !b.csrfValid(r) {
			WriteJSON(w, http.StatusForbidden, map[string]any{"error": map[string]string{"code": "csrf_invalid", "message": "missing or invalid csrf token"}})
			return
		}
	}

	b.mu.Lock()
	valid := b.refresh[presented]
	delete(b.refresh, presented)
	b.mu.Unlock()
	if !valid {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Refresh token reused or revoked"})
		return
	}

	b.issueSession(w, http.StatusOK)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{AccessCookie, RefreshCookie, CSRFCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"id":             "user-1",
		"email":          TestEmail,
		"full_name":      "Test Investor",
		"email_verified": true,
		"mfa_enabled":    false,
	})
}

func (b *Backend) csrfValid(r *http.Request) bool {
	c, err := r.Cookie(CSRFCookie)
	if err != nil || c.Value == "" {
		return false
	}
	return r.Header.Get(CSRFHeader) == c.Value
}

// issueSession rotates every credential: new access, refresh and csrf tokens.
func (b *Backend) issueSession(w http.ResponseWriter, status int) {
	b.mu.Lock()
	access := "access-" + uuid.NewString()
	refresh := "refresh-" + uuid.NewString()
	b.csrf = "csrf-" + uuid.NewString()
	b.access[access] = true
	b.refresh[refresh] = true
	csrfValue := b.csrf
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: access, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: refresh, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	http.SetCookie(w, &http.Cookie{Name: CSRFCookie, Value: csrfValue, Path: "/", SameSite: http.SameSiteLaxMode})

	WriteJSON(w, status, tokenBody{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    900,
	})
}
