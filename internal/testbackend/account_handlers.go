package testbackend

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const (
	ResetToken  = "reset-token-1"
	VerifyToken = "verify-token-1"
)

func (b *Backend) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusAccepted, map[string]string{"message": "If the account exists, a reset email has been sent."})
}

func (b *Backend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Token != ResetToken {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid or expired reset token"})
		return
	}
	if len(req.NewPassword) < 8 {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{
			{"loc": []string{"body", "new_password"}, "msg": "ensure this value has at least 8 characters"},
		}})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset."})
}

func (b *Backend) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Token != VerifyToken {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid verification token"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Email verified."})
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.users[TestEmail] != req.CurrentPassword {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Current password is incorrect"})
		return
	}
	b.users[TestEmail] = req.NewPassword
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleListSessions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	ids := append([]string(nil), b.sessions...)
	b.mu.Unlock()

	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]any{
			"id":             id,
			"user_agent":     "dealscope-test",
			"ip_address":     "127.0.0.1",
			"created_at":     "2026-01-01T10:00:00Z",
			"last_active_at": "2026-01-02T10:00:00Z",
			"current":        id == "sess-current",
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (b *Backend) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.sessions {
		if s == id {
			b.sessions = append(b.sessions[:i], b.sessions[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
}

func (b *Backend) handleRevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.sessions = []string{"sess-current"}
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"secret":       "JBSWY3DPEHPK3PXP",
		"otpauth_url":  "otpauth://totp/DealScope:investor@example.com?secret=JBSWY3DPEHPK3PXP&issuer=DealScope",
		"backup_codes": []string{"aaaa-bbbb", "cccc-dddd"},
	})
}

func (b *Backend) handleMFAVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Code != MFACode {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid verification code"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"mfa_enabled": true})
}

func (b *Backend) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Code != MFACode {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid verification code"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
