// Package auth wraps the DealScope authentication endpoints. Successful logins are written into the
// client's credential store so later calls carry the session.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/dealscope-client/apiclient"
	"github.com/jrsteele09/dealscope-client/token"
	"github.com/rs/zerolog"
)

const basePath = "/api/v1/auth"

type Service struct {
	client    *apiclient.Client
	validator *Validator
	logger    zerolog.Logger
}

func NewService(client *apiclient.Client, logger zerolog.Logger) *Service {
	return &Service{
		client:    client,
		validator: NewValidator(),
		logger:    logger,
	}
}

// Login starts a password login. If the account has MFA enabled the result carries an MFA token and no
// session is stored.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := s.validator.ValidateUserCredentials(email, password); err != nil {
		return nil, fmt.Errorf("[Service Login] %w", err)
	}
	resp, err := apiclient.Send[token.Response](ctx, s.client, http.MethodPost, basePath+"/login",
		LoginRequest{Email: strings.TrimSpace(email), Password: password}, apiclient.Request{SkipAuth: true})
	if err != nil {
		return nil, err
	}
	if resp.MFARequired {
		return &LoginResult{MFARequired: true, MFAToken: resp.MFAToken}, nil
	}
	s.store(resp)
	return &LoginResult{}, nil
}

// LoginMFA completes a login that Login reported as MFARequired.
func (s *Service) LoginMFA(ctx context.Context, mfaToken, code string) error {
	if mfaToken == "" {
		return fmt.Errorf("[Service LoginMFA] mfa token: %w", MissingTokenErr)
	}
	if err := s.validator.ValidateMFACode(code); err != nil {
		return fmt.Errorf("[Service LoginMFA] %w", err)
	}
	resp, err := apiclient.Send[token.Response](ctx, s.client, http.MethodPost, basePath+"/login/mfa",
		MFALoginRequest{MFAToken: mfaToken, Code: strings.TrimSpace(code)}, apiclient.Request{SkipAuth: true})
	if err != nil {
		return err
	}
	s.store(resp)
	return nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if err := s.validator.ValidateEmail(req.Email); err != nil {
		return fmt.Errorf("[Service Register] %w", err)
	}
	if err := s.validator.ValidateNewPassword(req.Password); err != nil {
		return fmt.Errorf("[Service Register] %w", err)
	}
	req.Email = strings.TrimSpace(req.Email)
	resp, err := apiclient.Send[token.Response](ctx, s.client, http.MethodPost, basePath+"/register", req,
		apiclient.Request{SkipAuth: true})
	if err != nil {
		if apiclient.IsNoContent(err) {
			return nil
		}
		return err
	}
	s.store(resp)
	return nil
}

// Refresh renews the session through the client's shared refresher.
func (s *Service) Refresh(ctx context.Context) bool {
	return s.client.Refresh(ctx)
}

// Logout ends the session on the server. Local credentials are cleared even if the call fails.
func (s *Service) Logout(ctx context.Context) error {
	defer s.client.Store().Clear()

	if _, err := s.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: basePath + "/logout", SkipAuth: true}); err != nil {
		s.logger.Warn().Err(err).Msg("logout request failed, clearing local session anyway")
		return err
	}
	return nil
}

// Me returns the signed-in user. A dead session yields a session-expired error without firing the
// client's expiry hook.
func (s *Service) Me(ctx context.Context) (*User, error) {
	return apiclient.Get[User](ctx, s.client, basePath+"/me", apiclient.Request{SoftAuth: true})
}

func (s *Service) IsAuthenticated(ctx context.Context) bool {
	_, err := s.Me(ctx)
	return err == nil
}

// ForgotPassword asks the backend to email a reset link and returns its acknowledgement message.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	if err := s.validator.ValidateEmail(email); err != nil {
		return "", fmt.Errorf("[Service ForgotPassword] %w", err)
	}
	resp, err := apiclient.Send[message](ctx, s.client, http.MethodPost, basePath+"/forgot-password",
		map[string]string{"email": strings.TrimSpace(email)}, apiclient.Request{SkipAuth: true})
	if err != nil {
		if apiclient.IsNoContent(err) {
			return "", nil
		}
		return "", err
	}
	return resp.Message, nil
}

func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return fmt.Errorf("[Service ResetPassword] reset token: %w", MissingTokenErr)
	}
	return s.call(ctx, http.MethodPost, basePath+"/reset-password",
		map[string]string{"token": resetToken, "new_password": newPassword}, true)
}

func (s *Service) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return fmt.Errorf("[Service ChangePassword] %w", EmptyPasswordErr)
	}
	if err := s.validator.ValidateNewPassword(newPassword); err != nil {
		return fmt.Errorf("[Service ChangePassword] %w", err)
	}
	return s.call(ctx, http.MethodPost, basePath+"/change-password",
		map[string]string{"current_password": currentPassword, "new_password": newPassword}, false)
}

func (s *Service) VerifyEmail(ctx context.Context, verifyToken string) error {
	if verifyToken == "" {
		return fmt.Errorf("[Service VerifyEmail] verification token: %w", MissingTokenErr)
	}
	return s.call(ctx, http.MethodPost, basePath+"/verify-email", map[string]string{"token": verifyToken}, true)
}

func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	out, err := apiclient.Get[sessionList](ctx, s.client, basePath+"/sessions", apiclient.Request{})
	if err != nil {
		if apiclient.IsNoContent(err) {
			return nil, nil
		}
		return nil, err
	}
	return out.Sessions, nil
}

func (s *Service) RevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("[Service RevokeSession] %w", MissingSessionErr)
	}
	return s.call(ctx, http.MethodDelete, basePath+"/sessions/"+url.PathEscape(sessionID), nil, false)
}

// RevokeOtherSessions signs out every device except this one.
func (s *Service) RevokeOtherSessions(ctx context.Context) error {
	return s.call(ctx, http.MethodDelete, basePath+"/sessions", nil, false)
}

// SetupMFA starts TOTP enrolment. The returned secret must be confirmed with VerifyMFA.
func (s *Service) SetupMFA(ctx context.Context) (*MFASetup, error) {
	return apiclient.Send[MFASetup](ctx, s.client, http.MethodPost, basePath+"/mfa/setup", nil, apiclient.Request{})
}

func (s *Service) VerifyMFA(ctx context.Context, code string) error {
	if err := s.validator.ValidateMFACode(code); err != nil {
		return fmt.Errorf("[Service VerifyMFA] %w", err)
	}
	return s.call(ctx, http.MethodPost, basePath+"/mfa/verify", map[string]string{"code": strings.TrimSpace(code)}, false)
}

func (s *Service) DisableMFA(ctx context.Context, password, code string) error {
	if password == "" {
		return fmt.Errorf("[Service DisableMFA] %w", EmptyPasswordErr)
	}
	if err := s.validator.ValidateMFACode(code); err != nil {
		return fmt.Errorf("[Service DisableMFA] %w", err)
	}
	return s.call(ctx, http.MethodPost, basePath+"/mfa/disable",
		map[string]string{"password": password, "code": strings.TrimSpace(code)}, false)
}

func (s *Service) call(ctx context.Context, method, path string, body any, skipAuth bool) error {
	_, err := s.client.Do(ctx, apiclient.Request{Method: method, Path: path, Body: body, SkipAuth: skipAuth})
	return err
}

// store keeps whatever tokens the backend returned. Web sessions may be cookie-only, in which case there
// is nothing to keep.
func (s *Service) store(resp *token.Response) {
	if !resp.HasAccessToken() {
		s.logger.Debug().Msg("token response without access token, relying on session cookies")
		return
	}
	s.client.Store().Set(resp.OAuth2())
}
