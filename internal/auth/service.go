package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/counseldesk/backend/internal/config"
	apierrors "github.com/counseldesk/backend/internal/errors"
	"github.com/counseldesk/backend/internal/logger"
	"github.com/counseldesk/backend/internal/session"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Service handles both sign-in flows: the Google flow that produces the
// server session, and the Clio code exchange whose tokens go straight
// back to the browser.
type Service struct {
	googleConfig *oauth2.Config
	clio         config.ClioConfig
	sessions     *session.Manager
	httpClient   *http.Client
}

// NewService creates a new authentication service
func NewService(googleConfig *oauth2.Config, clio config.ClioConfig, sessions *session.Manager) *Service {
	return &Service{
		googleConfig: googleConfig,
		clio:         clio,
		sessions:     sessions,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// GoogleUserInfo represents the Google OAuth userinfo response
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// ClioTokens is the raw token pair from the Clio token endpoint. The
// server returns it to the caller and never stores it.
type ClioTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// GoogleAuthURL returns the Google OAuth authorization URL
func (s *Service) GoogleAuthURL(state string) string {
	return s.googleConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// ClioAuthURL returns the Clio OAuth authorization URL
func (s *Service) ClioAuthURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", s.clio.ClientID)
	q.Set("redirect_uri", s.clio.RedirectURI)
	if state != "" {
		q.Set("state", state)
	}
	return s.clio.AuthorizeURL + "?" + q.Encode()
}

// HandleGoogleCallback exchanges the authorization code, fetches the
// user's profile, and issues a session token carrying the Google
// access token.
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (string, *session.Session, error) {
	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		logger.Log.Warn("Google token exchange failed", zap.Error(err))
		return "", nil, apierrors.Unauthorized("failed to exchange authorization code")
	}

	userInfo, err := s.fetchGoogleUserInfo(ctx, token)
	if err != nil {
		return "", nil, err
	}

	sess := &session.Session{
		UserID:            userInfo.Sub,
		Email:             userInfo.Email,
		Name:              userInfo.Name,
		Picture:           userInfo.Picture,
		GoogleAccessToken: token.AccessToken,
	}

	signed, err := s.sessions.Issue(sess)
	if err != nil {
		return "", nil, apierrors.InternalError("failed to create session")
	}

	logger.Log.Info("Google sign-in completed",
		zap.String("user_id", userInfo.Sub),
		zap.String("email", userInfo.Email),
	)
	return signed, sess, nil
}

// fetchGoogleUserInfo fetches the signed-in user's profile
func (s *Service) fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := s.googleConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		return nil, apierrors.Upstream("google", 0, "failed to fetch user info")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.Upstream("google", resp.StatusCode, "failed to read user info response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apierrors.Upstream("google", resp.StatusCode, "user info request rejected").WithDetails(body)
	}

	var userInfo GoogleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, apierrors.Upstream("google", resp.StatusCode, "failed to parse user info")
	}
	return &userInfo, nil
}

// ExchangeClioCode performs the authorization-code exchange against the
// Clio token endpoint. The exchange is a form-encoded POST done
// server-side because it needs the client secret; the resulting token
// pair is returned for the browser to persist. Provider rejections
// (expired/used code, redirect mismatch) are relayed with the
// provider's own status and error payload.
func (s *Service) ExchangeClioCode(ctx context.Context, code string) (*ClioTokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", s.clio.ClientID)
	form.Set("client_secret", s.clio.ClientSecret)
	form.Set("redirect_uri", s.clio.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.clio.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apierrors.InternalError("failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Log.Warn("Clio token exchange request failed", zap.Error(err))
		return nil, apierrors.Upstream("clio", 0, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.Upstream("clio", resp.StatusCode, "failed to read token response")
	}

	if resp.StatusCode != http.StatusOK {
		logger.Log.Warn("Clio token exchange rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, apierrors.Upstream("clio", resp.StatusCode, "failed to fetch access token").WithDetails(body)
	}

	var tokens ClioTokens
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, apierrors.Upstream("clio", resp.StatusCode, "failed to parse token response")
	}
	if tokens.AccessToken == "" {
		return nil, apierrors.Upstream("clio", resp.StatusCode, "token response missing access_token").WithDetails(body)
	}

	return &tokens, nil
}

// SetHTTPClient overrides the HTTP client, used by tests
func (s *Service) SetHTTPClient(client *http.Client) {
	s.httpClient = client
}
