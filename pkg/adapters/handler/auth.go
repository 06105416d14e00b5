package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/urlzip/urlzip/pkg/config"
)

const (
	oauthStateCookie = "oauthstate"
	googleUserInfo   = "https://www.googleapis.com/oauth2/v2/userinfo"
	tokenTTL         = 24 * time.Hour
)

type AuthHandler struct {
	oauthConfig  *oauth2.Config
	userInfoURL  string
	jwtSecret    []byte
	frontendURL  string
	isProduction bool
	logger       *slog.Logger
}

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func NewAuthHandler(cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL:  googleUserInfo,
		jwtSecret:    []byte(cfg.JWTSecret),
		frontendURL:  cfg.FrontendURL,
		isProduction: cfg.IsProduction(),
		logger:       logger,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.generateStateOauthCookie(w)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "login: state generation failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	oauthState, err := r.Cookie(oauthStateCookie)
	if err != nil {
		h.logger.WarnContext(ctx, "callback: missing oauthstate cookie", "error", err)
		http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		h.logger.WarnContext(ctx, "callback: invalid oauth state")
		http.Error(w, "invalid oauth google state", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(ctx, r.FormValue("code"))
	if err != nil {
		h.logger.ErrorContext(ctx, "callback: code exchange failed", "error", err)
		http.Error(w, "code exchange failed", http.StatusInternalServerError)
		return
	}

	googleUser, err := h.fetchUser(r, token)
	if err != nil {
		h.logger.ErrorContext(ctx, "callback: failed getting user info", "error", err)
		http.Error(w, "failed getting user info", http.StatusInternalServerError)
		return
	}

	tokenString, expiresAt, err := h.issueToken(googleUser.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "callback: failed signing JWT", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    tokenString,
		Expires:  expiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.InfoContext(ctx, "login successful", "user_id", googleUser.ID)
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) fetchUser(r *http.Request, token *oauth2.Token) (*GoogleUser, error) {
	client := h.oauthConfig.Client(r.Context(), token)
	resp, err := client.Get(h.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("userinfo: missing account id")
	}
	return &user, nil
}

// issueToken signs the owner token whose subject identifies the account.
func (h *AuthHandler) issueToken(subject string) (string, time.Time, error) {
	expiresAt := time.Now().Add(tokenTTL)
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	return signed, expiresAt, err
}

func (h *AuthHandler) generateStateOauthCookie(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}
