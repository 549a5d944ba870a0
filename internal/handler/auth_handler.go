// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/lendman/internal/auth"
	"github.com/hitoshi/lendman/internal/middleware"
	"github.com/hitoshi/lendman/internal/model"
)

// sessionCookieName はセッショントークンを保持するCookie名。
const sessionCookieName = "token"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, name string, role model.Role) (*auth.SignInResult, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
	// CrossSite はフロントエンドが別サイトで動作する場合true。
	// trueの場合SameSite=None（Secure必須）、falseの場合SameSite=Laxを使う。
	CrossSite bool
}

// AuthHandler はサインイン・サインアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// signInRequest はサインインリクエストのボディ。
type signInRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// signInResponse はサインインレスポンス。
type signInResponse struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	AlreadyExists bool   `json:"already_exists"`
}

// SignIn はサインインを処理し、セッショントークンをHTTP Only Cookieに設定する。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	result, err := h.service.SignIn(r.Context(), req.Email, req.Name, model.Role(req.Role))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(result.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.sameSite(),
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(signInResponse{
		Email:         result.Identity.Email,
		Name:          result.Identity.Name,
		Role:          string(result.Identity.Role),
		AlreadyExists: result.AlreadyExists,
	})
}

// Logout はセッションCookieを破棄する。
// トークンはサーバー側で失効できないため、Cookieの削除のみ行う。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.sameSite(),
	})

	slog.Info("user logged out")
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のサインインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"email": identity.Email,
		"name":  identity.Name,
		"role":  string(identity.Role),
	})
}

// sameSite はCookieのSameSite属性を返す。
func (h *AuthHandler) sameSite() http.SameSite {
	if h.config.CrossSite {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
