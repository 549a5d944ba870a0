package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/lendman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusCollector   middleware.StatusRecorder
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 融資商品
	LoanService LoanServiceInterface

	// 申込
	ApplicationService ApplicationServiceInterface

	// 決済
	PaymentService PaymentServiceInterface

	// 通知
	NotificationService NotificationServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → RateLimit(General) → CSRF
//
// 認証ルート（/auth/signin, /auth/logout）、ヘルスチェック、決済コールバックは
// セッションミドルウェアの外に配置する。決済コールバックは署名検証で認証する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに適用するミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusCollector))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	loanHandler := NewLoanHandler(deps.LoanService)
	appHandler := NewApplicationHandler(deps.ApplicationService)
	paymentHandler := NewPaymentHandler(deps.PaymentService)
	notifHandler := NewNotificationHandler(deps.NotificationService)

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Post("/auth/signin", authHandler.SignIn)
	r.Post("/auth/logout", authHandler.Logout)

	// 決済コールバック（署名認証）
	r.Post("/api/payments/confirm", paymentHandler.Confirm)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/auth/me", authHandler.Me)
		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// 融資商品管理
		r.Route("/api/loans", func(r chi.Router) {
			r.Get("/", loanHandler.ListLoans)
			r.Post("/", loanHandler.CreateLoan)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", loanHandler.GetLoan)
				r.Patch("/", loanHandler.UpdateLoan)
				r.Delete("/", loanHandler.DeleteLoan)
			})
		})

		// 融資申込
		r.Route("/api/applications", func(r chi.Router) {
			// POST /api/applications - 申込作成（申込専用レート制限を追加）
			r.With(deps.RateLimiter.ApplyMiddleware()).Post("/", appHandler.CreateApplication)

			r.Get("/", appHandler.ListApplications)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", appHandler.GetApplication)
				r.Patch("/status", appHandler.UpdateApplicationStatus)
				r.Delete("/", appHandler.CancelApplication)
			})
		})

		// 決済
		r.Post("/api/payments/checkout", paymentHandler.Checkout)

		// 通知
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notifHandler.ListNotifications)
			r.Post("/read-all", notifHandler.MarkAllNotificationsRead)

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/read", notifHandler.MarkNotificationRead)
				r.Delete("/", notifHandler.DeleteNotification)
			})
		})
	})

	return r
}
