package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/lendman/internal/middleware"
	"github.com/hitoshi/lendman/internal/model"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	ListForUser(ctx context.Context, identity *model.Identity) ([]*model.Notification, error)
	MarkRead(ctx context.Context, identity *model.Identity, id string) (int64, error)
	MarkAllRead(ctx context.Context, identity *model.Identity) (int64, error)
	Delete(ctx context.Context, identity *model.Identity, id string) (int64, error)
}

// NotificationHandler は通知のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationServiceInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// notificationResponse は通知のAPIレスポンス。
type notificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Path      string    `json:"path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// ListNotifications は自分宛の通知一覧を新しい順で返す。
// GET /api/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	notifications, err := h.service.ListForUser(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, notificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			Type:      string(n.Type),
			Path:      n.Path,
			Timestamp: n.Timestamp,
			Read:      n.Read,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// MarkNotificationRead は通知を既読にする。冪等。
// PATCH /api/notifications/{id}/read
func (h *NotificationHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id := chi.URLParam(r, "id")

	modified, err := h.service.MarkRead(r.Context(), identity, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCountResponse(w, "modified", modified)
}

// MarkAllNotificationsRead は自分宛の全未読通知を既読にする。
// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	modified, err := h.service.MarkAllRead(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCountResponse(w, "modified", modified)
}

// DeleteNotification は通知を削除する。受信者本人または管理者のみ。
// DELETE /api/notifications/{id}
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id := chi.URLParam(r, "id")

	deleted, err := h.service.Delete(r.Context(), identity, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCountResponse(w, "deleted", deleted)
}
