package crm

import (
	"context"
	"fmt"
	"net/http"
)

const notificationsPath = "/user/notifications/"

func decodeNotification(m map[string]any) Notification {
	return Notification{
		ID:        integer(m, "id"),
		UserID:    integer(m, "user_id", "user"),
		Text:      str(m, "text", "message"),
		CreatedAt: str(m, "created_at"),
		IsRead:    boolean(m, "is_read"),
	}
}

var notificationsOp = listOp[Notification]{
	name:     "notifications.list",
	path:     notificationsPath,
	policy:   Fallback,
	decode:   decodeNotification,
	fixtures: func() []Notification { return []Notification{} },
}

// Notifications polls the notification feed; a failed poll yields an empty feed.
func (s *Service) Notifications(ctx context.Context) ([]Notification, error) {
	return runList(ctx, s, notificationsOp, s.ownerQuery())
}

// UnreadCount counts notifications not yet read.
func UnreadCount(ns []Notification) int {
	n := 0
	for _, x := range ns {
		if !x.IsRead {
			n++
		}
	}
	return n
}

func (s *Service) MarkNotificationRead(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	path := itemPath(notificationsPath, id) + "read/"
	if _, err := s.client.JSON(ctx, http.MethodPost, path, s.ownerQuery(), nil); err != nil {
		return translate("notification.read", err)
	}
	return nil
}
