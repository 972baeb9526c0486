package services

import (
	"KidQuest/interfaces"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"context"
	"sync"
	"time"
)

// pushTimeout bounds one FCM call made after the request has returned.
const pushTimeout = 10 * time.Second

// PushMessage is the FCM part of a notification. Data values must be strings.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// NotificationService fans family events out to the websocket hub and FCM.
// Delivery failures are logged and never fail the calling operation.
// Pushes are sent in the background; Wait blocks until they are done.
// A nil *NotificationService drops everything.
type NotificationService struct {
	store  repositories.Store
	events interfaces.EventPublisher
	push   interfaces.PushSender
	clock  Clock
	log    *logger.Logger

	pending sync.WaitGroup
}

func NewNotificationService(store repositories.Store, events interfaces.EventPublisher, push interfaces.PushSender, clock Clock, log *logger.Logger) *NotificationService {
	return &NotificationService{store: store, events: events, push: push, clock: clock, log: log}
}

// NotifyFamily sends the event to every parent linked to childID; msg, if not nil,
// additionally goes out as a push to parents that registered a device token.
func (s *NotificationService) NotifyFamily(ctx context.Context, childID, eventType string, payload interface{}, msg *PushMessage) {
	if s == nil {
		return
	}

	parentIDs, err := s.store.Links().ParentIDs(ctx, childID)
	if err != nil {
		s.log.Warnw("cannot resolve family for notification", "child_id", childID, "event", eventType, "error", err)
		return
	}

	event := interfaces.FamilyEvent{
		Type:      eventType,
		ChildID:   childID,
		Payload:   payload,
		Timestamp: s.clock(),
	}

	for _, parentID := range parentIDs {
		if s.events != nil {
			s.events.Publish(parentID, event)
		}
		if msg == nil || s.push == nil {
			continue
		}

		parent, err := s.store.Parents().FindByID(ctx, parentID)
		if err != nil {
			s.log.Warnw("parent lookup failed", "parent_id", parentID, "error", err)
			continue
		}
		if parent.PushToken == "" {
			continue // Пропускаем отправку, если нет токена устройства
		}
		s.sendPush(ctx, parentID, parent.PushToken, eventType, *msg)
	}
}

// sendPush delivers off the request path. The push outlives ctx cancellation
// but keeps its values.
func (s *NotificationService) sendPush(ctx context.Context, parentID, token, eventType string, msg PushMessage) {
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.push.Send(pushCtx, token, msg.Title, msg.Body, msg.Data); err != nil {
			s.log.Warnw("push delivery failed", "parent_id", parentID, "event", eventType, "error", err)
		}
	}()
}

// Wait blocks until every push started so far has finished.
func (s *NotificationService) Wait() {
	if s == nil {
		return
	}
	s.pending.Wait()
}
