package service

import (
	"context"
	"strings"

	"campusfeed/internal/featureflags"
	"campusfeed/internal/middleware"
	"campusfeed/internal/models"
	"campusfeed/internal/notifications"
	"campusfeed/internal/observability"
	"campusfeed/internal/repository"
	"campusfeed/internal/security"
	"campusfeed/internal/validation"
)

// FlagRealtimePush gates websocket delivery of new messages.
const FlagRealtimePush = "realtime_push"

// EventPublisher delivers realtime events to a user.
type EventPublisher interface {
	PublishEvent(ctx context.Context, userID uint, eventType string, payload any) error
}

// MessageService provides direct messaging between users.
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	events      EventPublisher
	flags       *featureflags.Manager
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	SenderID    uint
	ReceiverID  uint
	Content     string
	MessageType string
}

// NewMessageService returns a new MessageService. events and flags may be nil, which
// disables realtime push.
func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	events EventPublisher,
	flags *featureflags.Manager,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		events:      events,
		flags:       flags,
	}
}

// ChatList returns one summary per counterpart, most recent conversation first.
func (s *MessageService) ChatList(ctx context.Context, userID uint) ([]*models.ChatSummary, error) {
	chats, err := s.messageRepo.ChatList(ctx, userID)
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	return chats, nil
}

// UnreadTotal counts messages addressed to userID that have not been read.
func (s *MessageService) UnreadTotal(ctx context.Context, userID uint) (int64, error) {
	n, err := s.messageRepo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, models.NewDatabaseError(err)
	}
	return n, nil
}

// ChatMessages returns the conversation with otherID in send order and marks the
// counterpart's messages read.
func (s *MessageService) ChatMessages(ctx context.Context, userID, otherID uint) ([]*models.MessageView, error) {
	if otherID == 0 {
		return nil, models.NewValidationError("chat user id is required")
	}
	if _, err := s.messageRepo.MarkRead(ctx, userID, otherID); err != nil {
		return nil, models.NewDatabaseError(err)
	}
	msgs, err := s.messageRepo.Conversation(ctx, userID, otherID)
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	return msgs, nil
}

func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*models.MessageView, error) {
	if in.ReceiverID == 0 {
		return nil, models.NewValidationError("receiverId is required")
	}
	if in.ReceiverID == in.SenderID {
		return nil, models.NewValidationError("cannot send a message to yourself")
	}

	content := strings.TrimSpace(in.Content)
	if err := validation.ValidateLength("content", content, 1, validation.MaxMessageLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	messageType := strings.TrimSpace(in.MessageType)
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	if messageType != models.MessageTypeText {
		return nil, models.NewValidationError("unsupported message type")
	}

	if _, err := s.userRepo.GetByID(ctx, in.ReceiverID); err != nil {
		return nil, storeError(err, "user", in.ReceiverID)
	}

	view, err := s.messageRepo.Create(ctx, &models.Message{
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		Content:     security.Escape(content),
		MessageType: messageType,
	})
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	observability.MessagesSent.WithLabelValues(messageType).Inc()

	s.push(ctx, view)
	return view, nil
}

// MarkRead marks every unread message from chatUserID to userID as read.
func (s *MessageService) MarkRead(ctx context.Context, userID, chatUserID uint) (int64, error) {
	if chatUserID == 0 {
		return 0, models.NewValidationError("chatUserId is required")
	}
	n, err := s.messageRepo.MarkRead(ctx, userID, chatUserID)
	if err != nil {
		return 0, models.NewDatabaseError(err)
	}
	return n, nil
}

// push is best effort: polling stays authoritative, so failures are only logged.
func (s *MessageService) push(ctx context.Context, msg *models.MessageView) {
	if s.events == nil || !s.flags.Enabled(FlagRealtimePush, msg.ReceiverID) {
		observability.RealtimeDeliveries.WithLabelValues("skipped").Inc()
		return
	}
	if err := s.events.PublishEvent(ctx, msg.ReceiverID, notifications.EventMessageNew, msg); err != nil {
		observability.RealtimeDeliveries.WithLabelValues("failed").Inc()
		middleware.Logger.WarnContext(ctx, "realtime push failed",
			"receiver_id", msg.ReceiverID, "message_id", msg.ID, "error", err)
		return
	}
	observability.RealtimeDeliveries.WithLabelValues("published").Inc()
}
