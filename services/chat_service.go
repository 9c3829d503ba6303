package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "marketplace-service/errors"
	"marketplace-service/logger"
	"marketplace-service/models"
	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ConversationSummary is a conversation as seen by one participant.
type ConversationSummary struct {
	ID            string                `json:"_id"`
	With          *models.PublicProfile `json:"with,omitempty"`
	LastMessage   string                `json:"lastMessage"`
	LastSenderID  primitive.ObjectID    `json:"lastSenderId"`
	LastMessageAt time.Time             `json:"lastMessageAt"`
	ListingID     *primitive.ObjectID   `json:"listingId,omitempty"`
	Unread        int64                 `json:"unread"`
}

// ReadReceipt is pushed to a sender when their messages are read.
type ReadReceipt struct {
	ConversationID string `json:"conversationId"`
	ReaderID       string `json:"readerId"`
	Count          int64  `json:"count"`
}

// TypingSignal is relayed between chat participants.
type TypingSignal struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Typing         bool   `json:"typing"`
}

type ChatService interface {
	MessageSender
	Conversations(ctx context.Context, actor models.Actor) ([]ConversationSummary, error)
	History(ctx context.Context, actor models.Actor, otherUserID string, before *time.Time, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, actor models.Actor, otherUserID string) (int64, error)
	Typing(ctx context.Context, actor models.Actor, recipientID string, typing bool) error
}

type chatService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	pusher   Pusher
	now      func() time.Time
}

func NewChatService(messages repository.MessageRepository, users repository.UserRepository, pusher Pusher) ChatService {
	if pusher == nil {
		pusher = noopPusher{}
	}
	return &chatService{messages: messages, users: users, pusher: pusher, now: time.Now}
}

func (s *chatService) Send(ctx context.Context, actor models.Actor, req *models.SendMessageRequest) (*models.Message, error) {
	senderID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	req.Text = trimmed(req.Text)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	recipient, err := s.recipient(ctx, senderID, "recipientId", req.RecipientID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: models.ConversationKey(senderID, recipient),
		SenderID:       senderID,
		RecipientID:    recipient,
		Text:           req.Text,
		CreatedAt:      s.now().UTC(),
	}
	if req.ListingID != "" {
		listingID, err := parseFieldID("listingId", req.ListingID)
		if err != nil {
			return nil, err
		}
		msg.ListingID = &listingID
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.messages.TouchConversation(ctx, msg); err != nil {
		logger.FromContext(ctx).Error("Failed to update conversation",
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(err),
		)
	}

	s.pusher.Push(recipient.Hex(), PushMessageNew, msg)
	s.pusher.Push(senderID.Hex(), PushMessageNew, msg)
	return msg, nil
}

func (s *chatService) Conversations(ctx context.Context, actor models.Actor) ([]ConversationSummary, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	convs, err := s.messages.Conversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	profiles := map[primitive.ObjectID]*models.PublicProfile{}
	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summary := ConversationSummary{
			ID:            c.ID,
			LastMessage:   c.LastMessage,
			LastSenderID:  c.LastSenderID,
			LastMessageAt: c.LastMessageAt,
			ListingID:     c.ListingID,
			Unread:        c.Unread[userID.Hex()],
		}
		for _, p := range c.Participants {
			if p == userID {
				continue
			}
			profile, ok := profiles[p]
			if !ok {
				if u, err := s.users.FindByID(ctx, p); err == nil {
					pub := u.Public()
					profile = &pub
				}
				profiles[p] = profile
			}
			summary.With = profile
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *chatService) History(ctx context.Context, actor models.Actor, otherUserID string, before *time.Time, limit int) ([]models.Message, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	other, err := parsePathID(otherUserID, "User")
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.FindByConversation(ctx, models.ConversationKey(userID, other), before, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MarkRead marks everything otherUserID sent the caller as read and notifies
// the sender.
func (s *chatService) MarkRead(ctx context.Context, actor models.Actor, otherUserID string) (int64, error) {
	userID, err := actorID(actor)
	if err != nil {
		return 0, err
	}
	other, err := parsePathID(otherUserID, "User")
	if err != nil {
		return 0, err
	}
	key := models.ConversationKey(userID, other)
	n, err := s.messages.MarkRead(ctx, key, userID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	if err := s.messages.ResetUnread(ctx, key, userID); err != nil {
		logger.FromContext(ctx).Warn("Failed to reset unread counter", zap.String("conversation_id", key), zap.Error(err))
	}
	if n > 0 {
		s.pusher.Push(other.Hex(), PushMessageRead, ReadReceipt{ConversationID: key, ReaderID: userID.Hex(), Count: n})
	}
	return n, nil
}

func (s *chatService) Typing(ctx context.Context, actor models.Actor, recipientID string, typing bool) error {
	userID, err := actorID(actor)
	if err != nil {
		return err
	}
	recipient, err := primitive.ObjectIDFromHex(recipientID)
	if err != nil || recipient == userID {
		return apperrors.ValidationField("recipientId", "must be a valid id")
	}
	s.pusher.Push(recipient.Hex(), PushTyping, TypingSignal{
		ConversationID: models.ConversationKey(userID, recipient),
		UserID:         userID.Hex(),
		Typing:         typing,
	})
	return nil
}

// recipient resolves and checks the other party of a message.
func (s *chatService) recipient(ctx context.Context, senderID primitive.ObjectID, field, value string) (primitive.ObjectID, error) {
	id, err := parseFieldID(field, value)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if id == senderID {
		return primitive.NilObjectID, apperrors.ValidationField(field, "cannot message yourself")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return primitive.NilObjectID, apperrors.NotFound("Recipient not found")
		}
		return primitive.NilObjectID, err
	}
	if !user.IsActive {
		return primitive.NilObjectID, apperrors.NotFound("Recipient not found")
	}
	return id, nil
}
