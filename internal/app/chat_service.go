package app

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/campus-events/internal/clock"
	"github.com/robertarktes/campus-events/internal/domain"
)

const chatHistoryLimit = 200

// ChatService gates an event's chat room to its organizer and registered
// attendees.
type ChatService struct {
	catalog EventCatalog
	regs    RegistrationRepository
	chat    ChatRepository
	clock   clock.Clock
}

func NewChatService(catalog EventCatalog, regs RegistrationRepository, chat ChatRepository, clk clock.Clock) *ChatService {
	return &ChatService{catalog: catalog, regs: regs, chat: chat, clock: clk}
}

func (s *ChatService) CanAccess(ctx context.Context, eventID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	event, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return false, err
	}
	if event.OwnerID == userID {
		return true, nil
	}
	return s.regs.HasRegistration(ctx, eventID, userID)
}

func (s *ChatService) Post(ctx context.Context, eventID, userID, userName, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, errors.Wrap(domain.ErrInvalidInput, "message is empty")
	}
	if err := s.authorize(ctx, eventID, userID); err != nil {
		return domain.ChatMessage{}, err
	}
	return s.chat.PostMessage(ctx, domain.ChatMessage{
		EventID:    eventID,
		SenderID:   userID,
		SenderName: userName,
		Text:       text,
		SentAt:     s.clock.Now(),
	})
}

func (s *ChatService) List(ctx context.Context, eventID, userID string) ([]domain.ChatMessage, error) {
	if err := s.authorize(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return s.chat.ListMessages(ctx, eventID, chatHistoryLimit)
}

func (s *ChatService) authorize(ctx context.Context, eventID, userID string) error {
	ok, err := s.CanAccess(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(domain.ErrForbidden, "chat is open to registered attendees only")
	}
	return nil
}
