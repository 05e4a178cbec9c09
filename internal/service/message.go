package service

import (
	"context"
	"fmt"

	"github.com/formalys/formalys-server/internal/models"
	"github.com/formalys/formalys-server/internal/notification"
)

// Messaging methods
func (s *DefaultService) GetMessages(ctx context.Context, userID string, formalityID int64) ([]models.Message, error) {
	if _, err := s.loadFormality(ctx, userID, formalityID); err != nil {
		return nil, err
	}

	messages, err := s.repo.GetMessages(ctx, formalityID)
	if err != nil {
		return nil, fmt.Errorf("error getting messages: %w", err)
	}

	return messages, nil
}

func (s *DefaultService) SendMessage(ctx context.Context, userID string, formalityID int64, req models.SendMessageRequest) (*models.Message, error) {
	formality, err := s.loadFormality(ctx, userID, formalityID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		FormalityID: formalityID,
		SenderID:    userID,
		Content:     req.Content,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("error creating message: %w", err)
	}

	detail, err := s.buildDetail(ctx, formality)
	if err != nil {
		return nil, err
	}

	s.notifyParticipants(ctx, detail, userID, notification.Notification{
		Subject:     fmt.Sprintf("Nouveau message : %s", formality.CompanyName),
		Message:     "Un nouveau message a été publié sur votre formalité.",
		Kind:        notification.KindModification,
		CompanyName: formality.CompanyName,
	})

	return message, nil
}

func (s *DefaultService) MarkMessagesRead(ctx context.Context, userID string, formalityID int64) error {
	if _, err := s.loadFormality(ctx, userID, formalityID); err != nil {
		return err
	}

	if err := s.repo.MarkMessagesRead(ctx, formalityID, userID); err != nil {
		return fmt.Errorf("error marking messages read: %w", err)
	}

	return nil
}

func (s *DefaultService) GetUnreadMessages(ctx context.Context, userID string) ([]models.Message, error) {
	messages, err := s.repo.GetUnreadMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting unread messages: %w", err)
	}

	return messages, nil
}
