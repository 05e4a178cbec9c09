package service

import (
	"context"
	"fmt"

	"github.com/formalys/formalys-server/internal/models"
	"github.com/formalys/formalys-server/internal/notification"
)

// Formality lifecycle methods
func (s *DefaultService) CreateFormality(ctx context.Context, userID string, req models.CreateFormalityRequest) (*models.FormalityDetail, error) {
	if !models.IsValidFormalityType(req.Type) {
		return nil, ErrInvalidFormalityType
	}

	formalist, err := s.resolveFormalist(ctx, req.FormalistID, userID)
	if err != nil {
		return nil, err
	}

	formality := &models.Formality{
		CompanyName:             req.CompanyName,
		Siren:                   req.Siren,
		Type:                    req.Type,
		Status:                  models.StatusFormalistProcessing,
		IsUrgent:                req.IsUrgent,
		RequiresTaxRegistration: req.RequiresTaxRegistration,
		TribunalID:              req.TribunalID,
		FormalistID:             formalist.ID,
		CreatedBy:               userID,
	}

	if err := s.repo.CreateFormality(ctx, formality, req.ClientIDs, "Création de la formalité."); err != nil {
		return nil, fmt.Errorf("error creating formality: %w", err)
	}

	detail, err := s.buildDetail(ctx, formality)
	if err != nil {
		return nil, err
	}

	s.notifyParticipants(ctx, detail, userID, notification.Notification{
		Subject:     fmt.Sprintf("Nouvelle formalité : %s", formality.CompanyName),
		Message:     fmt.Sprintf("Une formalité « %s » a été créée pour %s.", formality.Type, formality.CompanyName),
		Kind:        notification.KindModification,
		CompanyName: formality.CompanyName,
	})

	return detail, nil
}

func (s *DefaultService) ListFormalities(ctx context.Context, userID string) ([]models.FormalityDetail, error) {
	details, err := s.repo.ListFormalitiesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing formalities: %w", err)
	}

	return details, nil
}

func (s *DefaultService) GetFormality(ctx context.Context, userID string, formalityID int64) (*models.FormalityDetail, error) {
	formality, err := s.loadFormality(ctx, userID, formalityID)
	if err != nil {
		return nil, err
	}

	return s.buildDetail(ctx, formality)
}

func (s *DefaultService) UpdateFormality(ctx context.Context, userID string, formalityID int64, req models.UpdateFormalityRequest) (*models.FormalityDetail, error) {
	formality, err := s.loadFormality(ctx, userID, formalityID)
	if err != nil {
		return nil, err
	}

	// Status goes through the transition table, separately from field updates
	var statusChange *models.Status
	if req.Status != nil && *req.Status != formality.Status {
		switch models.CanTransition(formality.Status, *req.Status) {
		case models.TransitionRejected:
			return nil, ErrInvalidStatus
		case models.TransitionGuarded:
			return nil, ErrPaymentLinkRequired
		}
		statusChange = req.Status
	}

	fieldsChanged := false
	if req.CompanyName != nil && *req.CompanyName != formality.CompanyName {
		formality.CompanyName = *req.CompanyName
		fieldsChanged = true
	}
	if req.Siren != nil && *req.Siren != formality.Siren {
		formality.Siren = *req.Siren
		fieldsChanged = true
	}

	var historyEntries []string
	if req.FormalistID != nil && *req.FormalistID != formality.FormalistID {
		formalist, err := s.resolveFormalist(ctx, *req.FormalistID, userID)
		if err != nil {
			return nil, err
		}
		formality.FormalistID = formalist.ID
		fieldsChanged = true
		historyEntries = append(historyEntries,
			fmt.Sprintf("Formaliste assigné à %s %s.", formalist.FirstName, formalist.LastName))
	}
	if req.TribunalID != nil && (formality.TribunalID == nil || *req.TribunalID != *formality.TribunalID) {
		tribunal, err := s.repo.GetTribunalByID(ctx, *req.TribunalID)
		if err != nil {
			return nil, fmt.Errorf("error getting tribunal: %w", err)
		}
		if tribunal == nil {
			return nil, ErrFormalityNotFound
		}
		formality.TribunalID = req.TribunalID
		fieldsChanged = true
		historyEntries = append(historyEntries,
			fmt.Sprintf("Tribunal assigné : %s.", tribunal.Name))
	}

	if fieldsChanged {
		if err := s.repo.UpdateFormality(ctx, formality); err != nil {
			return nil, fmt.Errorf("error updating formality: %w", err)
		}
		for _, action := range historyEntries {
			entry := &models.HistoryEntry{FormalityID: formalityID, Action: action, AuthorID: &userID}
			if err := s.repo.AddHistory(ctx, entry); err != nil {
				return nil, fmt.Errorf("error recording history: %w", err)
			}
		}
	}

	if statusChange != nil {
		oldStatus := formality.Status
		action := fmt.Sprintf("Statut changé de %q à %q.", oldStatus.Label(), statusChange.Label())
		if err := s.repo.UpdateFormalityStatus(ctx, formalityID, *statusChange, action, &userID); err != nil {
			return nil, fmt.Errorf("error updating status: %w", err)
		}
		formality.Status = *statusChange

		detail, err := s.buildDetail(ctx, formality)
		if err != nil {
			return nil, err
		}

		s.notifyParticipants(ctx, detail, userID, notification.Notification{
			Subject:     fmt.Sprintf("Mise à jour du dossier %s", formality.CompanyName),
			Message:     fmt.Sprintf("Le statut de votre formalité est passé de « %s » à « %s ».", oldStatus.Label(), statusChange.Label()),
			Kind:        notification.KindStatusChange,
			CompanyName: formality.CompanyName,
			Meta: notification.Meta{
				OldStatus: oldStatus.Label(),
				NewStatus: statusChange.Label(),
			},
		})

		return detail, nil
	}

	return s.buildDetail(ctx, formality)
}

func (s *DefaultService) DeleteFormality(ctx context.Context, userID string, formalityID int64) error {
	formality, err := s.loadFormality(ctx, userID, formalityID)
	if err != nil {
		return err
	}

	detail, err := s.buildDetail(ctx, formality)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteFormality(ctx, formalityID); err != nil {
		return fmt.Errorf("error deleting formality: %w", err)
	}

	s.notifyParticipants(ctx, detail, userID, notification.Notification{
		Subject:     fmt.Sprintf("Suppression du dossier %s", formality.CompanyName),
		Message:     fmt.Sprintf("La formalité « %s » pour %s a été supprimée.", formality.Type, formality.CompanyName),
		Kind:        notification.KindModification,
		CompanyName: formality.CompanyName,
	})

	return nil
}

func (s *DefaultService) AddClients(ctx context.Context, userID string, formalityID int64, req models.AddClientsRequest) error {
	formality, err := s.loadFormality(ctx, userID, formalityID)
	if err != nil {
		return err
	}

	if err := s.repo.AddFormalityClients(ctx, formalityID, req.ClientIDs); err != nil {
		return fmt.Errorf("error adding clients: %w", err)
	}

	entry := &models.HistoryEntry{FormalityID: formalityID, Action: "Client(s) ajouté(s).", AuthorID: &userID}
	if err := s.repo.AddHistory(ctx, entry); err != nil {
		return fmt.Errorf("error recording history: %w", err)
	}

	detail, err := s.buildDetail(ctx, formality)
	if err != nil {
		return err
	}

	s.notifyParticipants(ctx, detail, userID, notification.Notification{
		Subject:     fmt.Sprintf("Mise à jour du dossier %s", formality.CompanyName),
		Message:     "De nouveaux clients ont été ajoutés à la formalité.",
		Kind:        notification.KindModification,
		CompanyName: formality.CompanyName,
	})

	return nil
}

func (s *DefaultService) RemoveClient(ctx context.Context, userID string, formalityID int64, clientID string) error {
	formality, err := s.loadFormality(ctx, userID, formalityID)
	if err != nil {
		return err
	}

	if clientID == userID {
		return ErrSelfRemoval
	}

	clients, err := s.repo.GetFormalityClients(ctx, formalityID)
	if err != nil {
		return fmt.Errorf("error getting clients: %w", err)
	}

	linked := false
	for _, c := range clients {
		if c.ID == clientID {
			linked = true
			break
		}
	}
	if !linked {
		return ErrClientNotLinked
	}
	if len(clients) <= 1 {
		return ErrLastClient
	}

	if err := s.repo.RemoveFormalityClient(ctx, formalityID, clientID); err != nil {
		return fmt.Errorf("error removing client: %w", err)
	}

	entry := &models.HistoryEntry{FormalityID: formalityID, Action: "Client supprimé.", AuthorID: &userID}
	if err := s.repo.AddHistory(ctx, entry); err != nil {
		return fmt.Errorf("error recording history: %w", err)
	}

	detail, err := s.buildDetail(ctx, formality)
	if err != nil {
		return err
	}

	s.notifyParticipants(ctx, detail, userID, notification.Notification{
		Subject:     fmt.Sprintf("Mise à jour du dossier %s", formality.CompanyName),
		Message:     "Un client a été retiré de la formalité.",
		Kind:        notification.KindModification,
		CompanyName: formality.CompanyName,
	})

	return nil
}

func (s *DefaultService) GetHistory(ctx context.Context, userID string, formalityID int64) ([]models.HistoryEntry, error) {
	if _, err := s.loadFormality(ctx, userID, formalityID); err != nil {
		return nil, err
	}

	entries, err := s.repo.GetHistory(ctx, formalityID)
	if err != nil {
		return nil, fmt.Errorf("error getting history: %w", err)
	}

	return entries, nil
}

// resolveFormalist returns the profile to assign as formalist. An explicit id
// must carry the formalist role. When none is requested, the configured
// default formalist is used, then the acting user if they are a formalist.
func (s *DefaultService) resolveFormalist(ctx context.Context, requestedID, actorID string) (*models.Profile, error) {
	if requestedID != "" {
		profile, err := s.repo.GetProfileByID(ctx, requestedID)
		if err != nil {
			return nil, fmt.Errorf("error getting formalist: %w", err)
		}
		if profile == nil {
			return nil, ErrProfileNotFound
		}
		if profile.Role != models.RoleFormalist {
			return nil, ErrNotAFormalist
		}
		return profile, nil
	}

	if s.defaultFormalistEmail != "" {
		profile, err := s.repo.GetProfileByEmail(ctx, s.defaultFormalistEmail)
		if err != nil {
			return nil, fmt.Errorf("error getting default formalist: %w", err)
		}
		if profile != nil && profile.Role == models.RoleFormalist {
			return profile, nil
		}
	}

	actor, err := s.repo.GetProfileByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("error getting profile: %w", err)
	}
	if actor != nil && actor.Role == models.RoleFormalist {
		return actor, nil
	}

	return nil, ErrNoFormalist
}

// loadFormality fetches the formality and enforces the caller's access
func (s *DefaultService) loadFormality(ctx context.Context, userID string, formalityID int64) (*models.Formality, error) {
	formality, err := s.repo.GetFormality(ctx, formalityID)
	if err != nil {
		return nil, fmt.Errorf("error getting formality: %w", err)
	}

	if formality == nil {
		return nil, ErrFormalityNotFound
	}

	hasAccess, err := s.repo.CheckFormalityAccess(ctx, formalityID, userID)
	if err != nil {
		return nil, fmt.Errorf("error checking formality access: %w", err)
	}

	if !hasAccess {
		return nil, ErrAccessDenied
	}

	return formality, nil
}

// buildDetail hydrates a formality with its formalist, clients and tribunal
func (s *DefaultService) buildDetail(ctx context.Context, formality *models.Formality) (*models.FormalityDetail, error) {
	detail := &models.FormalityDetail{
		Formality:     *formality,
		LastUpdatedAt: formality.UpdatedAt,
	}

	formalist, err := s.repo.GetProfileByID(ctx, formality.FormalistID)
	if err != nil {
		return nil, fmt.Errorf("error getting formalist: %w", err)
	}
	detail.Formalist = formalist

	clients, err := s.repo.GetFormalityClients(ctx, formality.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting clients: %w", err)
	}
	detail.Clients = clients

	if formality.TribunalID != nil {
		tribunal, err := s.repo.GetTribunalByID(ctx, *formality.TribunalID)
		if err != nil {
			return nil, fmt.Errorf("error getting tribunal: %w", err)
		}
		detail.Tribunal = tribunal
	}

	entries, err := s.repo.GetHistory(ctx, formality.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting history: %w", err)
	}
	if len(entries) > 0 && entries[0].Timestamp.After(detail.LastUpdatedAt) {
		detail.LastUpdatedAt = entries[0].Timestamp
	}

	return detail, nil
}

// participantEmails returns the formalist and linked clients of the detail,
// minus the acting user, deduplicated.
func participantEmails(detail *models.FormalityDetail, actorID string) []string {
	seen := make(map[string]bool)
	var emails []string

	add := func(id, email string) {
		if id == actorID || email == "" || seen[email] {
			return
		}
		seen[email] = true
		emails = append(emails, email)
	}

	if detail.Formalist != nil {
		add(detail.Formalist.ID, detail.Formalist.Email)
	}
	for _, client := range detail.Clients {
		add(client.ID, client.Email)
	}

	return emails
}

// notifyParticipants sends a best-effort notification to everyone involved in
// the formality except the acting user. Dispatch failures are logged, never
// propagated; the mutation already happened.
func (s *DefaultService) notifyParticipants(ctx context.Context, detail *models.FormalityDetail, actorID string, n notification.Notification) {
	n.Recipients = participantEmails(detail, actorID)
	if len(n.Recipients) == 0 {
		return
	}

	if _, err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Error("failed to send %s notification for formality %d: %v", n.Kind, detail.ID, err)
	}
}
