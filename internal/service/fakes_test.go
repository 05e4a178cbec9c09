package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/formalys/formalys-server/internal/models"
	"github.com/formalys/formalys-server/internal/notification"
	"github.com/formalys/formalys-server/internal/payment"
	"github.com/formalys/formalys-server/internal/repository"
)

// fakeRepository is an in-memory Repository for service tests
type fakeRepository struct {
	profiles  map[string]*models.Profile
	forms     map[int64]*models.Formality
	clients   map[int64][]string
	history   map[int64][]models.HistoryEntry
	messages  map[int64][]models.Message
	reads     map[int64]map[string]bool // message id -> reader ids
	payments  map[string]*models.Payment
	tariffs   map[string]*models.Tariff
	tribunals map[int64]*models.Tribunal

	nextFormalityID int64
	nextHistoryID   int64
	nextMessageID   int64
	nextPaymentID   int64
}

var _ repository.Repository = (*fakeRepository)(nil)

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		profiles:  make(map[string]*models.Profile),
		forms:     make(map[int64]*models.Formality),
		clients:   make(map[int64][]string),
		history:   make(map[int64][]models.HistoryEntry),
		messages:  make(map[int64][]models.Message),
		reads:     make(map[int64]map[string]bool),
		payments:  make(map[string]*models.Payment),
		tariffs:   make(map[string]*models.Tariff),
		tribunals: make(map[int64]*models.Tribunal),
	}
}

func (r *fakeRepository) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *fakeRepository) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	for _, p := range r.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepository) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepository) UpdateProfile(ctx context.Context, p *models.Profile) error {
	if _, ok := r.profiles[p.ID]; !ok {
		return errors.New("profile not found")
	}
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *fakeRepository) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepository) CreateFormality(ctx context.Context, f *models.Formality, clientIDs []string, action string) error {
	r.nextFormalityID++
	f.ID = r.nextFormalityID
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	cp := *f
	r.forms[f.ID] = &cp
	for _, id := range clientIDs {
		r.addClient(f.ID, id)
	}
	r.appendHistory(f.ID, action, &f.CreatedBy)
	return nil
}

func (r *fakeRepository) addClient(formalityID int64, clientID string) {
	for _, id := range r.clients[formalityID] {
		if id == clientID {
			return
		}
	}
	r.clients[formalityID] = append(r.clients[formalityID], clientID)
}

func (r *fakeRepository) appendHistory(formalityID int64, action string, authorID *string) {
	r.nextHistoryID++
	r.history[formalityID] = append(r.history[formalityID], models.HistoryEntry{
		ID:          r.nextHistoryID,
		FormalityID: formalityID,
		Action:      action,
		AuthorID:    authorID,
		Timestamp:   time.Now().UTC(),
	})
}

func (r *fakeRepository) GetFormality(ctx context.Context, id int64) (*models.Formality, error) {
	f, ok := r.forms[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (r *fakeRepository) ListFormalitiesForUser(ctx context.Context, userID string) ([]models.FormalityDetail, error) {
	var out []models.FormalityDetail
	for _, f := range r.forms {
		visible := f.FormalistID == userID || f.CreatedBy == userID
		for _, c := range r.clients[f.ID] {
			if c == userID {
				visible = true
			}
		}
		if !visible {
			continue
		}
		last := f.UpdatedAt
		for _, h := range r.history[f.ID] {
			if h.Timestamp.After(last) {
				last = h.Timestamp
			}
		}
		out = append(out, models.FormalityDetail{Formality: *f, LastUpdatedAt: last})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdatedAt.After(out[j].LastUpdatedAt) })
	return out, nil
}

func (r *fakeRepository) UpdateFormality(ctx context.Context, f *models.Formality) error {
	if _, ok := r.forms[f.ID]; !ok {
		return errors.New("formality not found")
	}
	f.UpdatedAt = time.Now().UTC()
	cp := *f
	r.forms[f.ID] = &cp
	return nil
}

func (r *fakeRepository) UpdateFormalityStatus(ctx context.Context, id int64, status models.Status, action string, authorID *string) error {
	f, ok := r.forms[id]
	if !ok {
		return errors.New("formality not found")
	}
	f.Status = status
	f.UpdatedAt = time.Now().UTC()
	r.appendHistory(id, action, authorID)
	return nil
}

func (r *fakeRepository) DeleteFormality(ctx context.Context, id int64) error {
	delete(r.forms, id)
	delete(r.clients, id)
	delete(r.history, id)
	delete(r.messages, id)
	return nil
}

func (r *fakeRepository) CheckFormalityAccess(ctx context.Context, id int64, userID string) (bool, error) {
	f, ok := r.forms[id]
	if !ok {
		return false, nil
	}
	if f.FormalistID == userID || f.CreatedBy == userID {
		return true, nil
	}
	for _, c := range r.clients[id] {
		if c == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepository) GetFormalityClients(ctx context.Context, id int64) ([]models.Profile, error) {
	var out []models.Profile
	for _, clientID := range r.clients[id] {
		if p, ok := r.profiles[clientID]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRepository) AddFormalityClients(ctx context.Context, id int64, clientIDs []string) error {
	for _, clientID := range clientIDs {
		r.addClient(id, clientID)
	}
	return nil
}

func (r *fakeRepository) RemoveFormalityClient(ctx context.Context, id int64, clientID string) error {
	kept := r.clients[id][:0]
	for _, c := range r.clients[id] {
		if c != clientID {
			kept = append(kept, c)
		}
	}
	r.clients[id] = kept
	return nil
}

func (r *fakeRepository) AddHistory(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	r.nextHistoryID++
	entry.ID = r.nextHistoryID
	r.history[entry.FormalityID] = append(r.history[entry.FormalityID], *entry)
	return nil
}

func (r *fakeRepository) GetHistory(ctx context.Context, id int64) ([]models.HistoryEntry, error) {
	entries := append([]models.HistoryEntry(nil), r.history[id]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	return entries, nil
}

func (r *fakeRepository) CreateMessage(ctx context.Context, m *models.Message) error {
	r.nextMessageID++
	m.ID = r.nextMessageID
	m.CreatedAt = time.Now().UTC()
	r.messages[m.FormalityID] = append(r.messages[m.FormalityID], *m)
	return nil
}

func (r *fakeRepository) GetMessages(ctx context.Context, id int64) ([]models.Message, error) {
	return append([]models.Message(nil), r.messages[id]...), nil
}

func (r *fakeRepository) MarkMessagesRead(ctx context.Context, id int64, userID string) error {
	for _, m := range r.messages[id] {
		if m.SenderID == userID {
			continue
		}
		if r.reads[m.ID] == nil {
			r.reads[m.ID] = make(map[string]bool)
		}
		r.reads[m.ID][userID] = true
	}
	return nil
}

func (r *fakeRepository) GetUnreadMessages(ctx context.Context, userID string) ([]models.Message, error) {
	var out []models.Message
	for formalityID, msgs := range r.messages {
		ok, _ := r.CheckFormalityAccess(ctx, formalityID, userID)
		if !ok {
			continue
		}
		for _, m := range msgs {
			if m.SenderID == userID || r.reads[m.ID][userID] {
				continue
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepository) CreatePayment(ctx context.Context, p *models.Payment) error {
	r.nextPaymentID++
	p.ID = r.nextPaymentID
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	r.payments[p.StripeSessionID] = &cp
	return nil
}

func (r *fakeRepository) GetPaymentBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	p, ok := r.payments[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepository) UpdatePaymentStatus(ctx context.Context, sessionID, status string, paymentIntentID *string) error {
	p, ok := r.payments[sessionID]
	if !ok {
		return nil
	}
	p.Status = status
	if paymentIntentID != nil {
		p.StripePaymentIntentID = paymentIntentID
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeRepository) GetTariffByName(ctx context.Context, name string) (*models.Tariff, error) {
	t, ok := r.tariffs[name]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRepository) ListTariffs(ctx context.Context) ([]models.Tariff, error) {
	var out []models.Tariff
	for _, t := range r.tariffs {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeRepository) GetTribunalByID(ctx context.Context, id int64) (*models.Tribunal, error) {
	t, ok := r.tribunals[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRepository) ListTribunals(ctx context.Context) ([]models.Tribunal, error) {
	var out []models.Tribunal
	for _, t := range r.tribunals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeDispatcher records sent notifications and can be set to fail
type fakeDispatcher struct {
	sent    []notification.Notification
	failErr error
}

func (d *fakeDispatcher) Send(ctx context.Context, n notification.Notification) (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}
	if d.failErr != nil {
		return "", d.failErr
	}
	d.sent = append(d.sent, n)
	return "fake-message-id", nil
}

// fakeGateway returns deterministic checkout sessions
type fakeGateway struct {
	created []payment.SessionParams
	failErr error
}

func (g *fakeGateway) CreateSession(ctx context.Context, p payment.SessionParams) (*payment.Session, error) {
	if g.failErr != nil {
		return nil, g.failErr
	}
	g.created = append(g.created, p)
	id := fmt.Sprintf("cs_test_%d", len(g.created))
	return &payment.Session{
		ID:       id,
		URL:      "https://checkout.test/" + id,
		Currency: "eur",
	}, nil
}
