package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formalys/formalys-server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// Profile operations
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetProfileByID(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
	ListProfiles(ctx context.Context) ([]models.Profile, error)

	// Formality operations
	CreateFormality(ctx context.Context, formality *models.Formality, clientIDs []string, action string) error
	GetFormality(ctx context.Context, formalityID int64) (*models.Formality, error)
	ListFormalitiesForUser(ctx context.Context, userID string) ([]models.FormalityDetail, error)
	UpdateFormality(ctx context.Context, formality *models.Formality) error
	UpdateFormalityStatus(ctx context.Context, formalityID int64, status models.Status, action string, authorID *string) error
	DeleteFormality(ctx context.Context, formalityID int64) error
	CheckFormalityAccess(ctx context.Context, formalityID int64, userID string) (bool, error)

	// Formality client operations
	GetFormalityClients(ctx context.Context, formalityID int64) ([]models.Profile, error)
	AddFormalityClients(ctx context.Context, formalityID int64, clientIDs []string) error
	RemoveFormalityClient(ctx context.Context, formalityID int64, clientID string) error

	// History operations
	AddHistory(ctx context.Context, entry *models.HistoryEntry) error
	GetHistory(ctx context.Context, formalityID int64) ([]models.HistoryEntry, error)

	// Message operations
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessages(ctx context.Context, formalityID int64) ([]models.Message, error)
	MarkMessagesRead(ctx context.Context, formalityID int64, userID string) error
	GetUnreadMessages(ctx context.Context, userID string) ([]models.Message, error)

	// Payment operations
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, sessionID, status string, paymentIntentID *string) error

	// Reference data operations
	GetTariffByName(ctx context.Context, name string) (*models.Tariff, error)
	ListTariffs(ctx context.Context) ([]models.Tariff, error)
	GetTribunalByID(ctx context.Context, id int64) (*models.Tribunal, error)
	ListTribunals(ctx context.Context) ([]models.Tribunal, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// Profile repository methods
func (r *PostgresRepository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (id, email, first_name, last_name, role, password)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	// Generate a new UUID if not provided
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, query,
		profile.ID, profile.Email, profile.FirstName, profile.LastName, profile.Role, profile.Password)

	return err
}

func (r *PostgresRepository) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT * FROM profiles WHERE email = $1`

	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Profile not found
		}
		return nil, err
	}

	return &profile, nil
}

func (r *PostgresRepository) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT * FROM profiles WHERE id = $1`

	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Profile not found
		}
		return nil, err
	}

	return &profile, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles SET email = $1, first_name = $2, last_name = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query,
		profile.Email, profile.FirstName, profile.LastName, profile.ID)

	return err
}

func (r *PostgresRepository) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	query := `SELECT * FROM profiles ORDER BY last_name, first_name`

	var profiles []models.Profile
	err := r.db.SelectContext(ctx, &profiles, query)
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// Formality repository methods
// CreateFormality inserts the formality, its client links and the creation
// history entry in a single transaction.
func (r *PostgresRepository) CreateFormality(ctx context.Context, formality *models.Formality, clientIDs []string, action string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	now := time.Now().UTC()
	formality.CreatedAt = now
	formality.UpdatedAt = now

	query := `
		INSERT INTO formalities (company_name, siren, type, status, is_urgent,
			requires_tax_registration, tribunal_id, tariff_id, formalist_id,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, query,
		formality.CompanyName, formality.Siren, formality.Type, formality.Status,
		formality.IsUrgent, formality.RequiresTaxRegistration, formality.TribunalID,
		formality.TariffID, formality.FormalistID, formality.CreatedBy,
		formality.CreatedAt, formality.UpdatedAt).Scan(&formality.ID)
	if err != nil {
		return err
	}

	for _, clientID := range clientIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO formality_clients (formality_id, client_id) VALUES ($1, $2)
			 ON CONFLICT (formality_id, client_id) DO NOTHING`,
			formality.ID, clientID)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (formality_id, action, author_id, timestamp) VALUES ($1, $2, $3, $4)`,
		formality.ID, action, formality.CreatedBy, now)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetFormality(ctx context.Context, formalityID int64) (*models.Formality, error) {
	query := `SELECT * FROM formalities WHERE id = $1`

	var formality models.Formality
	err := r.db.GetContext(ctx, &formality, query, formalityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Formality not found
		}
		return nil, err
	}

	return &formality, nil
}

// formalityRow carries the derived last-updated timestamp alongside the row
type formalityRow struct {
	models.Formality
	LastUpdatedAt time.Time `db:"last_updated_at"`
}

// ListFormalitiesForUser returns the formalities visible to the user: those
// they are assigned to as formalist, linked to as client, or created. Sorted
// by last activity (row update or latest history entry), newest first.
func (r *PostgresRepository) ListFormalitiesForUser(ctx context.Context, userID string) ([]models.FormalityDetail, error) {
	query := `
		SELECT f.*, GREATEST(f.updated_at, COALESCE(MAX(h.timestamp), f.updated_at)) AS last_updated_at
		FROM formalities f
		LEFT JOIN history h ON h.formality_id = f.id
		WHERE f.formalist_id = $1
		   OR f.created_by = $1
		   OR EXISTS (SELECT 1 FROM formality_clients fc WHERE fc.formality_id = f.id AND fc.client_id = $1)
		GROUP BY f.id
		ORDER BY last_updated_at DESC
	`

	var rows []formalityRow
	err := r.db.SelectContext(ctx, &rows, query, userID)
	if err != nil {
		return nil, err
	}

	details := make([]models.FormalityDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, models.FormalityDetail{
			Formality:     row.Formality,
			LastUpdatedAt: row.LastUpdatedAt,
		})
	}

	return details, nil
}

func (r *PostgresRepository) UpdateFormality(ctx context.Context, formality *models.Formality) error {
	query := `
		UPDATE formalities SET company_name = $1, siren = $2, status = $3,
			is_urgent = $4, requires_tax_registration = $5, tribunal_id = $6,
			tariff_id = $7, formalist_id = $8, updated_at = $9
		WHERE id = $10
	`

	formality.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		formality.CompanyName, formality.Siren, formality.Status,
		formality.IsUrgent, formality.RequiresTaxRegistration, formality.TribunalID,
		formality.TariffID, formality.FormalistID, formality.UpdatedAt, formality.ID)

	return err
}

// UpdateFormalityStatus writes the new status and its audit entry in one
// transaction, so a status change never appears without its history row.
func (r *PostgresRepository) UpdateFormalityStatus(ctx context.Context, formalityID int64, status models.Status, action string, authorID *string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE formalities SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now, formalityID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (formality_id, action, author_id, timestamp) VALUES ($1, $2, $3, $4)`,
		formalityID, action, authorID, now)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) DeleteFormality(ctx context.Context, formalityID int64) error {
	// Child rows (clients, history, messages, payments) cascade
	_, err := r.db.ExecContext(ctx, `DELETE FROM formalities WHERE id = $1`, formalityID)
	return err
}

// CheckFormalityAccess reports whether the user is the assigned formalist, the
// creator or a linked client of the formality.
func (r *PostgresRepository) CheckFormalityAccess(ctx context.Context, formalityID int64, userID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM formalities f
			WHERE f.id = $1 AND (f.formalist_id = $2 OR f.created_by = $2)
			UNION
			SELECT 1 FROM formality_clients fc
			WHERE fc.formality_id = $1 AND fc.client_id = $2
		)
	`

	var hasAccess bool
	err := r.db.GetContext(ctx, &hasAccess, query, formalityID, userID)
	if err != nil {
		return false, err
	}

	return hasAccess, nil
}

// Formality client repository methods
func (r *PostgresRepository) GetFormalityClients(ctx context.Context, formalityID int64) ([]models.Profile, error) {
	query := `
		SELECT p.* FROM profiles p
		JOIN formality_clients fc ON p.id = fc.client_id
		WHERE fc.formality_id = $1
		ORDER BY p.last_name, p.first_name
	`

	var clients []models.Profile
	err := r.db.SelectContext(ctx, &clients, query, formalityID)
	if err != nil {
		return nil, err
	}

	return clients, nil
}

func (r *PostgresRepository) AddFormalityClients(ctx context.Context, formalityID int64, clientIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	for _, clientID := range clientIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO formality_clients (formality_id, client_id) VALUES ($1, $2)
			 ON CONFLICT (formality_id, client_id) DO NOTHING`,
			formalityID, clientID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) RemoveFormalityClient(ctx context.Context, formalityID int64, clientID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM formality_clients WHERE formality_id = $1 AND client_id = $2`,
		formalityID, clientID)
	return err
}

// History repository methods
func (r *PostgresRepository) AddHistory(ctx context.Context, entry *models.HistoryEntry) error {
	query := `
		INSERT INTO history (formality_id, action, author_id, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	return r.db.QueryRowContext(ctx, query,
		entry.FormalityID, entry.Action, entry.AuthorID, entry.Timestamp).Scan(&entry.ID)
}

func (r *PostgresRepository) GetHistory(ctx context.Context, formalityID int64) ([]models.HistoryEntry, error) {
	query := `SELECT * FROM history WHERE formality_id = $1 ORDER BY timestamp DESC, id DESC`

	var entries []models.HistoryEntry
	err := r.db.SelectContext(ctx, &entries, query, formalityID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Message repository methods
func (r *PostgresRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (formality_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	message.CreatedAt = time.Now().UTC()

	return r.db.QueryRowContext(ctx, query,
		message.FormalityID, message.SenderID, message.Content, message.CreatedAt).Scan(&message.ID)
}

func (r *PostgresRepository) GetMessages(ctx context.Context, formalityID int64) ([]models.Message, error) {
	query := `SELECT * FROM messages WHERE formality_id = $1 ORDER BY created_at ASC, id ASC`

	var messages []models.Message
	err := r.db.SelectContext(ctx, &messages, query, formalityID)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkMessagesRead records a read receipt for every message of the formality
// not sent by the user. Already-read messages are left untouched.
func (r *PostgresRepository) MarkMessagesRead(ctx context.Context, formalityID int64, userID string) error {
	query := `
		INSERT INTO message_read_status (message_id, user_id, read_at)
		SELECT m.id, $2, $3 FROM messages m
		WHERE m.formality_id = $1 AND m.sender_id != $2
		ON CONFLICT (message_id, user_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, formalityID, userID, time.Now().UTC())
	return err
}

// GetUnreadMessages returns messages on formalities the user can access that
// were sent by someone else and carry no read receipt from the user.
func (r *PostgresRepository) GetUnreadMessages(ctx context.Context, userID string) ([]models.Message, error) {
	query := `
		SELECT m.* FROM messages m
		JOIN formalities f ON f.id = m.formality_id
		LEFT JOIN formality_clients fc ON fc.formality_id = f.id AND fc.client_id = $1
		LEFT JOIN message_read_status mrs ON mrs.message_id = m.id AND mrs.user_id = $1
		WHERE m.sender_id != $1
		  AND mrs.id IS NULL
		  AND (f.formalist_id = $1 OR f.created_by = $1 OR fc.client_id IS NOT NULL)
		ORDER BY m.created_at DESC
	`

	var messages []models.Message
	err := r.db.SelectContext(ctx, &messages, query, userID)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// Payment repository methods
func (r *PostgresRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (formality_id, stripe_session_id, stripe_payment_intent_id,
			url, amount, currency, customer_email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	return r.db.QueryRowContext(ctx, query,
		payment.FormalityID, payment.StripeSessionID, payment.StripePaymentIntentID,
		payment.URL, payment.Amount, payment.Currency, payment.CustomerEmail,
		payment.Status, payment.CreatedAt, payment.UpdatedAt).Scan(&payment.ID)
}

func (r *PostgresRepository) GetPaymentBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	query := `SELECT * FROM payments WHERE stripe_session_id = $1`

	var payment models.Payment
	err := r.db.GetContext(ctx, &payment, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Payment not found
		}
		return nil, err
	}

	return &payment, nil
}

func (r *PostgresRepository) UpdatePaymentStatus(ctx context.Context, sessionID, status string, paymentIntentID *string) error {
	query := `
		UPDATE payments
		SET status = $1,
			stripe_payment_intent_id = COALESCE($2, stripe_payment_intent_id),
			updated_at = $3
		WHERE stripe_session_id = $4
	`

	_, err := r.db.ExecContext(ctx, query, status, paymentIntentID, time.Now().UTC(), sessionID)
	return err
}

// Reference data repository methods
func (r *PostgresRepository) GetTariffByName(ctx context.Context, name string) (*models.Tariff, error) {
	query := `SELECT * FROM tariffs WHERE name = $1`

	var tariff models.Tariff
	err := r.db.GetContext(ctx, &tariff, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Tariff not found
		}
		return nil, err
	}

	return &tariff, nil
}

func (r *PostgresRepository) ListTariffs(ctx context.Context) ([]models.Tariff, error) {
	query := `SELECT * FROM tariffs ORDER BY name`

	var tariffs []models.Tariff
	err := r.db.SelectContext(ctx, &tariffs, query)
	if err != nil {
		return nil, err
	}

	return tariffs, nil
}

func (r *PostgresRepository) GetTribunalByID(ctx context.Context, id int64) (*models.Tribunal, error) {
	query := `SELECT * FROM tribunals WHERE id = $1`

	var tribunal models.Tribunal
	err := r.db.GetContext(ctx, &tribunal, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Tribunal not found
		}
		return nil, err
	}

	return &tribunal, nil
}

func (r *PostgresRepository) ListTribunals(ctx context.Context) ([]models.Tribunal, error) {
	query := `SELECT * FROM tribunals ORDER BY name`

	var tribunals []models.Tribunal
	err := r.db.SelectContext(ctx, &tribunals, query)
	if err != nil {
		return nil, err
	}

	return tribunals, nil
}
