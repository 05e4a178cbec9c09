package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// Seed static reference data on first run
	if err := seedReferenceData(db); err != nil {
		return nil, fmt.Errorf("failed to seed reference data: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create profiles table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL,
			password VARCHAR(255) NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create tribunals table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tribunals (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			type VARCHAR(100) NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create tariffs table (amounts in minor currency units)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tariffs (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) UNIQUE NOT NULL,
			amount BIGINT NOT NULL,
			price_id VARCHAR(255) NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return err
	}

	// Create formalities table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS formalities (
			id BIGSERIAL PRIMARY KEY,
			company_name VARCHAR(255) NOT NULL,
			siren VARCHAR(20) NOT NULL DEFAULT '',
			type VARCHAR(255) NOT NULL,
			status VARCHAR(50) NOT NULL,
			is_urgent BOOLEAN NOT NULL DEFAULT FALSE,
			requires_tax_registration BOOLEAN NOT NULL DEFAULT FALSE,
			tribunal_id BIGINT REFERENCES tribunals(id),
			tariff_id BIGINT REFERENCES tariffs(id),
			formalist_id VARCHAR(36) NOT NULL REFERENCES profiles(id),
			created_by VARCHAR(36) NOT NULL REFERENCES profiles(id),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create formality_clients table (formality sharing with clients)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS formality_clients (
			formality_id BIGINT NOT NULL REFERENCES formalities(id) ON DELETE CASCADE,
			client_id VARCHAR(36) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			PRIMARY KEY (formality_id, client_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create history table (append-only audit trail)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id BIGSERIAL PRIMARY KEY,
			formality_id BIGINT NOT NULL REFERENCES formalities(id) ON DELETE CASCADE,
			action TEXT NOT NULL,
			author_id VARCHAR(36) REFERENCES profiles(id),
			timestamp TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create messages table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			formality_id BIGINT NOT NULL REFERENCES formalities(id) ON DELETE CASCADE,
			sender_id VARCHAR(36) NOT NULL REFERENCES profiles(id),
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create message_read_status table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS message_read_status (
			id BIGSERIAL PRIMARY KEY,
			message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES profiles(id),
			read_at TIMESTAMP NOT NULL,
			UNIQUE (message_id, user_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create payments table (one row per generated payment link)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			formality_id BIGINT NOT NULL REFERENCES formalities(id) ON DELETE CASCADE,
			stripe_session_id VARCHAR(255) UNIQUE NOT NULL,
			stripe_payment_intent_id VARCHAR(255),
			url TEXT NOT NULL,
			amount BIGINT NOT NULL,
			currency VARCHAR(3) NOT NULL,
			customer_email VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_formalities_formalist_id ON formalities(formalist_id)",
		"CREATE INDEX IF NOT EXISTS idx_formality_clients_client_id ON formality_clients(client_id)",
		"CREATE INDEX IF NOT EXISTS idx_history_formality_id ON history(formality_id)",
		"CREATE INDEX IF NOT EXISTS idx_messages_formality_id ON messages(formality_id)",
		"CREATE INDEX IF NOT EXISTS idx_payments_stripe_session_id ON payments(stripe_session_id)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}

// seedReferenceData inserts the static tribunal and tariff catalogs when the
// tables are empty. Amounts are in cents.
func seedReferenceData(db *sqlx.DB) error {
	var tribunalCount int
	if err := db.Get(&tribunalCount, "SELECT COUNT(*) FROM tribunals"); err != nil {
		return err
	}
	if tribunalCount == 0 {
		tribunals := []struct {
			name string
			typ  string
		}{
			{"Greffe du tribunal de commerce de Paris", "Tribunal de commerce"},
			{"Greffe du tribunal de commerce de Nanterre", "Tribunal de commerce"},
			{"Greffe du tribunal de commerce de Bobigny", "Tribunal de commerce"},
			{"Greffe du tribunal de commerce de Créteil", "Tribunal de commerce"},
			{"Greffe du tribunal de commerce de Versailles", "Tribunal de commerce"},
			{"Greffe du tribunal de commerce d'Évry", "Tribunal de commerce"},
			{"Greffe du tribunal de commerce de Pontoise", "Tribunal de commerce"},
			{"Greffe du tribunal de commerce de Lyon", "Tribunal de commerce"},
			{"Greffe du tribunal de commerce de Marseille", "Tribunal de commerce"},
			{"Greffe du tribunal de commerce de Bordeaux", "Tribunal de commerce"},
		}
		for _, t := range tribunals {
			if _, err := db.Exec("INSERT INTO tribunals (name, type) VALUES ($1, $2)", t.name, t.typ); err != nil {
				return err
			}
		}
	}

	var tariffCount int
	if err := db.Get(&tariffCount, "SELECT COUNT(*) FROM tariffs"); err != nil {
		return err
	}
	if tariffCount == 0 {
		tariffs := []struct {
			name   string
			amount int64
		}{
			{"Constitution", 60000},
			{"Transfert de siège", 50000},
			{"Adjonction ou suppression d’activité", 45000},
			{"Modification des organes de direction", 45000},
			{"Augmentation de capital", 55000},
			{"Réduction de capital", 55000},
			{"Transformation", 70000},
			{"Fusion", 120000},
			{"TUP", 80000},
			{"Mise en sommeil", 40000},
			{"Dissolution", 60000},
			{"Liquidation", 60000},
			{"Autres modifications statutaires", 45000},
			{"Dépôt des comptes", 25000},
			{"Mise à jour des bénéficiaires effectifs", 25000},
			{"Pacte Dutreil-transmission", 90000},
			{"Convention d'animation", 90000},
			{"Option urgence", 15000},
			{"Option enregistrement fiscal", 12500},
		}
		for _, t := range tariffs {
			if _, err := db.Exec("INSERT INTO tariffs (name, amount) VALUES ($1, $2)", t.name, t.amount); err != nil {
				return err
			}
		}
	}

	return nil
}
