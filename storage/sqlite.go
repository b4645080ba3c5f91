package storage

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sorinflow/models"
)

// SessionFileStore is the local fallback for login sessions. Cookies saved
// here survive a Postgres outage, so a restart can restore an authenticated
// browser without asking for a new OTP.
type SessionFileStore struct {
	db *sql.DB
}

func NewSessionFileStore(dbPath string) (*SessionFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SessionFileStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SessionFileStore) Close() error {
	return s.db.Close()
}

func (s *SessionFileStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		phone_number TEXT PRIMARY KEY,
		cookies JSON NOT NULL,
		token TEXT DEFAULT '',
		is_valid BOOLEAN DEFAULT TRUE,
		expires_at DATETIME,
		updated_at DATETIME
	);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SessionFileStore) Save(sc *models.SessionCredential) error {
	cookies, err := json.Marshal(sc.Cookies)
	if err != nil {
		return err
	}

	var expiresAt any
	if sc.ExpiresAt != nil {
		expiresAt = sc.ExpiresAt.UTC()
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (phone_number, cookies, token, is_valid, expires_at, updated_at)
		VALUES (?, ?, ?, TRUE, ?, ?)
		ON CONFLICT (phone_number) DO UPDATE SET
			cookies = excluded.cookies,
			token = excluded.token,
			is_valid = TRUE,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		sc.PhoneNumber, string(cookies), sc.Token, expiresAt, time.Now().UTC())
	return err
}

// Get returns nil, nil when no valid session is stored for the number.
func (s *SessionFileStore) Get(phoneNumber string) (*models.SessionCredential, error) {
	row := s.db.QueryRow(`
		SELECT cookies, token, expires_at, updated_at
		FROM sessions WHERE phone_number = ? AND is_valid`, phoneNumber)

	var (
		cookies   string
		sc        models.SessionCredential
		expiresAt sql.NullTime
		updatedAt sql.NullTime
	)
	err := row.Scan(&cookies, &sc.Token, &expiresAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(cookies), &sc.Cookies); err != nil {
		return nil, err
	}
	sc.PhoneNumber = phoneNumber
	sc.IsValid = true
	if expiresAt.Valid {
		t := expiresAt.Time
		sc.ExpiresAt = &t
	}
	if updatedAt.Valid {
		sc.UpdatedAt = updatedAt.Time
	}
	return &sc, nil
}

func (s *SessionFileStore) Invalidate(phoneNumber string) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET is_valid = FALSE, updated_at = ? WHERE phone_number = ?`,
		time.Now().UTC(), phoneNumber)
	return err
}
