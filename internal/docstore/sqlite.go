package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the sqlite-backed document store.
type SQLite struct {
	db *sql.DB
}

// Open opens the DB at path, creates dir if needed, runs migrations.
func Open(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %v, close failed: %w", err, closeErr)
		}
		return nil, err
	}
	if err := migrate(conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("migrate failed: %v, close failed: %w", err, closeErr)
		}
		return nil, err
	}
	return &SQLite{db: conn}, nil
}

func migrate(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS users (
  uid TEXT PRIMARY KEY,
  email TEXT UNIQUE NOT NULL,
  password_hash TEXT NOT NULL,
  email_verified INTEGER NOT NULL DEFAULT 0,
  credits INTEGER NOT NULL DEFAULT 0,
  created_at REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
  tx_id TEXT PRIMARY KEY,
  uid TEXT NOT NULL,
  reason TEXT NOT NULL,
  amount INTEGER NOT NULL,
  created_at REAL NOT NULL,
  FOREIGN KEY (uid) REFERENCES users(uid)
);
CREATE INDEX IF NOT EXISTS idx_transactions_uid ON transactions(uid);

CREATE TABLE IF NOT EXISTS gallery (
  entry_id TEXT PRIMARY KEY,
  uid TEXT NOT NULL,
  url TEXT NOT NULL,
  prompt TEXT NOT NULL,
  upscaled INTEGER NOT NULL DEFAULT 0,
  created_at REAL NOT NULL,
  FOREIGN KEY (uid) REFERENCES users(uid)
);
CREATE INDEX IF NOT EXISTS idx_gallery_uid ON gallery(uid, created_at);
`

func (s *SQLite) GetUser(ctx context.Context, uid string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uid, email, password_hash, email_verified, credits, created_at FROM users WHERE uid = ?`, uid)
	return scanUser(row)
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uid, email, password_hash, email_verified, credits, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var verified int
	var created float64
	err := row.Scan(&u.UID, &u.Email, &u.PasswordHash, &verified, &u.Credits, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.EmailVerified = verified != 0
	u.CreatedAt = fromEpoch(created)
	return &u, nil
}

func (s *SQLite) PutUser(ctx context.Context, u *User) error {
	verified := 0
	if u.EmailVerified {
		verified = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (uid, email, password_hash, email_verified, credits, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(uid) DO UPDATE SET email=excluded.email, password_hash=excluded.password_hash,
		   email_verified=excluded.email_verified, credits=excluded.credits`,
		u.UID, u.Email, u.PasswordHash, verified, u.Credits, toEpoch(u.CreatedAt),
	)
	return err
}

func (s *SQLite) SetEmailVerified(ctx context.Context, uid string, verified bool) error {
	v := 0
	if verified {
		v = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET email_verified = ? WHERE uid = ?`, v, uid)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustCredits runs the increment and the transaction append in one DB
// transaction so a failed append never leaves a dangling balance change.
func (s *SQLite) AdjustCredits(ctx context.Context, uid string, tx Transaction) (int, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `UPDATE users SET credits = credits + ? WHERE uid = ?`, tx.Amount, uid)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, ErrNotFound
	}
	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO transactions (tx_id, uid, reason, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		tx.ID, uid, tx.Reason, tx.Amount, toEpoch(tx.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	var balance int
	if err := dbTx.QueryRowContext(ctx, `SELECT credits FROM users WHERE uid = ?`, uid).Scan(&balance); err != nil {
		return 0, err
	}
	if err := dbTx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *SQLite) ListTransactions(ctx context.Context, uid string) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tx_id, uid, reason, amount, created_at FROM transactions WHERE uid = ?`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var tx Transaction
		var created float64
		if err := rows.Scan(&tx.ID, &tx.UID, &tx.Reason, &tx.Amount, &created); err != nil {
			return nil, err
		}
		tx.CreatedAt = fromEpoch(created)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *SQLite) PutGalleryEntry(ctx context.Context, e *GalleryEntry) error {
	upscaled := 0
	if e.Upscaled {
		upscaled = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gallery (entry_id, uid, url, prompt, upscaled, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UID, e.URL, e.Prompt, upscaled, toEpoch(e.CreatedAt),
	)
	return err
}

func (s *SQLite) UpdateGalleryEntry(ctx context.Context, uid, id, url string, upscaled bool) error {
	v := 0
	if upscaled {
		v = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE gallery SET url = ?, upscaled = ? WHERE entry_id = ? AND uid = ?`, url, v, id, uid)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) ListGalleryEntries(ctx context.Context, uid string) ([]GalleryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, uid, url, prompt, upscaled, created_at FROM gallery
		 WHERE uid = ? ORDER BY created_at DESC, entry_id DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GalleryEntry
	for rows.Next() {
		var e GalleryEntry
		var upscaled int
		var created float64
		if err := rows.Scan(&e.ID, &e.UID, &e.URL, &e.Prompt, &upscaled, &created); err != nil {
			return nil, err
		}
		e.Upscaled = upscaled != 0
		e.CreatedAt = fromEpoch(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func toEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromEpoch(v float64) time.Time {
	return time.Unix(0, int64(v*1e9))
}
