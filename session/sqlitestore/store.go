// Package sqlitestore is a session.Store backed by SQLite (modernc.org/sqlite, no
// cgo). Identity-keyed upserts are a single INSERT ... ON CONFLICT statement.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MrEthical07/hostAuth/session"
)

// Store is a SQLite-backed session.Store.
type Store struct {
	db  *sql.DB
	dsn string
}

// Open opens dsn, applies pending migrations, and returns the store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases are
	// per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}

	s := &Store{db: db, dsn: dsn}
	if err := s.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return s, nil
}

// Close implements session.Store.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return nil
}

const selectColumns = `SELECT id, authenticated, token, issued_at, expires_at, user_doc, refresh FROM permissions`

// FindOne implements session.Store.
func (s *Store) FindOne(ctx context.Context, f session.Filter) (*session.Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	where, arg, err := whereClause(f)
	if err != nil {
		return nil, err
	}
	return scanRecord(s.db.QueryRowContext(ctx, selectColumns+where, arg))
}

const upsertByIdentity = `
INSERT INTO permissions (id, identity_key, authenticated, token, issued_at, expires_at, user_doc, refresh)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)
ON CONFLICT(identity_key) DO UPDATE SET
    token      = COALESCE(excluded.token, permissions.token),
    issued_at  = COALESCE(excluded.issued_at, permissions.issued_at),
    expires_at = COALESCE(excluded.expires_at, permissions.expires_at),
    user_doc   = COALESCE(excluded.user_doc, permissions.user_doc),
    refresh    = CASE WHEN ?9 THEN excluded.refresh ELSE permissions.refresh END`

// UpsertOne implements session.Store.
func (s *Store) UpsertOne(ctx context.Context, f session.Filter, u session.Update) error {
	if err := f.Validate(); err != nil {
		return err
	}
	cols, err := encodeUpdate(u)
	if err != nil {
		return err
	}

	if f.Refresh != "" {
		return s.upsertByRefresh(ctx, f.Refresh, u, cols)
	}

	key, err := session.IdentityKey(f.Authenticated)
	if err != nil {
		return err
	}
	blob, err := session.MarshalValue(f.Authenticated)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertByIdentity,
		session.NewRecordID(), key.String(), blob,
		cols.token, cols.issuedAt, cols.expiresAt, cols.user, cols.refresh,
		u.Refresh != nil,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return nil
}

// upsertByRefresh runs in a transaction: the refresh column is both the selector
// and a field the update may change.
func (s *Store) upsertByRefresh(ctx context.Context, refresh string, u session.Update, cols updateColumns) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM permissions WHERE refresh = ?`, refresh).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec := session.Seed(session.ByRefresh(refresh), session.NewRecordID())
		u.Apply(rec)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO permissions (id, token, issued_at, expires_at, user_doc, refresh) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, cols.token, cols.issuedAt, cols.expiresAt, cols.user, nullString(rec.Refresh),
		)
	case err == nil:
		_, err = tx.ExecContext(ctx, updateSet+` WHERE id = ?`,
			cols.token, cols.issuedAt, cols.expiresAt, cols.user, u.Refresh != nil, cols.refresh, id,
		)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return nil
}

// updateSet leaves a column alone when its argument is NULL.
const updateSet = `
UPDATE permissions SET
    token      = COALESCE(?, token),
    issued_at  = COALESCE(?, issued_at),
    expires_at = COALESCE(?, expires_at),
    user_doc   = COALESCE(?, user_doc),
    refresh    = CASE WHEN ? THEN ? ELSE refresh END`

// UpdateOne implements session.Store.
func (s *Store) UpdateOne(ctx context.Context, f session.Filter, u session.Update) error {
	if err := f.Validate(); err != nil {
		return err
	}
	cols, err := encodeUpdate(u)
	if err != nil {
		return err
	}
	where, arg, err := whereClause(f)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, updateSet+where,
		cols.token, cols.issuedAt, cols.expiresAt, cols.user, u.Refresh != nil, cols.refresh, arg,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// DeleteOne implements session.Store.
func (s *Store) DeleteOne(ctx context.Context, f session.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	where, arg, err := whereClause(f)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM permissions`+where, arg); err != nil {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired removes records whose expiry is before cutoff and returns how many
// were removed.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM permissions WHERE expires_at IS NOT NULL AND expires_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return n, nil
}

func whereClause(f session.Filter) (string, any, error) {
	if f.Refresh != "" {
		return ` WHERE refresh = ?`, f.Refresh, nil
	}
	key, err := session.IdentityKey(f.Authenticated)
	if err != nil {
		return "", nil, err
	}
	return ` WHERE identity_key = ?`, key.String(), nil
}

type updateColumns struct {
	token     sql.NullString
	issuedAt  sql.NullInt64
	expiresAt sql.NullInt64
	user      []byte
	refresh   sql.NullString
}

func encodeUpdate(u session.Update) (updateColumns, error) {
	var cols updateColumns
	if u.Token != nil {
		cols.token = sql.NullString{String: *u.Token, Valid: true}
	}
	if u.IssuedAt != nil {
		cols.issuedAt = sql.NullInt64{Int64: u.IssuedAt.UnixMilli(), Valid: true}
	}
	if u.ExpiresAt != nil {
		cols.expiresAt = sql.NullInt64{Int64: u.ExpiresAt.UnixMilli(), Valid: true}
	}
	if u.User != nil {
		blob, err := session.MarshalValue(u.User)
		if err != nil {
			return cols, err
		}
		cols.user = blob
	}
	if u.Refresh != nil {
		cols.refresh = nullString(*u.Refresh)
	}
	return cols, nil
}

// nullString maps the empty refresh onto NULL so the UNIQUE index ignores it.
func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func scanRecord(row *sql.Row) (*session.Record, error) {
	var (
		rec       session.Record
		auth      []byte
		token     sql.NullString
		issuedAt  sql.NullInt64
		expiresAt sql.NullInt64
		user      []byte
		refresh   sql.NullString
	)
	err := row.Scan(&rec.ID, &auth, &token, &issuedAt, &expiresAt, &user, &refresh)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}

	if rec.Authenticated, err = session.UnmarshalIdentity(auth); err != nil {
		return nil, fmt.Errorf("%w: corrupt record %q: %v", session.ErrStoreUnavailable, rec.ID, err)
	}
	if rec.User, err = session.UnmarshalMap(user); err != nil {
		return nil, fmt.Errorf("%w: corrupt record %q: %v", session.ErrStoreUnavailable, rec.ID, err)
	}
	rec.Token = token.String
	rec.Refresh = refresh.String
	if issuedAt.Valid {
		rec.IssuedAt = time.UnixMilli(issuedAt.Int64).UTC()
	}
	if expiresAt.Valid {
		rec.ExpiresAt = time.UnixMilli(expiresAt.Int64).UTC()
	}
	return &rec, nil
}
