package items

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"benchtop/internal/core/errors"
	"benchtop/internal/shared/observability"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
	now  func() time.Time
}

// Open creates or opens the item database at path. busyTimeout bounds how
// long sqlite waits on a locked database before withRetry takes over.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "item store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.Newf(errors.CodeValidationError, "item store path %q is a directory, expected file", cleanPath)
	}
	if dir := filepath.Dir(cleanPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "create item store directory")
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "open sqlite item store")
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "ping sqlite item store"), errors.CtxPath, cleanPath)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "initialize item schema"), errors.CtxPath, cleanPath)
	}
	return &Store{path: cleanPath, db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Create inserts a new item with a fresh ID and timestamps.
func (s *Store) Create(ctx context.Context, item Item) (Item, error) {
	item = item.normalized()
	if err := item.Validate(); err != nil {
		return Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item.ID = uuid.NewString()
	item.CreatedAt, item.UpdatedAt = now, now
	err := s.withRetry("create item", func() error {
		return insertItem(ctx, s.db, item)
	})
	record("create", err)
	return item, err
}

func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, id)
}

func (s *Store) getLocked(ctx context.Context, id string) (Item, error) {
	var item Item
	err := s.withRetry("get item", func() error {
		row := s.db.QueryRowContext(ctx, selectItems+` WHERE id = ?`, id)
		var scanErr error
		item, scanErr = scanItem(row)
		return scanErr
	})
	if errors.IsCode(err, errors.CodeNotFound) {
		return Item{}, errors.AddContext(errors.New(errors.CodeNotFound, "item "+id), errors.CtxItem, id)
	}
	return item, err
}

// Update replaces every field of an existing item except CreatedAt.
func (s *Store) Update(ctx context.Context, item Item) (Item, error) {
	item = item.normalized()
	if err := item.Validate(); err != nil {
		return Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getLocked(ctx, item.ID)
	if err != nil {
		return Item{}, err
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.now()
	err = s.withRetry("update item", func() error {
		_, err := s.db.ExecContext(ctx, `
UPDATE items SET name = ?, type = ?, code = ?, tags = ?, notes = ?, autorun = ?, updated_at_utc = ?
WHERE id = ?`,
			item.Name, item.Type, item.Code, encodeTags(item.Tags), item.Notes, boolInt(item.Autorun),
			formatTime(item.UpdatedAt), item.ID)
		return err
	})
	record("update", err)
	return item, err
}

// Save creates the item when it has no ID or the ID is unknown, and
// updates it otherwise.
func (s *Store) Save(ctx context.Context, item Item) (Item, error) {
	if strings.TrimSpace(item.ID) == "" {
		return s.Create(ctx, item)
	}
	saved, err := s.Update(ctx, item)
	if !errors.IsCode(err, errors.CodeNotFound) {
		return saved, err
	}

	item = item.normalized()
	if err := item.Validate(); err != nil {
		return Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	err = s.withRetry("save item", func() error {
		return insertItem(ctx, s.db, item)
	})
	record("create", err)
	return item, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	err := s.withRetry("delete item", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	record("delete", err)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.AddContext(errors.New(errors.CodeNotFound, "item "+id), errors.CtxItem, id)
	}
	return nil
}

// List returns all items ordered by name, then creation time.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	return s.query(ctx, "list items", selectItems+` ORDER BY name COLLATE NOCASE, created_at_utc`)
}

// ListAutorun returns the items flagged to run at startup.
func (s *Store) ListAutorun(ctx context.Context) ([]Item, error) {
	return s.query(ctx, "list autorun items", selectItems+` WHERE autorun = 1 ORDER BY name COLLATE NOCASE, created_at_utc`)
}

// ReplaceAll swaps the whole collection in one transaction. Items without
// an ID get one; missing timestamps are set to now.
func (s *Store) ReplaceAll(ctx context.Context, all []Item) error {
	prepared := make([]Item, 0, len(all))
	now := s.now()
	for _, it := range all {
		it = it.normalized()
		if err := it.Validate(); err != nil {
			return err
		}
		if strings.TrimSpace(it.ID) == "" {
			it.ID = uuid.NewString()
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		if it.UpdatedAt.IsZero() {
			it.UpdatedAt = it.CreatedAt
		}
		prepared = append(prepared, it)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.withRetry("replace items", func() (err error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()
		if _, err = tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return err
		}
		for _, it := range prepared {
			if err = insertItem(ctx, tx, it); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	record("replace", err)
	return err
}

func (s *Store) query(ctx context.Context, op, q string, args ...any) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Item
	err := s.withRetry(op, func() error {
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const selectItems = `SELECT id, name, type, code, tags, notes, autorun, created_at_utc, updated_at_utc FROM items`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertItem(ctx context.Context, db execer, it Item) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO items (id, name, type, code, tags, notes, autorun, created_at_utc, updated_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.Name, it.Type, it.Code, encodeTags(it.Tags), it.Notes, boolInt(it.Autorun),
		formatTime(it.CreatedAt), formatTime(it.UpdatedAt))
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "unique") {
		return errors.AddContext(errors.Wrap(err, errors.CodeConflict, "item already exists"), errors.CtxItem, it.ID)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (Item, error) {
	var (
		it                 Item
		tagsRaw            string
		autorun            int
		createdRaw, updRaw string
	)
	err := row.Scan(&it.ID, &it.Name, &it.Type, &it.Code, &tagsRaw, &it.Notes, &autorun, &createdRaw, &updRaw)
	if err == sql.ErrNoRows {
		return Item{}, errors.New(errors.CodeNotFound, "item")
	}
	if err != nil {
		return Item{}, fmt.Errorf("scan item row: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsRaw), &it.Tags); err != nil {
		return Item{}, errors.AddContext(errors.Wrap(err, errors.CodeParse, "decode item tags"), errors.CtxItem, it.ID)
	}
	it.Autorun = autorun != 0
	if it.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
		return Item{}, fmt.Errorf("parse created timestamp %q: %w", createdRaw, err)
	}
	if it.UpdatedAt, err = time.Parse(time.RFC3339Nano, updRaw); err != nil {
		return Item{}, fmt.Errorf("parse updated timestamp %q: %w", updRaw, err)
	}
	return it, nil
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func record(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	observability.StoreOperationsTotal.WithLabelValues(op, result).Inc()
}

// withRetry retries fn while sqlite reports lock contention. Domain errors
// are returned unwrapped so their codes survive.
func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	var de *errors.DomainError
	if errors.As(lastErr, &de) {
		return lastErr
	}
	return errors.Wrap(lastErr, errors.CodeInternal, op)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
