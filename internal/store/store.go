package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrUnavailable means the underlying database could not be opened. The
// feed keeps working without persistence; callers degrade to no-ops.
var ErrUnavailable = errors.New("store: storage unavailable")

const prefsVersion = 1

// Store backs saved articles, view history and preferences with one
// sqlite database. The database is opened lazily on first use so callers
// never check readiness themselves.
type Store struct {
	path string
	log  *zap.Logger

	openOnce sync.Once
	openErr  error
	readDB   *sql.DB
	writeDB  *sql.DB

	// serializes preference read-modify-write cycles
	prefsMu sync.Mutex
}

func New(dbPath string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: dbPath, log: log}
}

func (s *Store) ensureOpen() error {
	s.openOnce.Do(func() {
		s.openErr = s.open()
		if s.openErr != nil {
			s.log.Error("opening store", zap.String("path", s.path), zap.Error(s.openErr))
		}
	})
	if s.openErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, s.openErr)
	}
	return nil
}

func (s *Store) open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	if err := initSchema(writeDB); err != nil {
		writeDB.Close()
		return err
	}

	readDB, err := sql.Open("sqlite", s.path+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return fmt.Errorf("opening read db: %w", err)
	}

	s.readDB = readDB
	s.writeDB = writeDB
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS saved_articles (
			id        INTEGER PRIMARY KEY,
			title     TEXT NOT NULL,
			excerpt   TEXT NOT NULL DEFAULT '',
			thumbnail TEXT NOT NULL DEFAULT '',
			saved_at  DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS view_history (
			id        INTEGER PRIMARY KEY,
			title     TEXT NOT NULL,
			excerpt   TEXT NOT NULL DEFAULT '',
			thumbnail TEXT NOT NULL DEFAULT '',
			viewed_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_viewed ON view_history(viewed_at DESC);

		CREATE TABLE IF NOT EXISTS preferences (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// SaveArticle upserts into the saved collection. Saving an already-saved
// article refreshes its saved_at.
func (s *Store) SaveArticle(a Article) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	_, err := s.writeDB.Exec(`
		INSERT INTO saved_articles (id, title, excerpt, thumbnail, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			excerpt = excluded.excerpt,
			thumbnail = excluded.thumbnail,
			saved_at = excluded.saved_at
	`, a.ID, a.Title, a.Excerpt, a.Thumbnail, time.Now())
	if err != nil {
		return fmt.Errorf("saving article %d: %w", a.ID, err)
	}
	return nil
}

// UnsaveArticle removes a saved article. Removing an absent id is a no-op.
func (s *Store) UnsaveArticle(id int64) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, err := s.writeDB.Exec(`DELETE FROM saved_articles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("unsaving article %d: %w", id, err)
	}
	return nil
}

func (s *Store) IsSaved(id int64) (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	var n int
	err := s.readDB.QueryRow(`SELECT COUNT(1) FROM saved_articles WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking saved %d: %w", id, err)
	}
	return n > 0, nil
}

// SavedArticles returns the saved collection, newest save first.
func (s *Store) SavedArticles() ([]Article, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	rows, err := s.readDB.Query(`
		SELECT id, title, excerpt, thumbnail, saved_at
		FROM saved_articles ORDER BY saved_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying saved articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Excerpt, &a.Thumbnail, &a.SavedAt); err != nil {
			return nil, fmt.Errorf("scanning saved article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// RecordView upserts into history; viewing an article again refreshes its
// viewed_at, which moves it to the front of History.
func (s *Store) RecordView(a Article) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	_, err := s.writeDB.Exec(`
		INSERT INTO view_history (id, title, excerpt, thumbnail, viewed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			excerpt = excluded.excerpt,
			thumbnail = excluded.thumbnail,
			viewed_at = excluded.viewed_at
	`, a.ID, a.Title, a.Excerpt, a.Thumbnail, time.Now())
	if err != nil {
		return fmt.Errorf("recording view %d: %w", a.ID, err)
	}
	return nil
}

// History returns viewed articles, most recent view first.
func (s *Store) History() ([]Article, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	rows, err := s.readDB.Query(`
		SELECT id, title, excerpt, thumbnail, viewed_at
		FROM view_history ORDER BY viewed_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Excerpt, &a.Thumbnail, &a.ViewedAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (s *Store) ClearHistory() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, err := s.writeDB.Exec(`DELETE FROM view_history`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// Preferences returns the current preferences record, or an empty one if
// none has been written yet.
func (s *Store) Preferences() (Preferences, error) {
	if err := s.ensureOpen(); err != nil {
		return Preferences{}, err
	}
	return s.readPreferences()
}

func (s *Store) readPreferences() (Preferences, error) {
	var raw string
	err := s.readDB.QueryRow(`SELECT value FROM preferences WHERE key = 'user'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{Version: prefsVersion}, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("reading preferences: %w", err)
	}
	var p Preferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Preferences{}, fmt.Errorf("decoding preferences: %w", err)
	}
	return p, nil
}

func (s *Store) writePreferences(p Preferences) error {
	p.Version = prefsVersion
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	_, err = s.writeDB.Exec(`
		INSERT INTO preferences (key, value) VALUES ('user', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, string(raw))
	if err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}

// AddInterest adds a topic to the interest set. Adding an existing name is
// a no-op. Mutations are serialized so concurrent calls cannot lose
// updates.
func (s *Store) AddInterest(name string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()

	p, err := s.readPreferences()
	if err != nil {
		return err
	}
	if p.HasInterest(name) {
		return nil
	}
	p.Interests = append(p.Interests, Interest{Name: name, AddedAt: time.Now()})
	return s.writePreferences(p)
}

func (s *Store) RemoveInterest(name string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()

	p, err := s.readPreferences()
	if err != nil {
		return err
	}
	kept := p.Interests[:0]
	for _, i := range p.Interests {
		if i.Name != name {
			kept = append(kept, i)
		}
	}
	p.Interests = kept
	return s.writePreferences(p)
}

func (s *Store) Interests() ([]Interest, error) {
	p, err := s.Preferences()
	if err != nil {
		return nil, err
	}
	return p.Interests, nil
}

// Stats reports row counts and the database file size.
func (s *Store) Stats() (saved, history int, size int64, err error) {
	if err = s.ensureOpen(); err != nil {
		return 0, 0, 0, err
	}
	if err = s.readDB.QueryRow(`SELECT COUNT(1) FROM saved_articles`).Scan(&saved); err != nil {
		return 0, 0, 0, fmt.Errorf("counting saved: %w", err)
	}
	if err = s.readDB.QueryRow(`SELECT COUNT(1) FROM view_history`).Scan(&history); err != nil {
		return 0, 0, 0, fmt.Errorf("counting history: %w", err)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("reading db size: %w", err)
	}
	return saved, history, info.Size(), nil
}
