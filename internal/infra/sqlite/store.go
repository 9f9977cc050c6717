package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"offline-quiz-service/internal/pubsub"
)

// Store is the device-local database: the question cache plus results and stats.
// It is opened once per process and shared by every component that needs it.
type Store struct {
	db *sql.DB

	// catMu orders category publishes against new subscriptions.
	catMu      sync.Mutex
	categories *pubsub.Hub[[]string]
}

// NewStore opens (or creates) the database at path. File databases run in WAL
// mode so readers keep seeing the last committed question set while a replace
// is in progress. ":memory:" is supported for tests and demos.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "quiz.db"
	}

	inMemory := path == ":memory:"
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	if inMemory {
		dsn = "file::memory:?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if inMemory {
		// Every connection to :memory: would be a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{
		db:         db,
		categories: pubsub.NewHub[[]string](4),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	s.categories.Close()
	return s.db.Close()
}
