package record

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/planvite/chatsync/internal/push"
)

// DB is the SQLite-backed record store used by the headless daemon and by
// tests. After each successful mutation it feeds the corresponding row change
// into the push channel, standing in for the backend's realtime feed.
type DB struct {
	*sql.DB
	channel *push.Channel
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
// channel may be nil, in which case no row changes are published.
func Open(path string, channel *push.Channel) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, channel: channel}, nil
}

// publish feeds a row change into the push channel. Failures are swallowed:
// the write already succeeded and subscribers reconcile by id on resync.
func (db *DB) publish(table, op string, row any) {
	if db.channel == nil {
		return
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return
	}
	_ = db.channel.IngestRowChange(push.RowChange{Table: table, Op: op, Row: raw})
}
