// Package durable implements treeroom.DurableStore against MySQL: the
// authoritative relational layer described in spec.md §6.4.
package durable

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

const createRoomTreeState = `
CREATE TABLE IF NOT EXISTS room_tree_state (
	id INT AUTO_INCREMENT PRIMARY KEY,
	room_id VARCHAR(64) NOT NULL UNIQUE,
	json_blob TEXT NOT NULL,
	updated_ms BIGINT NOT NULL
)`

const createChatLog = `
CREATE TABLE IF NOT EXISTS chat_log (
	id INT AUTO_INCREMENT PRIMARY KEY,
	room_id VARCHAR(64) NOT NULL,
	player_id VARCHAR(64) NOT NULL,
	player_name VARCHAR(64) NOT NULL,
	player_ip VARCHAR(64) NOT NULL,
	message TEXT NOT NULL,
	created_ms BIGINT NOT NULL,
	INDEX (room_id),
	INDEX (created_ms)
)`

// Store wraps a *sql.DB, or nil when no MYSQL_DSN was configured. Every
// method tolerates a nil db by doing nothing, matching CacheStore's
// best-effort contract (spec.md §7).
type Store struct {
	log *log.Logger
	db  *sql.DB
}

// Connect opens dsn and ensures the schema exists, creating the target
// database first if it is missing (mirroring the original implementation's
// "unknown database" recovery). An empty dsn yields a Store with a nil db
// and a nil error: durability is optional. Any other schema setup failure
// is returned as a fatal error, since a durable store that exists but
// can't create its own tables indicates a configuration problem the
// operator needs to see, per spec.md §7.
func Connect(ctx context.Context, dsn string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{log: logger}
	if dsn == "" {
		return s, nil
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("durable: open mysql: %w", err)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)

	if err := ensureSchema(ctx, db, dsn); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, dsn string) error {
	if err := createTables(ctx, db); err != nil {
		if !isUnknownDatabaseError(err) {
			return fmt.Errorf("durable: schema setup: %w", err)
		}
		if cerr := createDatabase(ctx, dsn); cerr != nil {
			return fmt.Errorf("durable: create database: %w", cerr)
		}
		if err := createTables(ctx, db); err != nil {
			return fmt.Errorf("durable: schema setup after create database: %w", err)
		}
	}
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createRoomTreeState); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, createChatLog); err != nil {
		return err
	}
	return nil
}

func isUnknownDatabaseError(err error) bool {
	var mErr *mysql.MySQLError
	if ok := asMySQLError(err, &mErr); ok {
		return mErr.Number == 1049
	}
	return strings.Contains(strings.ToLower(err.Error()), "unknown database")
}

func asMySQLError(err error, target **mysql.MySQLError) bool {
	for err != nil {
		if mErr, ok := err.(*mysql.MySQLError); ok {
			*target = mErr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// createDatabase connects to the server named by dsn without selecting a
// database, and creates the one dsn names if it doesn't already exist.
func createDatabase(ctx context.Context, dsn string) error {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return err
	}
	dbName := cfg.DBName
	if dbName == "" {
		return nil
	}
	cfg.DBName = ""

	serverDB, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return err
	}
	defer serverDB.Close()

	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", dbName)
	_, err = serverDB.ExecContext(ctx, stmt)
	return err
}

// Close releases the underlying *sql.DB, if any.
func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) GetRoomState(ctx context.Context, roomID string) ([]byte, bool) {
	if s.db == nil {
		return nil, false
	}
	var blob string
	err := s.db.QueryRowContext(ctx, "SELECT json_blob FROM room_tree_state WHERE room_id = ?", roomID).Scan(&blob)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Printf("durable: get room state %s: %v", roomID, err)
		}
		return nil, false
	}
	return []byte(blob), true
}

func (s *Store) UpsertRoomState(ctx context.Context, roomID string, blob []byte, updatedMs int64) {
	if s.db == nil {
		return
	}
	const q = `
INSERT INTO room_tree_state (room_id, json_blob, updated_ms)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE json_blob = VALUES(json_blob), updated_ms = VALUES(updated_ms)`
	if _, err := s.db.ExecContext(ctx, q, roomID, string(blob), updatedMs); err != nil {
		s.log.Printf("durable: upsert room state %s: %v", roomID, err)
	}
}

func (s *Store) InsertChatMessage(ctx context.Context, roomID, playerID, playerName, playerIP, message string, createdMs int64) {
	if s.db == nil {
		return
	}
	const q = `
INSERT INTO chat_log (room_id, player_id, player_name, player_ip, message, created_ms)
VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, roomID, playerID, playerName, playerIP, message, createdMs); err != nil {
		s.log.Printf("durable: insert chat message %s: %v", roomID, err)
	}
}

func (s *Store) DeleteChatHistory(ctx context.Context, roomID string) {
	if s.db == nil {
		return
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_log WHERE room_id = ?", roomID); err != nil {
		s.log.Printf("durable: delete chat history %s: %v", roomID, err)
	}
}
