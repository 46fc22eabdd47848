package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps sectors, warehouses and inventory logs in a single
// SQLite file. Column definitions and log payloads are stored as JSON
// documents so warehouses can carry arbitrary inventory schemas.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *SQLiteStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sectors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sectors_owner ON sectors(owner, deleted)`,
		`CREATE TABLE IF NOT EXISTS warehouses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner TEXT NOT NULL,
			sector_id TEXT NOT NULL,
			columns TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_warehouses_scope ON warehouses(owner, sector_id)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id TEXT PRIMARY KEY,
			warehouse_id TEXT NOT NULL,
			owner TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_warehouse ON logs(warehouse_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) FindSectors(ctx context.Context, owner string) ([]Sector, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner, location, deleted FROM sectors
		WHERE owner = ? AND deleted = 0
		ORDER BY created_at ASC, rowid ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("find sectors: %w", err)
	}
	defer rows.Close()

	var sectors []Sector
	for rows.Next() {
		var sec Sector
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.Owner, &sec.Location, &sec.Deleted); err != nil {
			return nil, fmt.Errorf("scan sector: %w", err)
		}
		sectors = append(sectors, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sectors: %w", err)
	}
	return sectors, nil
}

func (s *SQLiteStore) FindSectorByName(ctx context.Context, name, owner string) (*Sector, error) {
	return s.findSector(ctx, `name = ?`, name, owner)
}

// FindSectorByNameFold matches the full name case-insensitively.
func (s *SQLiteStore) FindSectorByNameFold(ctx context.Context, name, owner string) (*Sector, error) {
	return s.findSector(ctx, `name = ? COLLATE NOCASE`, name, owner)
}

func (s *SQLiteStore) findSector(ctx context.Context, nameClause, name, owner string) (*Sector, error) {
	var sec Sector
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner, location, deleted FROM sectors
		WHERE `+nameClause+` AND owner = ? AND deleted = 0
		LIMIT 1
	`, name, owner).Scan(&sec.ID, &sec.Name, &sec.Owner, &sec.Location, &sec.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find sector %q: %w", name, err)
	}
	return &sec, nil
}

func (s *SQLiteStore) FindWarehouses(ctx context.Context, owner, sectorID string) ([]Warehouse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner, sector_id, columns FROM warehouses
		WHERE owner = ? AND sector_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, owner, sectorID)
	if err != nil {
		return nil, fmt.Errorf("find warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, err
		}
		warehouses = append(warehouses, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warehouses: %w", err)
	}
	return warehouses, nil
}

func (s *SQLiteStore) FindWarehouseByName(ctx context.Context, name, sectorID, owner string) (*Warehouse, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner, sector_id, columns FROM warehouses
		WHERE name = ? COLLATE NOCASE AND sector_id = ? AND owner = ?
		LIMIT 1
	`, name, sectorID, owner)

	w, err := scanWarehouse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarehouse(row rowScanner) (*Warehouse, error) {
	var w Warehouse
	var columnsJSON string
	if err := row.Scan(&w.ID, &w.Name, &w.Owner, &w.SectorID, &columnsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan warehouse: %w", err)
	}
	if err := json.Unmarshal([]byte(columnsJSON), &w.Columns); err != nil {
		return nil, fmt.Errorf("decode warehouse columns: %w", err)
	}
	return &w, nil
}

func (s *SQLiteStore) InsertLog(ctx context.Context, rec LogRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return "", fmt.Errorf("encode log data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO logs (id, warehouse_id, owner, data) VALUES (?, ?, ?, ?)
	`, rec.ID, rec.WarehouseID, rec.Owner, string(data))
	if err != nil {
		return "", fmt.Errorf("insert log: %w", err)
	}
	return rec.ID, nil
}

func (s *SQLiteStore) CreateSector(ctx context.Context, sec Sector) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sectors (id, name, owner, location, deleted) VALUES (?, ?, ?, ?, ?)
	`, sec.ID, sec.Name, sec.Owner, sec.Location, sec.Deleted)
	if err != nil {
		return "", fmt.Errorf("create sector: %w", err)
	}
	return sec.ID, nil
}

func (s *SQLiteStore) CreateWarehouse(ctx context.Context, w Warehouse) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	columns, err := json.Marshal(w.Columns)
	if err != nil {
		return "", fmt.Errorf("encode warehouse columns: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO warehouses (id, name, owner, sector_id, columns) VALUES (?, ?, ?, ?, ?)
	`, w.ID, w.Name, w.Owner, w.SectorID, string(columns))
	if err != nil {
		return "", fmt.Errorf("create warehouse: %w", err)
	}
	return w.ID, nil
}

// Stats is a compact snapshot used by status reporting.
type Stats struct {
	Sectors    int
	Warehouses int
	Logs       int
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		q    string
		dest *int
	}{
		{`SELECT COUNT(*) FROM sectors WHERE deleted = 0`, &st.Sectors},
		{`SELECT COUNT(*) FROM warehouses`, &st.Warehouses},
		{`SELECT COUNT(*) FROM logs`, &st.Logs},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.q).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("store stats: %w", err)
		}
	}
	return st, nil
}

// FindLogs returns the stored logs for a warehouse, newest first. Used by
// status reporting and tests; chat turns only ever insert.
func (s *SQLiteStore) FindLogs(ctx context.Context, owner, warehouseID string) ([]LogRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, warehouse_id, owner, data FROM logs
		WHERE owner = ? AND warehouse_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, owner, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("find logs: %w", err)
	}
	defer rows.Close()

	var logs []LogRecord
	for rows.Next() {
		var rec LogRecord
		var dataJSON string
		if err := rows.Scan(&rec.ID, &rec.WarehouseID, &rec.Owner, &dataJSON); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &rec.Data); err != nil {
			return nil, fmt.Errorf("decode log data: %w", err)
		}
		logs = append(logs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return logs, nil
}
