// Package recorder persists decoded WITS0 exchanges in SQLite and polls a
// device on an interval.
package recorder

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/wits0/internal/wits0"
)

// Store records every exchange (one ask and its decoded reply) under a UUID.
type Store struct {
	db *sql.DB
}

// Exchange is one stored reply.
type Exchange struct {
	ExchangeID string                `json:"exchange_id"`
	Device     string                `json:"device"`
	CapturedAt time.Time             `json:"captured_at"`
	Records    []wits0.LogicalRecord `json:"-"`
}

// Sample is one stored value for an item.
type Sample struct {
	ExchangeID string    `json:"exchange_id"`
	CapturedAt time.Time `json:"captured_at"`
	Value      string    `json:"value"`
}

// Summary describes the numeric history of one item. Values that do not parse
// as numbers are counted in Skipped.
type Summary struct {
	Item    string  `json:"item"`
	Count   int     `json:"count"`
	Skipped int     `json:"skipped"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// OpenStore opens (creating if needed) the SQLite database at path and
// applies migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores records as one exchange and returns its ID.
func (s *Store) Record(device string, capturedAt time.Time, records []wits0.LogicalRecord) (string, error) {
	id := uuid.New().String()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO wits_exchanges (exchange_id, device, captured_at, frame_count) VALUES (?, ?, ?, ?)`,
		id, device, capturedAt.UnixNano(), len(records)); err != nil {
		return "", fmt.Errorf("failed to insert exchange: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO wits_data_records (exchange_id, frame_index, position, record_id, item_id, value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare data record insert: %w", err)
	}
	defer stmt.Close()

	for fi, lr := range records {
		for pos, dr := range lr.DataRecords {
			if _, err := stmt.Exec(id, fi, pos, dr.Identifier.Record, dr.Identifier.Item, dr.Value); err != nil {
				return "", fmt.Errorf("failed to insert data record %s: %w", dr.Identifier, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit exchange: %w", err)
	}
	return id, nil
}

// Latest returns the most recent exchange for device, or nil if none exists.
func (s *Store) Latest(device string) (*Exchange, error) {
	var ex Exchange
	var capturedAt int64
	var frameCount int
	err := s.db.QueryRow(`SELECT exchange_id, device, captured_at, frame_count FROM wits_exchanges
		WHERE device = ? ORDER BY captured_at DESC LIMIT 1`, device).Scan(&ex.ExchangeID, &ex.Device, &capturedAt, &frameCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest exchange: %w", err)
	}
	ex.CapturedAt = time.Unix(0, capturedAt)

	rows, err := s.db.Query(`SELECT frame_index, record_id, item_id, value FROM wits_data_records
		WHERE exchange_id = ? ORDER BY frame_index, position`, ex.ExchangeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query data records: %w", err)
	}
	defer rows.Close()

	ex.Records = make([]wits0.LogicalRecord, frameCount)
	for rows.Next() {
		var fi int
		var dr wits0.DataRecord
		if err := rows.Scan(&fi, &dr.Identifier.Record, &dr.Identifier.Item, &dr.Value); err != nil {
			return nil, fmt.Errorf("failed to scan data record: %w", err)
		}
		if fi < 0 || fi >= frameCount {
			return nil, fmt.Errorf("data record frame index %d out of range for exchange %s", fi, ex.ExchangeID)
		}
		ex.Records[fi].DataRecords = append(ex.Records[fi].DataRecords, dr)
	}
	return &ex, rows.Err()
}

// Samples returns up to limit values of item (a full id such as "0108") for
// device, newest first. A non-positive limit returns all.
func (s *Store) Samples(device, item string, limit int) ([]Sample, error) {
	id, err := wits0.ParseIdentifier(item)
	if err != nil {
		return nil, err
	}
	query := `SELECT e.exchange_id, e.captured_at, d.value
		FROM wits_data_records d JOIN wits_exchanges e ON e.exchange_id = d.exchange_id
		WHERE e.device = ? AND d.record_id = ? AND d.item_id = ?
		ORDER BY e.captured_at DESC, d.frame_index DESC, d.position DESC`
	args := []interface{}{device, id.Record, id.Item}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var sm Sample
		var capturedAt int64
		if err := rows.Scan(&sm.ExchangeID, &capturedAt, &sm.Value); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		sm.CapturedAt = time.Unix(0, capturedAt)
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// Summarize computes statistics over every stored numeric value of item.
func (s *Store) Summarize(device, item string) (Summary, error) {
	samples, err := s.Samples(device, item, 0)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Item: item}
	values := make([]float64, 0, len(samples))
	for _, sm := range samples {
		v, err := strconv.ParseFloat(strings.TrimSpace(sm.Value), 64)
		if err != nil {
			sum.Skipped++
			continue
		}
		values = append(values, v)
	}

	sum.Count = len(values)
	if sum.Count == 0 {
		return sum, nil
	}
	sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
	if sum.Count == 1 {
		sum.StdDev = 0
	}
	sum.Min = floats.Min(values)
	sum.Max = floats.Max(values)
	return sum, nil
}

// Prune deletes exchanges captured before cutoff and returns how many were
// removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM wits_data_records WHERE exchange_id IN
		(SELECT exchange_id FROM wits_exchanges WHERE captured_at < ?)`, cutoff.UnixNano()); err != nil {
		return 0, fmt.Errorf("failed to prune data records: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM wits_exchanges WHERE captured_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune exchanges: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}
