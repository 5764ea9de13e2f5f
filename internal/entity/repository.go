package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null"

	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
)

// Repository defines sensor persistence operations.
type Repository interface {
	// GetByID retrieves a sensor by unique id.
	// Returns ErrSensorNotFound if it does not exist.
	GetByID(ctx context.Context, uniqueID string) (*Sensor, error)

	// List retrieves all sensors ordered by kind, mixer number and key.
	List(ctx context.Context) ([]Sensor, error)

	// ListByKind retrieves the sensors of one kind.
	ListByKind(ctx context.Context, kind econet.Kind) ([]Sensor, error)

	// Upsert inserts a sensor or refreshes its metadata. An existing last
	// value is only replaced when the new record carries one.
	Upsert(ctx context.Context, s *Sensor) error

	// UpdateValue records the latest state of a sensor.
	// Returns ErrSensorNotFound if it does not exist.
	UpdateValue(ctx context.Context, uniqueID string, value null.Float, text null.String, at time.Time) error

	// Delete removes a sensor by unique id.
	// Returns ErrSensorNotFound if it does not exist.
	Delete(ctx context.Context, uniqueID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sensorColumns = `unique_id, entry_id, sensor_key, translation_key, kind, sub_index,
	unit, device_class, state_class, entity_category, icon, precision,
	last_value, last_text, updated_at, created_at`

// GetByID retrieves a sensor by unique id.
func (r *SQLiteRepository) GetByID(ctx context.Context, uniqueID string) (*Sensor, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE unique_id = ?`, uniqueID)

	s, err := scanSensor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSensorNotFound
		}
		return nil, fmt.Errorf("querying sensor by id: %w", err)
	}
	return s, nil
}

// List retrieves all sensors.
func (r *SQLiteRepository) List(ctx context.Context) ([]Sensor, error) {
	return r.querySensors(ctx,
		`SELECT `+sensorColumns+` FROM sensors ORDER BY kind, sub_index, sensor_key`)
}

// ListByKind retrieves the sensors of one kind.
func (r *SQLiteRepository) ListByKind(ctx context.Context, kind econet.Kind) ([]Sensor, error) {
	return r.querySensors(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE kind = ? ORDER BY sub_index, sensor_key`, string(kind))
}

// Upsert inserts or refreshes a sensor.
func (r *SQLiteRepository) Upsert(ctx context.Context, s *Sensor) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensors (`+sensorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET
			entry_id = excluded.entry_id,
			sensor_key = excluded.sensor_key,
			translation_key = excluded.translation_key,
			kind = excluded.kind,
			sub_index = excluded.sub_index,
			unit = excluded.unit,
			device_class = excluded.device_class,
			state_class = excluded.state_class,
			entity_category = excluded.entity_category,
			icon = excluded.icon,
			precision = excluded.precision,
			last_value = CASE WHEN excluded.updated_at IS NULL THEN sensors.last_value ELSE excluded.last_value END,
			last_text = CASE WHEN excluded.updated_at IS NULL THEN sensors.last_text ELSE excluded.last_text END,
			updated_at = COALESCE(excluded.updated_at, sensors.updated_at)`,
		s.UniqueID, s.EntryID, s.Key, s.TranslationKey, string(s.Kind), s.SubIndex,
		s.Unit, s.DeviceClass, s.StateClass, s.EntityCategory, s.Icon, s.Precision,
		s.LastValue, s.LastText, formatNullTime(s.UpdatedAt), s.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting sensor %s: %w", s.UniqueID, err)
	}
	return nil
}

// UpdateValue records the latest state of a sensor.
func (r *SQLiteRepository) UpdateValue(ctx context.Context, uniqueID string, value null.Float, text null.String, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sensors SET last_value = ?, last_text = ?, updated_at = ? WHERE unique_id = ?`,
		value, text, at.UTC().Format(time.RFC3339Nano), uniqueID,
	)
	if err != nil {
		return fmt.Errorf("updating sensor value: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a sensor by unique id.
func (r *SQLiteRepository) Delete(ctx context.Context, uniqueID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sensors WHERE unique_id = ?`, uniqueID)
	if err != nil {
		return fmt.Errorf("deleting sensor: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrSensorNotFound
	}
	return nil
}

func (r *SQLiteRepository) querySensors(ctx context.Context, query string, args ...any) ([]Sensor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close()

	var sensors []Sensor
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sensor: %w", err)
		}
		sensors = append(sensors, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}
	return sensors, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSensor(row rowScanner) (*Sensor, error) {
	var (
		s         Sensor
		kind      string
		updatedAt sql.NullString
		createdAt string
	)
	err := row.Scan(
		&s.UniqueID, &s.EntryID, &s.Key, &s.TranslationKey, &kind, &s.SubIndex,
		&s.Unit, &s.DeviceClass, &s.StateClass, &s.EntityCategory, &s.Icon, &s.Precision,
		&s.LastValue, &s.LastText, &updatedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	s.Kind = econet.Kind(kind)
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	if updatedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, updatedAt.String); err == nil {
			s.UpdatedAt = null.TimeFrom(t)
		}
	}
	return &s, nil
}

func formatNullTime(t null.Time) sql.NullString {
	if !t.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Time.UTC().Format(time.RFC3339Nano), Valid: true}
}
