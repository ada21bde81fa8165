// Package store provides the SQLite-backed local store for domain
// records and the durable sync queue.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/critterhaus/burrow/internal/types"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the SQLite-backed implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath, applies
// pragmas, and runs migrations. Failure here is fatal to the caller; no
// store operation is possible until a retry succeeds.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- Pets ---

const upsertPetSQL = `
	INSERT INTO pets (id, owner_id, name, species, stage, happiness, hunger, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner_id = excluded.owner_id,
		name = excluded.name,
		species = excluded.species,
		stage = excluded.stage,
		happiness = excluded.happiness,
		hunger = excluded.hunger,
		updated_at = excluded.updated_at`

// PutPet upserts a pet keyed by id. Duplicate ids overwrite.
func (s *SQLiteStore) PutPet(ctx context.Context, pet *types.Pet) error {
	_, err := s.db.ExecContext(ctx, upsertPetSQL,
		pet.ID, pet.OwnerID, pet.Name, pet.Species, pet.Stage,
		pet.Happiness, pet.Hunger,
		formatTime(pet.CreatedAt), formatTime(pet.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put pet: %w", err)
	}
	return nil
}

func scanPet(scanner interface{ Scan(...any) error }) (*types.Pet, error) {
	var pet types.Pet
	var createdAt, updatedAt string
	if err := scanner.Scan(&pet.ID, &pet.OwnerID, &pet.Name, &pet.Species,
		&pet.Stage, &pet.Happiness, &pet.Hunger, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	pet.CreatedAt = parseTime(createdAt)
	pet.UpdatedAt = parseTime(updatedAt)
	return &pet, nil
}

// GetPet retrieves a pet by id.
func (s *SQLiteStore) GetPet(ctx context.Context, id string) (*types.Pet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, species, stage, happiness, hunger, created_at, updated_at
		FROM pets WHERE id = ?`, id)

	pet, err := scanPet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan pet: %w", err)
	}
	return pet, nil
}

// DeletePet removes a pet by id. Used only for explicit user deletion.
func (s *SQLiteStore) DeletePet(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPetsByOwner returns a user's pets in insertion order.
func (s *SQLiteStore) ListPetsByOwner(ctx context.Context, ownerID string) ([]types.Pet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, species, stage, happiness, hunger, created_at, updated_at
		FROM pets WHERE owner_id = ?
		ORDER BY rowid ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query pets: %w", err)
	}
	defer rows.Close()

	pets := make([]types.Pet, 0)
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pet: %w", err)
		}
		pets = append(pets, *pet)
	}
	return pets, rows.Err()
}

// --- Feeding records ---

const upsertFeedingSQL = `
	INSERT INTO feeding_records (id, pet_id, food_type, amount, fed_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		pet_id = excluded.pet_id,
		food_type = excluded.food_type,
		amount = excluded.amount,
		fed_at = excluded.fed_at`

// PutFeeding upserts a feeding record keyed by id.
func (s *SQLiteStore) PutFeeding(ctx context.Context, rec *types.FeedingRecord) error {
	_, err := s.db.ExecContext(ctx, upsertFeedingSQL,
		rec.ID, rec.PetID, rec.FoodType, rec.Amount, formatTime(rec.FedAt))
	if err != nil {
		return fmt.Errorf("put feeding record: %w", err)
	}
	return nil
}

func scanFeeding(scanner interface{ Scan(...any) error }) (*types.FeedingRecord, error) {
	var rec types.FeedingRecord
	var fedAt string
	if err := scanner.Scan(&rec.ID, &rec.PetID, &rec.FoodType, &rec.Amount, &fedAt); err != nil {
		return nil, err
	}
	rec.FedAt = parseTime(fedAt)
	return &rec, nil
}

// GetFeeding retrieves a feeding record by id.
func (s *SQLiteStore) GetFeeding(ctx context.Context, id string) (*types.FeedingRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pet_id, food_type, amount, fed_at
		FROM feeding_records WHERE id = ?`, id)

	rec, err := scanFeeding(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan feeding record: %w", err)
	}
	return rec, nil
}

// ListFeedingsByPet returns a pet's feeding history, newest first.
func (s *SQLiteStore) ListFeedingsByPet(ctx context.Context, petID string) ([]types.FeedingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pet_id, food_type, amount, fed_at
		FROM feeding_records WHERE pet_id = ?
		ORDER BY fed_at DESC`, petID)
	if err != nil {
		return nil, fmt.Errorf("query feeding records: %w", err)
	}
	defer rows.Close()

	recs := make([]types.FeedingRecord, 0)
	for rows.Next() {
		rec, err := scanFeeding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feeding record: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// --- Evolution records ---

const upsertEvolutionSQL = `
	INSERT INTO evolution_records (id, pet_id, from_stage, to_stage, evolved_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		pet_id = excluded.pet_id,
		from_stage = excluded.from_stage,
		to_stage = excluded.to_stage,
		evolved_at = excluded.evolved_at`

// PutEvolution upserts an evolution record keyed by id.
func (s *SQLiteStore) PutEvolution(ctx context.Context, rec *types.EvolutionRecord) error {
	_, err := s.db.ExecContext(ctx, upsertEvolutionSQL,
		rec.ID, rec.PetID, rec.FromStage, rec.ToStage, formatTime(rec.EvolvedAt))
	if err != nil {
		return fmt.Errorf("put evolution record: %w", err)
	}
	return nil
}

func scanEvolution(scanner interface{ Scan(...any) error }) (*types.EvolutionRecord, error) {
	var rec types.EvolutionRecord
	var evolvedAt string
	if err := scanner.Scan(&rec.ID, &rec.PetID, &rec.FromStage, &rec.ToStage, &evolvedAt); err != nil {
		return nil, err
	}
	rec.EvolvedAt = parseTime(evolvedAt)
	return &rec, nil
}

// GetEvolution retrieves an evolution record by id.
func (s *SQLiteStore) GetEvolution(ctx context.Context, id string) (*types.EvolutionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pet_id, from_stage, to_stage, evolved_at
		FROM evolution_records WHERE id = ?`, id)

	rec, err := scanEvolution(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan evolution record: %w", err)
	}
	return rec, nil
}

// ListEvolutionsByPet returns a pet's evolution history, newest first.
func (s *SQLiteStore) ListEvolutionsByPet(ctx context.Context, petID string) ([]types.EvolutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pet_id, from_stage, to_stage, evolved_at
		FROM evolution_records WHERE pet_id = ?
		ORDER BY evolved_at DESC`, petID)
	if err != nil {
		return nil, fmt.Errorf("query evolution records: %w", err)
	}
	defer rows.Close()

	recs := make([]types.EvolutionRecord, 0)
	for rows.Next() {
		rec, err := scanEvolution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evolution record: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// --- Game sessions ---

const upsertSessionSQL = `
	INSERT INTO game_sessions (id, user_id, game_type, score, duration_ms, played_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		game_type = excluded.game_type,
		score = excluded.score,
		duration_ms = excluded.duration_ms,
		played_at = excluded.played_at`

// PutSession upserts a game session keyed by id.
func (s *SQLiteStore) PutSession(ctx context.Context, sess *types.GameSession) error {
	_, err := s.db.ExecContext(ctx, upsertSessionSQL,
		sess.ID, sess.UserID, sess.GameType, sess.Score, sess.DurationMS, formatTime(sess.PlayedAt))
	if err != nil {
		return fmt.Errorf("put game session: %w", err)
	}
	return nil
}

func scanSession(scanner interface{ Scan(...any) error }) (*types.GameSession, error) {
	var sess types.GameSession
	var playedAt string
	if err := scanner.Scan(&sess.ID, &sess.UserID, &sess.GameType, &sess.Score, &sess.DurationMS, &playedAt); err != nil {
		return nil, err
	}
	sess.PlayedAt = parseTime(playedAt)
	return &sess, nil
}

// GetSession retrieves a game session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*types.GameSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, game_type, score, duration_ms, played_at
		FROM game_sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan game session: %w", err)
	}
	return sess, nil
}

// ListSessionsByUser returns a user's sessions, newest first. A limit of
// zero or less returns all sessions.
func (s *SQLiteStore) ListSessionsByUser(ctx context.Context, userID string, limit int) ([]types.GameSession, error) {
	query := `
		SELECT id, user_id, game_type, score, duration_ms, played_at
		FROM game_sessions WHERE user_id = ?
		ORDER BY played_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query game sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]types.GameSession, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// --- Bulk operations ---

// ExportAll serializes every record kind into one snapshot.
func (s *SQLiteStore) ExportAll(ctx context.Context) (*types.Snapshot, error) {
	snap := &types.Snapshot{
		Pets:             make([]types.Pet, 0),
		FeedingRecords:   make([]types.FeedingRecord, 0),
		EvolutionRecords: make([]types.EvolutionRecord, 0),
		GameSessions:     make([]types.GameSession, 0),
		ExportedAt:       time.Now().UTC(),
		Version:          types.SnapshotVersion,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, species, stage, happiness, hunger, created_at, updated_at
		FROM pets ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("export pets: %w", err)
	}
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("export pets: %w", err)
		}
		snap.Pets = append(snap.Pets, *pet)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export pets: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, pet_id, food_type, amount, fed_at
		FROM feeding_records ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("export feeding records: %w", err)
	}
	for rows.Next() {
		rec, err := scanFeeding(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("export feeding records: %w", err)
		}
		snap.FeedingRecords = append(snap.FeedingRecords, *rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export feeding records: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, pet_id, from_stage, to_stage, evolved_at
		FROM evolution_records ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("export evolution records: %w", err)
	}
	for rows.Next() {
		rec, err := scanEvolution(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("export evolution records: %w", err)
		}
		snap.EvolutionRecords = append(snap.EvolutionRecords, *rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export evolution records: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, user_id, game_type, score, duration_ms, played_at
		FROM game_sessions ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("export game sessions: %w", err)
	}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("export game sessions: %w", err)
		}
		snap.GameSessions = append(snap.GameSessions, *sess)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export game sessions: %w", err)
	}

	return snap, nil
}

// ImportAll upserts every record in the snapshot inside one transaction.
// Any failure rolls back the whole import; the store is left unchanged.
func (s *SQLiteStore) ImportAll(ctx context.Context, snap *types.Snapshot) error {
	if snap.Version != types.SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedSnapshot, snap.Version)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range snap.Pets {
		pet := &snap.Pets[i]
		if pet.ID == "" {
			return fmt.Errorf("%w: pet %d missing id", ErrMalformedSnapshot, i)
		}
		if _, err := tx.ExecContext(ctx, upsertPetSQL,
			pet.ID, pet.OwnerID, pet.Name, pet.Species, pet.Stage,
			pet.Happiness, pet.Hunger,
			formatTime(pet.CreatedAt), formatTime(pet.UpdatedAt)); err != nil {
			return fmt.Errorf("import pet %s: %w", pet.ID, err)
		}
	}

	for i := range snap.FeedingRecords {
		rec := &snap.FeedingRecords[i]
		if rec.ID == "" {
			return fmt.Errorf("%w: feeding record %d missing id", ErrMalformedSnapshot, i)
		}
		if _, err := tx.ExecContext(ctx, upsertFeedingSQL,
			rec.ID, rec.PetID, rec.FoodType, rec.Amount, formatTime(rec.FedAt)); err != nil {
			return fmt.Errorf("import feeding record %s: %w", rec.ID, err)
		}
	}

	for i := range snap.EvolutionRecords {
		rec := &snap.EvolutionRecords[i]
		if rec.ID == "" {
			return fmt.Errorf("%w: evolution record %d missing id", ErrMalformedSnapshot, i)
		}
		if _, err := tx.ExecContext(ctx, upsertEvolutionSQL,
			rec.ID, rec.PetID, rec.FromStage, rec.ToStage, formatTime(rec.EvolvedAt)); err != nil {
			return fmt.Errorf("import evolution record %s: %w", rec.ID, err)
		}
	}

	for i := range snap.GameSessions {
		sess := &snap.GameSessions[i]
		if sess.ID == "" {
			return fmt.Errorf("%w: game session %d missing id", ErrMalformedSnapshot, i)
		}
		if _, err := tx.ExecContext(ctx, upsertSessionSQL,
			sess.ID, sess.UserID, sess.GameType, sess.Score, sess.DurationMS,
			formatTime(sess.PlayedAt)); err != nil {
			return fmt.Errorf("import game session %s: %w", sess.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// retentionTargets maps each history kind to its table and timestamp
// column. Pets are live entities and are never retention-purged.
var retentionTargets = []struct {
	kind      types.RecordKind
	table     string
	timestamp string
}{
	{types.KindFeeding, "feeding_records", "fed_at"},
	{types.KindEvolution, "evolution_records", "evolved_at"},
	{types.KindSession, "game_sessions", "played_at"},
}

// ClearOldData deletes history records older than the retention window.
// Rows still referenced by a pending sync queue item are skipped; when
// in doubt the row is kept. Returns the number of rows deleted.
func (s *SQLiteStore) ClearOldData(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	cutoff := formatTime(time.Now().UTC().AddDate(0, 0, -retentionDays))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, target := range retentionTargets {
		query := fmt.Sprintf(`
			DELETE FROM %s
			WHERE %s < ?
			AND id NOT IN (SELECT entity_id FROM sync_queue WHERE record_kind = ?)`,
			target.table, target.timestamp)
		result, err := tx.ExecContext(ctx, query, cutoff, string(target.kind))
		if err != nil {
			return 0, fmt.Errorf("clear old %s: %w", target.table, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected for %s: %w", target.table, err)
		}
		total += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return total, nil
}

// ClearAll removes every domain record and queue item in one transaction.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"pets", "feeding_records", "evolution_records", "game_sessions", "sync_queue", "sync_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

// kindTables maps each record kind to its table for stats.
var kindTables = map[types.RecordKind]string{
	types.KindPet:       "pets",
	types.KindFeeding:   "feeding_records",
	types.KindEvolution: "evolution_records",
	types.KindSession:   "game_sessions",
}

// Stats returns per-kind record counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*types.StoreStats, error) {
	stats := &types.StoreStats{Counts: make(map[types.RecordKind]int64, len(kindTables))}
	for _, kind := range types.Kinds {
		var count int64
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+kindTables[kind]).Scan(&count); err != nil {
			return nil, fmt.Errorf("count %s: %w", kindTables[kind], err)
		}
		stats.Counts[kind] = count
	}
	return stats, nil
}
