package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, default so the module builds without cgo

	"ragrt/internal/logging"
	"ragrt/internal/types"
)

// SQLStore is a durable variant of Store: every insert is mirrored to a
// SQLite-backed table (the persisted layout named in spec.md §6), while
// search/stats/cleanup still operate over the in-memory mirror for the
// brute-force baseline contract. This mirrors the teacher's pattern of
// keeping a fast in-memory path alongside a durable row per record
// (internal/store/vector_store.go's `vectors` table).
//
// A build with the sqlite_vec+cgo tag additionally registers the
// sqlite-vec extension (see init_vec.go); wiring an ANN index on top of
// this table is an optional optimization per spec.md §4.B and is not
// required for correctness.
type SQLStore struct {
	*Store
	db *sql.DB
}

// OpenSQLStore opens (creating if necessary) a SQLite database at path
// and wraps it with the in-memory Store used for search.
func OpenSQLStore(path string, dim int) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.NewError(types.KindStorage, "vectorstore.OpenSQLStore", "open database", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS rag_embeddings (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL DEFAULT '',
		chunk_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		embedding TEXT NOT NULL,
		position INTEGER NOT NULL,
		confidence REAL NOT NULL,
		sacred_score REAL NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		forward_weight REAL,
		back_weight REAL,
		created_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, types.NewError(types.KindStorage, "vectorstore.OpenSQLStore", "create table", err)
	}

	s := &SQLStore{Store: New(dim), db: db}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) loadAll() error {
	rows, err := s.db.Query(`SELECT id, doc_id, chunk_id, content, embedding, position, confidence, metadata, forward_weight, back_weight, created_at FROM rag_embeddings ORDER BY rowid`)
	if err != nil {
		return types.NewError(types.KindStorage, "vectorstore.loadAll", "query records", err)
	}
	defer rows.Close()

	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()

	for rows.Next() {
		var id, docID, chunkID, content, embJSON, metaJSON, createdAt string
		var position int
		var confidence float64
		var forwardWeight, backWeight sql.NullFloat64
		if err := rows.Scan(&id, &docID, &chunkID, &content, &embJSON, &position, &confidence, &metaJSON, &forwardWeight, &backWeight, &createdAt); err != nil {
			return types.NewError(types.KindStorage, "vectorstore.loadAll", "scan row", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			logging.VectorStoreError("skipping record %s: bad embedding JSON: %v", id, err)
			continue
		}
		var metadata map[string]string
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
				logging.VectorStoreError("record %s: bad metadata JSON, dropping metadata: %v", id, err)
			}
		}
		createdTime, _ := time.Parse(time.RFC3339Nano, createdAt)
		rec := types.EmbeddingRecord{
			ID: id, DocID: docID, ChunkID: chunkID, Vector: vec, Text: content,
			Position: types.CyclePosition(position), Confidence: confidence,
			Metadata:      metadata,
			ForwardWeight: nullFloatPtr(forwardWeight),
			BackWeight:    nullFloatPtr(backWeight),
			CreatedAt:     createdTime,
		}
		s.Store.records = append(s.Store.records, timedRecord{EmbeddingRecord: rec, seq: len(s.Store.records), createdAt: createdTime})
		if s.Store.dim == 0 {
			s.Store.dim = len(vec)
		}
	}
	return rows.Err()
}

func nullFloatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func floatPtrValue(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// Insert persists the record durably and mirrors it into the in-memory
// store used for search.
func (s *SQLStore) Insert(ctx context.Context, rec types.EmbeddingRecord) (string, error) {
	id, err := s.Store.Insert(ctx, rec)
	if err != nil {
		return "", err
	}

	s.Store.mu.RLock()
	var stored types.EmbeddingRecord
	for _, r := range s.Store.records {
		if r.ID == id {
			stored = r.EmbeddingRecord
			break
		}
	}
	s.Store.mu.RUnlock()

	embJSON, err := json.Marshal(stored.Vector)
	if err != nil {
		return id, types.NewError(types.KindPersistence, "vectorstore.Insert", "marshal embedding", err)
	}
	metaJSON, err := json.Marshal(stored.Metadata)
	if err != nil {
		return id, types.NewError(types.KindPersistence, "vectorstore.Insert", "marshal metadata", err)
	}
	sacred := 1.0
	if stored.Position.IsSacred() {
		sacred = SacredBoost
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rag_embeddings (id, doc_id, chunk_id, content, embedding, position, confidence, sacred_score, metadata, forward_weight, back_weight, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, stored.DocID, stored.ChunkID, stored.Text, string(embJSON), int(stored.Position), stored.Confidence, sacred,
		string(metaJSON), floatPtrValue(stored.ForwardWeight), floatPtrValue(stored.BackWeight),
		stored.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return id, types.NewError(types.KindPersistence, "vectorstore.Insert", "write durable row", err)
	}
	return id, nil
}

// CleanupBefore removes stale records from both the durable table and
// the in-memory mirror.
func (s *SQLStore) CleanupBefore(ctx context.Context, ageDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -ageDays).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM rag_embeddings WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, types.NewError(types.KindPersistence, "vectorstore.CleanupBefore", "delete durable rows", err)
	}
	affected, _ := res.RowsAffected()

	if _, err := s.Store.CleanupBefore(ctx, ageDays); err != nil {
		return int(affected), err
	}
	return int(affected), nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ types.VectorStore = (*SQLStore)(nil)
