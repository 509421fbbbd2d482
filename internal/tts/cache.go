package tts

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"dubbin/internal/fileutil"
)

// Cache is the synthesis blob store: wav files named by content hash plus a
// SQLite ledger describing them. Two workers computing the same hash may
// both write; the blobs are byte-identical so the last write wins.
type Cache struct {
	db  *sql.DB
	dir string

	mu sync.Mutex
}

// OpenCache opens (or creates) the cache under dir.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "ledger.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache ledger: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS tts_cache (
		content_hash TEXT PRIMARY KEY,
		voice_id     TEXT NOT NULL,
		text_hash    TEXT NOT NULL,
		blob_path    TEXT NOT NULL,
		duration_ms  INTEGER NOT NULL,
		created_at   TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &Cache{db: db, dir: dir}, nil
}

// Close releases the ledger.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Entry is one ledger row.
type Entry struct {
	ContentHash string
	VoiceID     string
	TextHash    string
	BlobPath    string
	DurationMS  int
	CreatedAt   time.Time
}

// Lookup finds a cached blob by content hash. A ledger row whose blob file
// has been deleted counts as a miss.
func (c *Cache) Lookup(contentHash string) (*Entry, bool, error) {
	row := c.db.QueryRow(
		`SELECT content_hash, voice_id, text_hash, blob_path, duration_ms, created_at
		 FROM tts_cache WHERE content_hash = ?`, contentHash)
	var e Entry
	var created string
	err := row.Scan(&e.ContentHash, &e.VoiceID, &e.TextHash, &e.BlobPath, &e.DurationMS, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}
	if ts, parseErr := time.Parse(time.RFC3339, created); parseErr == nil {
		e.CreatedAt = ts
	}
	if _, statErr := os.Stat(e.BlobPath); statErr != nil {
		return nil, false, nil
	}
	return &e, true, nil
}

// Store copies the wav into the blob directory under its content hash and
// records it in the ledger.
func (c *Cache) Store(contentHash, voiceID, textHash, wavPath string, durationMS int) (*Entry, error) {
	blobPath := filepath.Join(c.dir, contentHash+".wav")
	if err := fileutil.CopyAtomic(wavPath, blobPath); err != nil {
		return nil, fmt.Errorf("store cache blob: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec(
		`INSERT INTO tts_cache (content_hash, voice_id, text_hash, blob_path, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash) DO UPDATE SET
			blob_path = excluded.blob_path,
			duration_ms = excluded.duration_ms,
			created_at = excluded.created_at`,
		contentHash, voiceID, textHash, blobPath, durationMS, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("record cache entry: %w", err)
	}
	return &Entry{
		ContentHash: contentHash,
		VoiceID:     voiceID,
		TextHash:    textHash,
		BlobPath:    blobPath,
		DurationMS:  durationMS,
	}, nil
}

// Len reports how many entries the ledger holds.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM tts_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}
