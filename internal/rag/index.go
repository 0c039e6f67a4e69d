package rag

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Snippet is one retrieved document chunk.
type Snippet struct {
	ID       string  `json:"id"`
	Document string  `json:"document"`
	Source   string  `json:"source"`
	Index    int     `json:"chunk_index"`
	Distance float64 `json:"distance"`
}

// IndexConfig controls document chunking.
type IndexConfig struct {
	ChunkSize    int // characters per chunk
	ChunkOverlap int // characters carried between adjacent chunks
}

// Index is the retrieval store over a folder of policy documents.
type Index struct {
	db  *DB
	cfg IndexConfig
}

// NewIndex creates an index over the given database.
func NewIndex(db *DB, cfg IndexConfig) *Index {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 100
	}
	return &Index{db: db, cfg: cfg}
}

// IngestStats summarizes an ingestion run.
type IngestStats struct {
	Documents    int
	AddedChunks  int
	SkippedFiles []string
}

// IngestFolder chunks and indexes every .txt/.md file under folder.
// Previously indexed chunks for a re-ingested file are replaced. Chunk
// IDs carry a random suffix so re-ingestion never collides with stale
// rows from an interrupted run.
func (ix *Index) IngestFolder(folder string) (IngestStats, error) {
	var stats IngestStats

	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return stats, fmt.Errorf("folder not found: %s", folder)
	}

	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			stats.SkippedFiles = append(stats.SkippedFiles, path)
			return nil
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			stats.SkippedFiles = append(stats.SkippedFiles, path)
			return nil
		}

		name := filepath.Base(path)
		if err := ix.replaceDocument(name, text); err != nil {
			stats.SkippedFiles = append(stats.SkippedFiles, path)
			return nil
		}
		stats.Documents++
		stats.AddedChunks += len(chunkText(text, ix.cfg.ChunkSize, ix.cfg.ChunkOverlap))
		return nil
	})

	return stats, err
}

// IngestDocument indexes a single named document, replacing any previous
// chunks for the same source name.
func (ix *Index) IngestDocument(name, text string) (int, error) {
	if err := ix.replaceDocument(name, text); err != nil {
		return 0, err
	}
	return len(chunkText(text, ix.cfg.ChunkSize, ix.cfg.ChunkOverlap)), nil
}

func (ix *Index) replaceDocument(name, text string) error {
	tx, err := ix.db.sql.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM doc_chunks WHERE source = ?", name); err != nil {
		tx.Rollback()
		return err
	}

	suffix := uuid.New().String()[:8]
	for i, chunk := range chunkText(text, ix.cfg.ChunkSize, ix.cfg.ChunkOverlap) {
		id := fmt.Sprintf("%s_%d_%s", name, i, suffix)
		if _, err := tx.Exec(
			"INSERT INTO doc_chunks (id, source, chunk_index, content) VALUES (?, ?, ?, ?)",
			id, name, i, chunk,
		); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Query returns the topK chunks ranked by FTS5 relevance. The FTS rank
// (more negative is better) is surfaced as a distance-like score.
func (ix *Index) Query(query string, topK int) ([]Snippet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}

	rows, err := ix.db.sql.Query(
		`SELECT dc.id, dc.source, dc.chunk_index, dc.content, rank
		 FROM chunks_fts
		 JOIN doc_chunks dc ON dc.rowid = chunks_fts.rowid
		 WHERE chunks_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		ftsQuery(query), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snippets []Snippet
	for rows.Next() {
		var s Snippet
		if err := rows.Scan(&s.ID, &s.Source, &s.Index, &s.Document, &s.Distance); err != nil {
			return nil, err
		}
		snippets = append(snippets, s)
	}
	return snippets, rows.Err()
}

// Count returns the total number of indexed chunks.
func (ix *Index) Count() (int, error) {
	var n int
	err := ix.db.sql.QueryRow("SELECT COUNT(*) FROM doc_chunks").Scan(&n)
	return n, err
}

// ftsQuery turns free text into an FTS5 OR-query over its terms, so
// natural-language questions match without FTS syntax errors.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"'?!.,;:()`+"؟،؛")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, ``)+`"`)
	}
	return strings.Join(terms, " OR ")
}

// chunkText splits text into fixed-size windows with overlap carried
// between adjacent chunks.
func chunkText(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}
