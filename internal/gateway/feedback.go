package gateway

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// FeedbackEntry is one user rating of an assistant reply.
type FeedbackEntry struct {
	UserID   string `json:"user_id"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Rating   int    `json:"rating"` // 1..5
	Like     bool   `json:"like,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// FeedbackLog appends ratings to a CSV file. The header row is written
// when the file is created.
type FeedbackLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFeedbackLog creates a feedback log writing to path.
func NewFeedbackLog(path string) *FeedbackLog {
	return &FeedbackLog{path: path, now: time.Now}
}

// Append adds one entry to the CSV file.
func (l *FeedbackLog) Append(entry FeedbackEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating feedback dir: %w", err)
	}

	_, statErr := os.Stat(l.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening feedback log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		header := []string{"timestamp", "user_id", "question", "answer", "rating", "like", "comment"}
		if err := w.Write(header); err != nil {
			return err
		}
	}
	record := []string{
		l.now().UTC().Format(time.RFC3339),
		entry.UserID,
		entry.Question,
		entry.Answer,
		strconv.Itoa(entry.Rating),
		strconv.FormatBool(entry.Like),
		entry.Comment,
	}
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
