package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".safar"

// Paths holds resolved filesystem paths for Safar data.
type Paths struct {
	Base     string // ~/.safar
	Config   string // ~/.safar/config.yaml
	Data     string // ~/.safar/data
	Tickets  string // ~/.safar/data/tickets.jsonl
	RAGDB    string // ~/.safar/data/rag.db
	Feedback string // ~/.safar/data/feedback.csv
	Docs     string // ~/.safar/docs
	Logs     string // ~/.safar/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If SAFAR_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("SAFAR_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:     base,
		Config:   filepath.Join(base, "config.yaml"),
		Data:     filepath.Join(base, "data"),
		Tickets:  filepath.Join(base, "data", "tickets.jsonl"),
		RAGDB:    filepath.Join(base, "data", "rag.db"),
		Feedback: filepath.Join(base, "data", "feedback.csv"),
		Docs:     filepath.Join(base, "docs"),
		Logs:     filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Docs, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
