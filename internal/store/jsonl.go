// internal/store/jsonl.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwiater/miasma/internal/experiment"
	"github.com/mwiater/miasma/internal/logging"
)

// DefaultArtifactDir is where JSONL artifacts land when no directory is
// configured.
const DefaultArtifactDir = "miasmaData/experiments"

// JSONL appends execution records to per-model artifact files under
// <dir>/<experiment-slug>/<model>.jsonl. Files are created lazily on
// the first record, so a dry run leaves no trace on disk.
type JSONL struct {
	dir   string
	slug  string
	files map[string]*os.File
}

// NewJSONL returns a sink writing under dir, or DefaultArtifactDir when
// dir is empty.
func NewJSONL(dir string) *JSONL {
	if dir == "" {
		dir = DefaultArtifactDir
	}
	return &JSONL{dir: dir, files: make(map[string]*os.File)}
}

// CreateExperiment derives the artifact directory name from the
// experiment. Nothing is written until the first execution arrives.
func (j *JSONL) CreateExperiment(_ context.Context, cfg experiment.Config) error {
	j.slug = slugify(cfg.Name) + "-" + shortID(cfg.ID.String())
	return nil
}

// SaveExecution appends the record to the artifact file of its model.
func (j *JSONL) SaveExecution(_ context.Context, rec experiment.Record) error {
	if j.slug == "" {
		j.slug = "experiment-" + shortID(rec.ExperimentID.String())
	}
	f, ok := j.files[rec.Model]
	if !ok {
		dir := filepath.Join(j.dir, j.slug)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
		path := filepath.Join(dir, slugify(rec.Model)+".jsonl")
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open artifact file: %w", err)
		}
		j.files[rec.Model] = f
		logging.LogRequest(logging.DirectionToSink, path, rec.Model, "", nil)
	}
	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return fmt.Errorf("write artifact record: %w", err)
	}
	return nil
}

// Close closes every open artifact file.
func (j *JSONL) Close() {
	for _, f := range j.files {
		f.Close()
	}
	j.files = make(map[string]*os.File)
}

// slugify lowercases s and reduces it to [a-z0-9-] so it is safe as a
// directory or file name. Model tags like "qwen3:4b" become "qwen3-4b".
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == ':', r == '.', r == '/':
			b.WriteRune('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	out = strings.Trim(out, "-")
	if out == "" {
		return "experiment"
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
