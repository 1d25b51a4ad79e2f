package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kayz/promptblocks/internal/block"
	"github.com/kayz/promptblocks/internal/config"
)

// Recorder appends compile results to daily JSONL files and prunes files
// past the retention window.
type Recorder struct {
	cfg config.AuditConfig
	mu  sync.Mutex
	now func() time.Time
}

type auditRecord struct {
	Timestamp     string   `json:"timestamp"`
	ProgramID     string   `json:"program_id,omitempty"`
	RequestDigest string   `json:"request_digest"`
	FinalPrompt   string   `json:"final_prompt"`
	Sections      []string `json:"sections"`
}

// NewRecorder creates a Recorder. A disabled config yields a Recorder whose
// methods do nothing.
func NewRecorder(cfg config.AuditConfig) *Recorder {
	if strings.TrimSpace(cfg.FilePrefix) == "" {
		cfg.FilePrefix = "compile"
	}
	return &Recorder{cfg: cfg, now: time.Now}
}

// Enabled reports whether records are written.
func (r *Recorder) Enabled() bool {
	return r != nil && r.cfg.Enabled
}

// Record writes one audit line for a compile of blocks that produced prompt.
func (r *Recorder) Record(programID string, blocks []block.Instance, prompt string, sections []Section) error {
	if !r.Enabled() {
		return nil
	}

	if err := os.MkdirAll(r.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	now := r.now()
	filePath := filepath.Join(r.cfg.Dir, fmt.Sprintf("%s-%s.jsonl", r.cfg.FilePrefix, now.Format("2006-01-02")))

	record := auditRecord{
		Timestamp:     now.Format(time.RFC3339),
		ProgramID:     programID,
		RequestDigest: blocksDigest(blocks),
		FinalPrompt:   prompt,
		Sections:      sectionHeadings(sections),
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := appendJSONL(filePath, line); err != nil {
		return err
	}
	return r.cleanupWithNow(now)
}

func appendJSONL(filePath string, line []byte) error {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

// CleanupOldAuditFiles removes audit files older than the retention window.
func (r *Recorder) CleanupOldAuditFiles() error {
	if !r.Enabled() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleanupWithNow(r.now())
}

func (r *Recorder) cleanupWithNow(now time.Time) error {
	if r.cfg.RetentionDays <= 0 {
		return nil
	}

	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list audit dir: %w", err)
	}

	prefix := r.cfg.FilePrefix
	cutoff := now.AddDate(0, 0, -r.cfg.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		filePath := filepath.Join(r.cfg.Dir, name)
		if fileDate, ok := parseAuditDate(name, prefix); ok {
			if fileDate.Before(startOfDay(cutoff)) {
				if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove old audit file %s: %w", filePath, err)
				}
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat audit file %s: %w", filePath, err)
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove old audit file %s: %w", filePath, err)
			}
		}
	}
	return nil
}

func parseAuditDate(filename, prefix string) (time.Time, bool) {
	raw := strings.TrimSuffix(filename, ".jsonl")
	raw = strings.TrimPrefix(raw, prefix+"-")
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sectionHeadings(sections []Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Heading)
	}
	return out
}

func blocksDigest(blocks []block.Instance) string {
	if blocks == nil {
		blocks = []block.Instance{}
	}
	payload, _ := json.Marshal(blocks)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
