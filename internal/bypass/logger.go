// Package bypass records emergency-bypass invocations for audit. Each bypass
// is one JSON file; the record carries who bypassed, why, what changed, which
// gates were skipped, and which exemption rules would have made the bypass
// unnecessary.
package bypass

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TheNeerajGarg/gatekeeper/internal/match"
	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

// Logger writes and reads bypass records.
type Logger struct {
	dir    string
	engine *match.Engine // optional, for suggestions
	now    func() time.Time
}

// New creates a Logger writing records under dir. engine may be nil; then
// records carry no suggestions.
func New(dir string, engine *match.Engine) *Logger {
	return &Logger{dir: dir, engine: engine, now: time.Now}
}

// Record fills in the record's identity fields and writes it as
// <timestamp>-<uuid>.json under the record directory.
func (l *Logger) Record(ctx context.Context, rec *gate.BypassRecord) error {
	if rec.Reason == "" {
		return gate.ErrBypassRefused
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now().UTC()
	}
	if rec.User == "" {
		rec.User = currentUser()
	}
	if rec.Suggestions == nil && l.engine != nil {
		cs := gate.Changeset{Branch: rec.Branch, Files: rec.ChangedFiles, Stage: rec.Stage}
		rec.Suggestions = l.engine.Suggest(cs, rec.SkippedGates)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating bypass record dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding bypass record: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", rec.Timestamp.Format("20060102T150405Z"), rec.ID)
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing bypass record: %w", err)
	}
	return nil
}

// List loads all bypass records in the directory, newest first. A missing
// directory yields an empty list.
func (l *Logger) List() ([]gate.BypassRecord, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading bypass record dir: %w", err)
	}

	var records []gate.BypassRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading bypass record %s: %w", entry.Name(), err)
		}
		var rec gate.BypassRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding bypass record %s: %w", entry.Name(), err)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

func currentUser() string {
	if name := os.Getenv("GIT_AUTHOR_NAME"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
