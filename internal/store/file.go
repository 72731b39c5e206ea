package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
)

// Template files hold the blank record layout and are never loaded.
const (
	TemplateCharacter = "Template Character"
	TemplateUnit      = "Template Unit"
)

// FileConfig locates the knowledge base on disk. Relative directories are resolved against Root.
type FileConfig struct {
	Root          string
	CharactersDir string
	UnitsDir      string
	HistoryFile   string
}

func (c FileConfig) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

type entityKey struct {
	kind models.Kind
	name string
}

// FileStore keeps one Markdown or text file per entity with a YAML front matter header,
// and the history log as a stream of YAML documents.
type FileStore struct {
	cfg    FileConfig
	logger *slog.Logger

	mu sync.Mutex
	// paths maps each loaded or saved entity to its file.
	paths map[entityKey]string
	// skipped holds record files seen by Load but not loaded. Save never writes over them.
	skipped map[string]struct{}
	// persisted counts history entries already on disk.
	persisted int
}

// NewFileStore creates a file store. Nothing is read until Load.
func NewFileStore(cfg FileConfig, logger *slog.Logger) *FileStore {
	return &FileStore{
		cfg:     cfg,
		logger:  logger,
		paths:   make(map[entityKey]string),
		skipped: make(map[string]struct{}),
	}
}

// Load reads both entity directories and the history log. A missing directory is reported
// once and yields an empty list. Files with a duplicate name or an unreadable header are
// skipped with a warning.
func (s *FileStore) Load(ctx context.Context) (*roster.Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make(map[entityKey]string)
	skipped := make(map[string]struct{})

	var chars []models.Character
	err := s.walk(ctx, models.KindCharacter, s.cfg.path(s.cfg.CharactersDir), TemplateCharacter, skipped,
		func(path, stem string, content []byte) (string, error) {
			c, err := parseCharacter(content, stem)
			if err != nil {
				return "", err
			}
			key := entityKey{models.KindCharacter, c.Name}
			if prev, dup := paths[key]; dup {
				return "", fmt.Errorf("duplicate character %q, already loaded from %s", c.Name, prev)
			}
			paths[key] = path
			chars = append(chars, c)
			return c.Name, nil
		})
	if err != nil {
		return nil, err
	}

	var units []models.Unit
	err = s.walk(ctx, models.KindUnit, s.cfg.path(s.cfg.UnitsDir), TemplateUnit, skipped,
		func(path, stem string, content []byte) (string, error) {
			u, err := parseUnit(content, stem)
			if err != nil {
				return "", err
			}
			key := entityKey{models.KindUnit, u.Name}
			if prev, dup := paths[key]; dup {
				return "", fmt.Errorf("duplicate unit %q, already loaded from %s", u.Name, prev)
			}
			paths[key] = path
			units = append(units, u)
			return u.Name, nil
		})
	if err != nil {
		return nil, err
	}

	history, err := readHistory(s.cfg.path(s.cfg.HistoryFile))
	if err != nil {
		return nil, err
	}

	r := roster.New(chars, units, history)
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	s.paths = paths
	s.skipped = skipped
	s.persisted = len(history)
	s.logger.Info("knowledge base loaded",
		"characters", len(chars), "units", len(units), "history", len(history))
	return r, nil
}

// walk feeds every eligible file in dir to load. Errors returned by load skip the file
// and record its path in skipped.
func (s *FileStore) walk(ctx context.Context, kind models.Kind, dir, template string, skipped map[string]struct{},
	load func(path, stem string, content []byte) (string, error)) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("directory not found, starting empty", "kind", kind, "dir", dir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s directory: %w", kind, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if !isRecordFile(ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if stem == template {
			continue
		}

		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		loaded, err := load(path, stem, content)
		if err != nil {
			s.logger.Warn("skipping record", "kind", kind, "file", path, "error", err)
			skipped[path] = struct{}{}
			continue
		}
		s.logger.Debug("loaded record", "kind", kind, "name", loaded)
	}
	return nil
}

func isRecordFile(ext string) bool {
	switch strings.ToLower(ext) {
	case ".md", ".txt":
		return true
	}
	return false
}

// fileStem maps an entity name to a file name stem in its directory.
func fileStem(name string) string {
	return strings.NewReplacer("/", "-", `\`, "-").Replace(name)
}

// planPaths assigns a file to every entity in r. Entities keep the file they were loaded
// from. New and renamed entities get <name>.md, or <name> (2).md and so on when that file
// belongs to another entity, was skipped at load, is a template, or exists on disk unknown
// to the store.
func (s *FileStore) planPaths(r *roster.Roster, charDir, unitDir string) map[entityKey]string {
	keys := make([]entityKey, 0, len(r.Characters)+len(r.Units))
	for i := range r.Characters {
		keys = append(keys, entityKey{models.KindCharacter, r.Characters[i].Name})
	}
	for i := range r.Units {
		keys = append(keys, entityKey{models.KindUnit, r.Units[i].Name})
	}

	known := make(map[string]struct{}, len(s.paths))
	for _, p := range s.paths {
		known[p] = struct{}{}
	}
	claimed := make(map[string]struct{}, len(keys)+len(s.skipped))
	for p := range s.skipped {
		claimed[p] = struct{}{}
	}
	planned := make(map[entityKey]string, len(keys))
	for _, key := range keys {
		if p, ok := s.paths[key]; ok {
			planned[key] = p
			claimed[p] = struct{}{}
		}
	}

	free := func(path, stem, template string) bool {
		if stem == template {
			return false
		}
		if _, taken := claimed[path]; taken {
			return false
		}
		if _, ours := known[path]; ours {
			return true
		}
		_, err := os.Stat(path)
		return errors.Is(err, fs.ErrNotExist)
	}

	for _, key := range keys {
		if _, ok := planned[key]; ok {
			continue
		}
		dir, template := charDir, TemplateCharacter
		if key.kind == models.KindUnit {
			dir, template = unitDir, TemplateUnit
		}
		base := fileStem(key.name)
		stem := base
		for n := 2; ; n++ {
			path := filepath.Join(dir, stem+".md")
			if free(path, stem, template) {
				if stem != base {
					s.logger.Warn("file name taken, writing elsewhere",
						"kind", key.kind, "name", key.name, "file", path)
				}
				planned[key] = path
				claimed[path] = struct{}{}
				break
			}
			stem = fmt.Sprintf("%s (%d)", base, n)
		}
	}
	return planned
}

// Save writes every entity, removes files of entities that no longer exist and appends
// new history entries. The history log is append-only; a roster with fewer entries than
// are already on disk is rejected.
func (s *FileStore) Save(ctx context.Context, r *roster.Roster) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("saving roster: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(r.History) < s.persisted {
		return fmt.Errorf("history has %d entries, %d already persisted", len(r.History), s.persisted)
	}

	charDir := s.cfg.path(s.cfg.CharactersDir)
	unitDir := s.cfg.path(s.cfg.UnitsDir)
	for _, dir := range []string{charDir, unitDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	paths := s.planPaths(r, charDir, unitDir)
	written := make(map[string]struct{}, len(paths))
	write := func(key entityKey, content []byte) error {
		path := paths[key]
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		written[path] = struct{}{}
		return nil
	}

	for i := range r.Characters {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := encodeCharacter(&r.Characters[i])
		if err != nil {
			return fmt.Errorf("character %q: %w", r.Characters[i].Name, err)
		}
		if err := write(entityKey{models.KindCharacter, r.Characters[i].Name}, content); err != nil {
			return err
		}
	}
	for i := range r.Units {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := encodeUnit(&r.Units[i])
		if err != nil {
			return fmt.Errorf("unit %q: %w", r.Units[i].Name, err)
		}
		if err := write(entityKey{models.KindUnit, r.Units[i].Name}, content); err != nil {
			return err
		}
	}

	removed := 0
	for key, path := range s.paths {
		if _, ok := written[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing stale %s %q: %w", key.kind, key.name, err)
		}
		removed++
	}
	s.paths = paths

	appended, err := appendHistory(s.cfg.path(s.cfg.HistoryFile), r.History[s.persisted:])
	if err != nil {
		return err
	}
	s.persisted += appended

	s.logger.Info("knowledge base saved",
		"characters", len(r.Characters), "units", len(r.Units),
		"removed", removed, "history_appended", appended)
	return nil
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error { return nil }

func readHistory(path string) ([]models.HistoryEntry, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var out []models.HistoryEntry
	dec := yaml.NewDecoder(bytes.NewReader(content))
	for {
		var e models.HistoryEntry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding history entry %d: %w", len(out), err)
		}
		out = append(out, e)
	}
}

// appendHistory writes each entry as its own YAML document.
func appendHistory(path string, entries []models.HistoryEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating history directory: %w", err)
	}

	var buf bytes.Buffer
	for _, e := range entries {
		doc, err := yaml.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("encoding history entry %s: %w", e.ID, err)
		}
		buf.WriteString("---\n")
		buf.Write(doc)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening history: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("appending history: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing history: %w", err)
	}
	return len(entries), nil
}
