package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(root string) FileConfig {
	return FileConfig{
		Root:          root,
		CharactersDir: "Characters",
		UnitsDir:      "Units",
		HistoryFile:   "history.yaml",
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const avaFile = `---
name: Ava
rank: Adept
member: Alpha
nickname: Ace
aspects:
  - brave
relations:
  - partner: Ken
    description: spars with
    tags: [rival, rival, friend]
---
Grew up on the docks.
`

func TestFileStore_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Characters", "Ava.md"), avaFile)
	writeFile(t, filepath.Join(root, "Characters", "Ken.txt"), "---\nrank: 2\n---\n")
	writeFile(t, filepath.Join(root, "Characters", "Template Character.md"), "---\nname: Nobody\n---\n")
	writeFile(t, filepath.Join(root, "Characters", "notes.json"), "{}")
	writeFile(t, filepath.Join(root, "Units", "Alpha.md"), "---\nname: Alpha\nrank: Crew\n---\n")

	s := NewFileStore(testConfig(root), newTestLogger())
	r, err := s.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Characters, 2)
	ava := r.Characters[r.FindCharacter("Ava")]
	assert.Equal(t, 4, ava.Rank)
	assert.Equal(t, "Alpha", ava.Member)
	assert.Equal(t, "Ace", ava.Nickname)
	assert.Equal(t, []string{"brave"}, ava.Aspects)
	assert.Equal(t, []models.Relation{{Partner: "Ken", Description: "spars with", Tags: []string{"rival", "friend"}}}, ava.Relations)
	assert.Equal(t, "Grew up on the docks.\n", ava.Body)
	assert.Equal(t, models.NoHistory, ava.HistoryIndex)

	ken := r.Characters[r.FindCharacter("Ken")]
	assert.Equal(t, 2, ken.Rank)
	assert.Equal(t, models.NoUnit, ken.Member)

	require.Len(t, r.Units, 1)
	assert.Equal(t, 1, r.Units[0].Rank)
	assert.Empty(t, r.History)
}

func TestFileStore_LoadMissingDirectories(t *testing.T) {
	s := NewFileStore(testConfig(t.TempDir()), newTestLogger())
	r, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, r.Characters)
	assert.Empty(t, r.Units)
}

func TestFileStore_LoadSkipsDuplicatesAndBadHeaders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Characters", "a.md"), "---\nname: Ava\n---\n")
	writeFile(t, filepath.Join(root, "Characters", "b.md"), "---\nname: Ava\n---\n")
	writeFile(t, filepath.Join(root, "Characters", "c.md"), "---\nname: Cy\ncolour: red\n---\n")
	writeFile(t, filepath.Join(root, "Characters", "d.md"), "---\nname: Di\nrank: Emperor\n---\n")
	writeFile(t, filepath.Join(root, "Units", "u.md"), "---\nname: Alpha\nmember: Beta\n---\n")

	s := NewFileStore(testConfig(root), newTestLogger())
	r, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ava"}, r.CharacterNames())
	assert.Empty(t, r.Units)
}

func TestFileStore_PlainTextIsBody(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Units", "Night Watch.txt"), "Keepers of the wall.\n")

	s := NewFileStore(testConfig(root), newTestLogger())
	r, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, r.Units, 1)
	assert.Equal(t, "Night Watch", r.Units[0].Name)
	assert.Equal(t, "Keepers of the wall.\n", r.Units[0].Body)
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Characters", "Ava.md"), avaFile)

	s := NewFileStore(testConfig(root), newTestLogger())
	ctx := context.Background()
	r, err := s.Load(ctx)
	require.NoError(t, err)

	mira := models.NewCharacter("Mira")
	mira.Relations = []models.Relation{{Partner: "Ava"}}
	r.Characters = append(r.Characters, mira)
	r.Units = append(r.Units, models.NewUnit("Alpha"))
	r.Characters[0].HistoryIndex = r.Log(models.HistoryNote, "Ava", "touched")
	require.NoError(t, s.Save(ctx, r))

	again, err := NewFileStore(testConfig(root), newTestLogger()).Load(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(r.Characters, again.Characters); diff != "" {
		t.Fatalf("characters differ after round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(r.Units, again.Units); diff != "" {
		t.Fatalf("units differ after round trip (-want +got):\n%s", diff)
	}
	require.Len(t, again.History, 1)
	assert.Equal(t, r.History[0].ID, again.History[0].ID)
	assert.True(t, r.History[0].At.Equal(again.History[0].At))
}

func TestFileStore_SaveAppendsHistoryOnly(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	s := NewFileStore(testConfig(root), newTestLogger())

	r, err := s.Load(ctx)
	require.NoError(t, err)
	r.Log(models.HistoryNote, "x", "first")
	require.NoError(t, s.Save(ctx, r))
	r.Log(models.HistoryNote, "x", "second")
	require.NoError(t, s.Save(ctx, r))
	require.NoError(t, s.Save(ctx, r))

	again, err := NewFileStore(testConfig(root), newTestLogger()).Load(ctx)
	require.NoError(t, err)
	require.Len(t, again.History, 2)
	assert.Equal(t, "first", again.History[0].Note)
	assert.Equal(t, "second", again.History[1].Note)

	r.History = r.History[:1]
	assert.Error(t, s.Save(ctx, r), "history must not shrink")
}

func TestFileStore_SaveRemovesRenamedAndDeleted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Characters", "Kenn.txt"), "---\nname: Kenn\n---\nbody\n")
	writeFile(t, filepath.Join(root, "Characters", "Gone.md"), "---\nname: Gone\n---\n")

	ctx := context.Background()
	s := NewFileStore(testConfig(root), newTestLogger())
	r, err := s.Load(ctx)
	require.NoError(t, err)

	r.Characters[r.FindCharacter("Kenn")].Name = "Ken"
	gone := r.FindCharacter("Gone")
	r.Characters = append(r.Characters[:gone], r.Characters[gone+1:]...)
	require.NoError(t, s.Save(ctx, r))

	entries, err := os.ReadDir(filepath.Join(root, "Characters"))
	require.NoError(t, err)
	var files []string
	for _, e := range entries {
		files = append(files, e.Name())
	}
	assert.Equal(t, []string{"Ken.md"}, files)

	content, err := os.ReadFile(filepath.Join(root, "Characters", "Ken.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: Ken\n")
	assert.Contains(t, string(content), "---\nbody\n")
}

func dirFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var files []string
	for _, e := range entries {
		files = append(files, e.Name())
	}
	return files
}

func TestFileStore_SaveRenameOntoTakenFileName(t *testing.T) {
	root := t.TempDir()
	kenji := "---\nname: Kenji\n---\nlives in Ken.md\n"
	writeFile(t, filepath.Join(root, "Characters", "Ken.md"), kenji)
	writeFile(t, filepath.Join(root, "Characters", "Ava.md"), "---\nname: Ava\n---\n")

	ctx := context.Background()
	s := NewFileStore(testConfig(root), newTestLogger())
	r, err := s.Load(ctx)
	require.NoError(t, err)

	r.Characters[r.FindCharacter("Ava")].Name = "Ken"
	require.NoError(t, s.Save(ctx, r))

	assert.Equal(t, []string{"Ken (2).md", "Ken.md"}, dirFiles(t, filepath.Join(root, "Characters")))

	again, err := NewFileStore(testConfig(root), newTestLogger()).Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Ken", "Kenji"}, again.CharacterNames())
	assert.Equal(t, "lives in Ken.md\n", again.Characters[again.FindCharacter("Kenji")].Body)

	// The renamed record keeps its new file on later saves.
	require.NoError(t, s.Save(ctx, r))
	assert.Equal(t, []string{"Ken (2).md", "Ken.md"}, dirFiles(t, filepath.Join(root, "Characters")))
}

func TestFileStore_SaveNeverOverwritesUnloadedFiles(t *testing.T) {
	root := t.TempDir()
	typo := "---\nname: Ken\ncolour: red\n---\nhand written notes\n"
	writeFile(t, filepath.Join(root, "Characters", "Ken.md"), typo)

	ctx := context.Background()
	s := NewFileStore(testConfig(root), newTestLogger())
	r, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, r.Characters, "Ken.md has an unknown key and is skipped")

	external := "---\nname: Mira\n---\nadded while the session was open\n"
	writeFile(t, filepath.Join(root, "Characters", "Mira.md"), external)

	r.Characters = append(r.Characters,
		models.NewCharacter("Ken"),
		models.NewCharacter("Mira"),
		models.NewCharacter(TemplateCharacter),
	)
	require.NoError(t, s.Save(ctx, r))

	for path, want := range map[string]string{"Ken.md": typo, "Mira.md": external} {
		got, err := os.ReadFile(filepath.Join(root, "Characters", path))
		require.NoError(t, err)
		assert.Equal(t, want, string(got), path)
	}
	assert.Equal(t, []string{"Ken (2).md", "Ken.md", "Mira (2).md", "Mira.md", "Template Character (2).md"},
		dirFiles(t, filepath.Join(root, "Characters")))
}

func TestFileStore_SaveRejectsDuplicates(t *testing.T) {
	s := NewFileStore(testConfig(t.TempDir()), newTestLogger())
	r := roster.New([]models.Character{models.NewCharacter("A"), models.NewCharacter("A")}, nil, nil)
	assert.Error(t, s.Save(context.Background(), r))
}

func TestFileStore_LoadCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Characters", "Ava.md"), avaFile)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileStore(testConfig(root), newTestLogger()).Load(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantHeader string
		wantBody   string
		wantOK     bool
	}{
		{"header and body", "---\nname: A\n---\nbody", "name: A", "body", true},
		{"empty header", "---\n---\nbody", "", "body", true},
		{"closing at end", "---\nname: A\n---", "name: A", "", true},
		{"no header", "just text\n", "", "just text\n", false},
		{"crlf", "---\r\nname: A\r\n---\r\nbody", "name: A", "body", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, body, ok := splitFrontMatter([]byte(tt.in))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantHeader, string(header))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestGet(t *testing.T) {
	ava := models.NewCharacter("Alpha")
	r := roster.New([]models.Character{ava}, []models.Unit{models.NewUnit("Alpha")}, nil)

	_, kind, err := Get(r, "", "Alpha")
	require.NoError(t, err)
	assert.Equal(t, models.KindCharacter, kind)

	_, kind, err = Get(r, models.KindUnit, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, models.KindUnit, kind)

	_, _, err = Get(r, models.KindUnit, "Bravo")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, _, err = Get(r, models.Kind("ship"), "Alpha")
	assert.Error(t, err)
}

func TestMockStore(t *testing.T) {
	ctx := context.Background()
	m := NewMockStore([]models.Character{models.NewCharacter("Ava")}, nil)

	r, err := m.Load(ctx)
	require.NoError(t, err)
	r.Characters[0].Name = "Changed"

	fresh, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ava", fresh.Characters[0].Name, "load must return a copy")

	require.NoError(t, m.Save(ctx, r))
	assert.Equal(t, 1, m.Saves())
	fresh, err = m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Changed", fresh.Characters[0].Name)

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}
