package vaultsync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/storage"
)

func testConfig() Config {
	return Config{
		ParserOptions: parser.DefaultOptions(),
		ExpandOptions: deck.DefaultExpandOptions(),
		BaseEase:      250,
	}
}

func writeNote(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadNote(t *testing.T) {
	dir := t.TempDir()
	path := writeNote(t, dir, "go.md", "#flashcards/go\n\nWhat is a slice?::a view onto an array\n\nTagless::question\n")

	n, err := LoadNote(path, deck.EmptyPath(), testConfig())
	require.NoError(t, err)
	require.Len(t, n.Questions, 2)

	assert.Equal(t, "flashcards/go", n.Questions[0].Topic.String())
	// The file-level tag scopes questions until the next tag line.
	assert.Equal(t, "flashcards/go", n.Questions[1].Topic.String())
	assert.Equal(t, path, n.FilePath())
}

func TestLoadNoteFallsBackToNoteTopic(t *testing.T) {
	dir := t.TempDir()
	path := writeNote(t, dir, "go.md", "Q1::A1\n")

	topic, err := deck.NewTopicPath("vault", "go")
	require.NoError(t, err)
	n, err := LoadNote(path, topic, testConfig())
	require.NoError(t, err)
	require.Len(t, n.Questions, 1)
	assert.Equal(t, "vault/go", n.Questions[0].Topic.String())
}

func TestLoadNoteMissingFile(t *testing.T) {
	_, err := LoadNote(filepath.Join(t.TempDir(), "absent.md"), deck.EmptyPath(), testConfig())
	assert.Error(t, err)
}

func TestRunSyncScansLocalSources(t *testing.T) {
	vault := t.TempDir()
	writeNote(t, vault, "go.md", "#flashcards/go\nQ1::A1\n")
	writeNote(t, vault, filepath.Join("deep", "nested.md"), "#flashcards/deep\nQ2::A2\n")
	writeNote(t, vault, "notes.txt", "not markdown Q::A")

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.InsertSource(vault, storage.SourceLocal)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.ReposDir = filepath.Join(t.TempDir(), "repos")
	result, err := RunSync(db, cfg)
	require.NoError(t, err)

	assert.Len(t, result.Notes, 2)
	assert.Empty(t, result.ParseErrors)
	assert.Equal(t, 2, result.Tree.CardCount(deck.AllCardList, true))

	s, err := db.FindSourceByPath(vault)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.LastScanned.Valid)
}

func TestRunSyncWithoutSources(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	result, err := RunSync(db, testConfig())
	require.NoError(t, err)
	assert.Empty(t, result.Notes)
	assert.Zero(t, result.Tree.CardCount(deck.AllCardList, true))
}

func TestSourceKind(t *testing.T) {
	assert.Equal(t, storage.SourceGit, SourceKind("https://example.com/cards.git"))
	assert.Equal(t, storage.SourceGit, SourceKind("git@example.com:user/cards.git"))
	assert.Equal(t, storage.SourceGit, SourceKind("http://example.com/cards"))
	assert.Equal(t, storage.SourceLocal, SourceKind("/home/user/vault"))
	assert.Equal(t, storage.SourceLocal, SourceKind("relative/vault"))
}

func TestFolderTopic(t *testing.T) {
	root := filepath.Join("vault", "cards")

	assert.True(t, folderTopic(root, filepath.Join(root, "go.md"), true).IsEmpty())
	assert.Equal(t, "go/slices",
		folderTopic(root, filepath.Join(root, "go", "slices", "note.md"), true).String())
	assert.True(t, folderTopic(root, filepath.Join(root, "go", "note.md"), false).IsEmpty())
}

func TestGitURLToLocalPath(t *testing.T) {
	path, err := gitURLToLocalPath("repos", "https://github.com/user/cards.git")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("repos", "github.com", "user", "cards"), path)

	path, err = gitURLToLocalPath("repos", "git@github.com:user/cards.git")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("repos", "github.com", "user", "cards"), path)

	_, err = gitURLToLocalPath("repos", "not a url")
	assert.Error(t, err)
}
