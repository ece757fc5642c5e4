// Package vaultsync reconciles all registered sources into one deck tree.
// Git sources are mirrored locally first; every markdown file is then parsed
// and its questions filed into decks by topic.
package vaultsync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/gitsource"
	"github.com/conorfennell/recall/internal/note"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/storage"
)

// Config controls how sources are scanned and questions assembled.
type Config struct {
	// ReposDir is where git sources are mirrored.
	ReposDir string

	ParserOptions parser.Options
	ExpandOptions deck.ExpandOptions
	BaseEase      int

	// FoldersToDecks derives a default topic from a note's directory path
	// relative to its source root, used when neither the note text nor the
	// record carries a tag.
	FoldersToDecks bool
}

// Result is the reconciled state of all sources.
type Result struct {
	Tree  *deck.Deck
	Notes []*deck.Note

	// ParseErrors are per-file failures that did not abort the sync.
	ParseErrors []error
}

// RunSync iterates over all sources and builds the full deck tree.
func RunSync(db *storage.DB, cfg Config) (*Result, error) {
	slog.Info("starting sync for all sources")
	sources, err := db.GetAllSources()
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	if len(sources) == 0 {
		slog.Info("no sources configured, add one with --add-source <path/or/url.git>")
		return &Result{Tree: deck.NewRootDeck()}, nil
	}

	if cfg.ReposDir == "" {
		cfg.ReposDir = "repos"
	}
	if err := os.MkdirAll(cfg.ReposDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating repos directory: %w", err)
	}

	result := &Result{Tree: deck.NewRootDeck()}
	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "kind", source.Kind, "path", source.Path)

		scanRoot := source.Path
		if source.Kind == storage.SourceGit {
			localRepoPath, err := gitURLToLocalPath(cfg.ReposDir, source.Path)
			if err != nil {
				slog.Error("determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(source.Path, localRepoPath); err != nil {
				slog.Error("syncing git repo", "url", source.Path, "error", err)
				continue
			}
			scanRoot = localRepoPath
		}

		if err := scanSource(result, scanRoot, cfg); err != nil {
			slog.Error("walking source", "path", scanRoot, "error", err)
			continue
		}
		if err := db.UpdateSourceLastScanned(source.ID); err != nil {
			slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
		}
	}

	result.Tree.SortSubdecks()
	slog.Info("sync complete",
		"notes", len(result.Notes),
		"cards", result.Tree.CardCount(deck.AllCardList, true),
		"errors", len(result.ParseErrors),
	)
	return result, nil
}

// scanSource walks one source directory and files every parsed question
// into the tree.
func scanSource(result *Result, root string, cfg Config) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		n, parseErr := LoadNote(path, folderTopic(root, path, cfg.FoldersToDecks), cfg)
		if parseErr != nil {
			result.ParseErrors = append(result.ParseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		if len(n.Questions) == 0 {
			return nil
		}
		result.Notes = append(result.Notes, n)
		n.AppendCardsToDeck(result.Tree)
		return nil
	})
}

// LoadNote parses one markdown file into a note. noteTopic is the fallback
// topic for questions that carry no tag of their own.
func LoadNote(path string, noteTopic deck.TopicPath, cfg Config) (*deck.Note, error) {
	file := note.NewDiskFile(path)
	text, err := file.Read()
	if err != nil {
		return nil, err
	}

	records := parser.Parse(text, cfg.ParserOptions)
	questions := make([]*deck.Question, 0, len(records))
	for _, rec := range records {
		q, err := deck.AssembleQuestion(rec, noteTopic, cfg.ExpandOptions, cfg.BaseEase)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", rec.LineNumber, err)
		}
		questions = append(questions, q)
	}
	return deck.NewNote(file, questions), nil
}

// SourceKind classifies a source path as local or git.
func SourceKind(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return storage.SourceGit
	}
	return storage.SourceLocal
}

// folderTopic maps a note's directory path under the source root to a topic.
func folderTopic(root, path string, enabled bool) deck.TopicPath {
	if !enabled {
		return deck.EmptyPath()
	}
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return deck.EmptyPath()
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	topic, err := deck.NewTopicPath(segments...)
	if err != nil {
		return deck.EmptyPath()
	}
	return topic
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
