package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/note"
	"github.com/conorfennell/recall/internal/review"
	"github.com/conorfennell/recall/internal/scheduler"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/vaultsync"
	"github.com/conorfennell/recall/internal/web"
)

func main() {
	flags := pflag.NewFlagSet("recall", pflag.ExitOnError)
	configPath := flags.String("config", "recall.yaml", "Path to the YAML config file")
	addSource := flags.String("add-source", "", "Register a source path or git URL and exit")
	cram := flags.Bool("cram", false, "Start in cram mode: review every card regardless of schedule")
	flags.String("addr", ":8080", "Listen address")
	flags.String("db_path", "recall.db", "Path to the SQLite database file")
	flags.String("repos_dir", "repos", "Directory where git sources are mirrored")
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *addSource != "" {
		id, err := db.InsertSource(*addSource, vaultsync.SourceKind(*addSource))
		if err != nil {
			slog.Error("failed to add source", "path", *addSource, "error", err)
			os.Exit(1)
		}
		slog.Info("source registered", "id", id, "path", *addSource)
		return
	}

	calculator := scheduler.NewCalculator(cfg.SchedulerSettings(), time.Now)
	writer := note.NewWriter(cfg.Review.CommentOnSameLine, cfg.Scheduling.BaseEase, slog.Default())
	syncCfg := vaultsync.Config{
		ReposDir:       cfg.ReposDir,
		ParserOptions:  cfg.ParserOptions(),
		ExpandOptions:  cfg.ExpandOptions(),
		BaseEase:       cfg.Scheduling.BaseEase,
		FoldersToDecks: cfg.Flashcards.FoldersToDecks,
	}

	build := func(mode review.Mode) (*web.Session, error) {
		result, err := vaultsync.RunSync(db, syncCfg)
		if err != nil {
			return nil, err
		}
		buryDate, hashes, err := db.LoadBuryState()
		if err != nil {
			return nil, err
		}
		postponements := review.NewPostponementList(db, buryDate, hashes)
		if _, err := postponements.ClearIfDateChanged(time.Now()); err != nil {
			return nil, err
		}

		remaining := review.FilterForRemainingCards(postponements, result.Tree, mode, time.Now())
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		iterator := review.NewDeckTreeIterator(cfg.IteratorOrder(), review.UpdateInPlace, rng)
		sequencer := review.NewSequencer(mode, iterator, calculator, postponements, writer, cfg.Review.BurySiblingCards)
		sequencer.SetTree(result.Tree, remaining)
		return &web.Session{Sequencer: sequencer, Postponements: postponements}, nil
	}

	mode := review.ReviewMode
	if *cram {
		mode = review.CramMode
	}
	server, err := web.NewServer(db, cfg, calculator, build, mode)
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	slog.Info("listening", "addr", cfg.Addr, "mode", mode.String())
	if err := http.ListenAndServe(cfg.Addr, server); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
