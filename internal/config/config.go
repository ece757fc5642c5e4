// Package config loads engine settings from a YAML file, environment
// variables, and command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/review"
	"github.com/conorfennell/recall/internal/scheduler"
)

const envPrefix = "RECALL_"

// Config is the full engine configuration.
type Config struct {
	Addr     string `koanf:"addr" validate:"required"`
	DBPath   string `koanf:"db_path" validate:"required"`
	ReposDir string `koanf:"repos_dir" validate:"required"`

	Flashcards FlashcardsConfig `koanf:"flashcards"`
	Scheduling SchedulingConfig `koanf:"scheduling"`
	Review     ReviewConfig     `koanf:"review"`
}

// FlashcardsConfig controls how documents are parsed into cards.
type FlashcardsConfig struct {
	Tags []string `koanf:"tags"`

	SingleLineSeparator         string `koanf:"single_line_separator" validate:"required"`
	SingleLineReversedSeparator string `koanf:"single_line_reversed_separator" validate:"required"`
	MultiLineSeparator          string `koanf:"multi_line_separator" validate:"required"`
	MultiLineReversedSeparator  string `koanf:"multi_line_reversed_separator" validate:"required"`

	HighlightClozes bool `koanf:"highlight_clozes"`
	BoldClozes      bool `koanf:"bold_clozes"`
	CurlyClozes     bool `koanf:"curly_clozes"`

	FoldersToDecks bool `koanf:"folders_to_decks"`
}

// SchedulingConfig holds the spaced-repetition constants.
type SchedulingConfig struct {
	BaseEase            int     `koanf:"base_ease" validate:"gte=130"`
	EaseFloor           int     `koanf:"ease_floor" validate:"gte=100"`
	HardEasePenalty     int     `koanf:"hard_ease_penalty" validate:"gte=0"`
	EasyEaseBonus       int     `koanf:"easy_ease_bonus" validate:"gte=0"`
	EasyBonusFactor     float64 `koanf:"easy_bonus_factor" validate:"gte=1"`
	LapseIntervalFactor float64 `koanf:"lapse_interval_factor" validate:"gt=0,lte=1"`
	MaximumInterval     int     `koanf:"maximum_interval" validate:"gte=1"`
	InitialIntervalHard int     `koanf:"initial_interval_hard" validate:"gte=1"`
	InitialIntervalGood int     `koanf:"initial_interval_good" validate:"gte=1"`
	InitialIntervalEasy int     `koanf:"initial_interval_easy" validate:"gte=1"`
}

// ReviewConfig controls session behavior.
type ReviewConfig struct {
	BurySiblingCards  bool `koanf:"bury_sibling_cards"`
	CommentOnSameLine bool `koanf:"comment_on_same_line"`

	RandomizeDecks bool `koanf:"randomize_decks"`
	RandomizeCards bool `koanf:"randomize_cards"`
	NewCardsFirst  bool `koanf:"new_cards_first"`
}

// Default returns the stock configuration.
func Default() Config {
	s := scheduler.DefaultSettings()
	return Config{
		Addr:     ":8080",
		DBPath:   "recall.db",
		ReposDir: "repos",
		Flashcards: FlashcardsConfig{
			Tags:                        []string{"#flashcards"},
			SingleLineSeparator:         "::",
			SingleLineReversedSeparator: ":::",
			MultiLineSeparator:          "?",
			MultiLineReversedSeparator:  "??",
			HighlightClozes:             true,
			BoldClozes:                  true,
			CurlyClozes:                 true,
			FoldersToDecks:              false,
		},
		Scheduling: SchedulingConfig{
			BaseEase:            s.BaseEase,
			EaseFloor:           s.EaseFloor,
			HardEasePenalty:     s.HardEasePenalty,
			EasyEaseBonus:       s.EasyEaseBonus,
			EasyBonusFactor:     s.EasyBonusFactor,
			LapseIntervalFactor: s.LapseIntervalFactor,
			MaximumInterval:     s.MaximumInterval,
			InitialIntervalHard: s.InitialIntervalHard,
			InitialIntervalGood: s.InitialIntervalGood,
			InitialIntervalEasy: s.InitialIntervalEasy,
		},
		Review: ReviewConfig{
			BurySiblingCards:  true,
			CommentOnSameLine: true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// RECALL_-prefixed environment variables, and the given flag set.
// A missing file at the default path is not an error.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
			}
		}
	}

	// RECALL_DB_PATH -> db_path, RECALL_SCHEDULING__BASE_EASE -> scheduling.base_ease
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("loading flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SchedulerSettings converts the scheduling section.
func (c Config) SchedulerSettings() scheduler.Settings {
	return scheduler.Settings{
		BaseEase:            c.Scheduling.BaseEase,
		EaseFloor:           c.Scheduling.EaseFloor,
		HardEasePenalty:     c.Scheduling.HardEasePenalty,
		EasyEaseBonus:       c.Scheduling.EasyEaseBonus,
		EasyBonusFactor:     c.Scheduling.EasyBonusFactor,
		LapseIntervalFactor: c.Scheduling.LapseIntervalFactor,
		MaximumInterval:     c.Scheduling.MaximumInterval,
		InitialIntervalHard: c.Scheduling.InitialIntervalHard,
		InitialIntervalGood: c.Scheduling.InitialIntervalGood,
		InitialIntervalEasy: c.Scheduling.InitialIntervalEasy,
	}
}

// ParserOptions converts the flashcards section.
func (c Config) ParserOptions() parser.Options {
	return parser.Options{
		SingleLineSeparator:         c.Flashcards.SingleLineSeparator,
		SingleLineReversedSeparator: c.Flashcards.SingleLineReversedSeparator,
		MultiLineSeparator:          c.Flashcards.MultiLineSeparator,
		MultiLineReversedSeparator:  c.Flashcards.MultiLineReversedSeparator,
		HighlightClozes:             c.Flashcards.HighlightClozes,
		BoldClozes:                  c.Flashcards.BoldClozes,
		CurlyClozes:                 c.Flashcards.CurlyClozes,
		Tags:                        c.Flashcards.Tags,
	}
}

// ExpandOptions converts the flashcards section for card expansion.
func (c Config) ExpandOptions() deck.ExpandOptions {
	return deck.ExpandOptions{
		SingleLineSeparator:         c.Flashcards.SingleLineSeparator,
		SingleLineReversedSeparator: c.Flashcards.SingleLineReversedSeparator,
		MultiLineSeparator:          c.Flashcards.MultiLineSeparator,
		MultiLineReversedSeparator:  c.Flashcards.MultiLineReversedSeparator,
		HighlightClozes:             c.Flashcards.HighlightClozes,
		BoldClozes:                  c.Flashcards.BoldClozes,
		CurlyClozes:                 c.Flashcards.CurlyClozes,
	}
}

// IteratorOrder converts the review section.
func (c Config) IteratorOrder() review.IteratorOrder {
	order := review.IteratorOrder{
		DeckOrder:     review.OrderSequential,
		CardOrder:     review.OrderSequential,
		CardListOrder: review.DueCardsFirst,
	}
	if c.Review.RandomizeDecks {
		order.DeckOrder = review.OrderRandom
	}
	if c.Review.RandomizeCards {
		order.CardOrder = review.OrderRandom
	}
	if c.Review.NewCardsFirst {
		order.CardListOrder = review.NewCardsFirst
	}
	return order
}
