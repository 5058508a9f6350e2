package chesssession

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/walterschell/chessplay/chessgame"
)

const (
	DefaultAnalysisBudget   = 150 * time.Millisecond
	DefaultHintBudget       = 500 * time.Millisecond
	DefaultEngineMoveBudget = 300 * time.Millisecond
)

type options struct {
	analysisBudget   time.Duration
	hintBudget       time.Duration
	engineMoveBudget time.Duration
	gameOptions      []chessgame.Option
	log              zerolog.Logger
}

var defaultOptions = options{
	analysisBudget:   DefaultAnalysisBudget,
	hintBudget:       DefaultHintBudget,
	engineMoveBudget: DefaultEngineMoveBudget,
}

type Option func(*options)

// WithAnalysisBudget sets the time given to the background evaluation of
// each new position.
func WithAnalysisBudget(d time.Duration) Option {
	return func(opts *options) {
		opts.analysisBudget = d
	}
}

// WithHintBudget sets the time given to a hint search.
func WithHintBudget(d time.Duration) Option {
	return func(opts *options) {
		opts.hintBudget = d
	}
}

// WithEngineMoveBudget sets the time the engine may think before playing.
func WithEngineMoveBudget(d time.Duration) Option {
	return func(opts *options) {
		opts.engineMoveBudget = d
	}
}

// WithGameOptions is applied to every game the session creates.
func WithGameOptions(gameOpts ...chessgame.Option) Option {
	return func(opts *options) {
		opts.gameOptions = append(opts.gameOptions, gameOpts...)
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(opts *options) {
		opts.log = log
	}
}
