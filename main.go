package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/walterschell/chessplay/chessanalysis"
	"github.com/walterschell/chessplay/chesssession"
	"github.com/walterschell/chessplay/logx"
)

const DefaultPort = 8080

func main() {
	defaultStockfish := "stockfish"
	if envPath := os.Getenv("STOCKFISH_PATH"); envPath != "" {
		defaultStockfish = envPath
	}

	var (
		port          = flag.Uint("port", DefaultPort, "Port to listen on")
		stockfishPath = flag.String("stockfish", defaultStockfish, "path to the UCI engine executable")
		threads       = flag.Int("threads", 0, "engine threads (0 = half the CPUs)")
		hash          = flag.Int("hash", 0, "engine hash MB (0 = engine default)")
		depth         = flag.Int("depth", 0, "search to a fixed depth instead of by time (0 = by time)")
		analysisTime  = flag.Duration("analysis-time", chesssession.DefaultAnalysisBudget, "time per background evaluation")
		hintTime      = flag.Duration("hint-time", chesssession.DefaultHintBudget, "time per hint")
		engineTime    = flag.Duration("engine-time", chesssession.DefaultEngineMoveBudget, "engine thinking time per move")
		logLevel      = flag.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	)
	flag.Parse()
	if *port == 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "Invalid port number")
		os.Exit(1)
	}
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logx.New(os.Stdout, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := chessanalysis.Start(ctx, chessanalysis.Config{
		Path:    *stockfishPath,
		Threads: *threads,
		Hash:    *hash,
		Depth:   *depth,
		Logger:  logx.Component(logger, "engine"),
	})
	defer engine.Close()

	session := chesssession.New(engine,
		chesssession.WithAnalysisBudget(*analysisTime),
		chesssession.WithHintBudget(*hintTime),
		chesssession.WithEngineMoveBudget(*engineTime),
		chesssession.WithLogger(logx.Component(logger, "session")),
	)

	g, ctx := errgroup.WithContext(ctx)
	app := NewApplication(ctx, session, logx.Component(logger, "http"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error { return session.Run(ctx) })
	g.Go(func() error { return app.Publish(ctx) })
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		engine.Close()
		os.Exit(1)
	}
}
