package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/graalreborn/graalclient/internal/client"
	"github.com/graalreborn/graalclient/internal/config"
	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/gmap"
	"github.com/graalreborn/graalclient/internal/protocol"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadClient(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog := newLogger(cfg.Log)
	defer closeLog()
	slog.SetDefault(logger)

	slog.Info("graal client starting", "server", cfg.Addr(), "account", cfg.Account, "version", cfg.Version)

	resolver := gmap.NewResolver(
		gmap.WithLevelExists(gmap.FileExists(cfg.GMapDir)),
		gmap.WithLogger(logger),
	)
	n, err := resolver.LoadDir(cfg.GMapDir)
	if err != nil {
		return fmt.Errorf("loading level dir: %w", err)
	}
	slog.Info("level dir loaded", "dir", cfg.GMapDir, "gmaps", n)

	s, err := client.Dial(ctx, cfg,
		client.WithLogger(logger),
		client.WithResolver(resolver),
		client.WithHandler(client.HandlerFunc(logPacket)),
	)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer s.Close()

	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// newLogger builds the process logger. Logs go to a rotated file when
// cfg.File is set, stderr otherwise.
func newLogger(cfg config.LogConfig) (*slog.Logger, func()) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		w = lj
		closeFn = func() { _ = lj.Close() }
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn
}

func logPacket(_ context.Context, s *client.Session, msg protocol.Message) {
	switch msg.ID {
	case constants.PLOToAll, constants.PLOPrivateMessage:
		c, err := client.ParseChat(msg.Payload)
		if err != nil {
			slog.Debug("bad chat packet", "err", err)
			return
		}
		slog.Info("chat", "from", c.From, "private", msg.ID == constants.PLOPrivateMessage, "text", c.Text)
	case constants.PLOLevelName:
		snap := s.Coordinator().Snapshot()
		slog.Info("level", "level", snap.Level, "gmap", snap.GMap)
	case constants.PLOWarpFailed:
		level, _ := client.ParseText(msg.Payload)
		slog.Warn("warp failed", "level", level)
	}
}
