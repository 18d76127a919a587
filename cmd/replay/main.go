package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/warpfront/warpfront-server-go/internal/config"
	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/logging"
)

var (
	dir    = flag.String("dir", "replays", "directory holding replay files")
	gameID = flag.String("game", "", "id of the game to replay")
	at     = flag.Int("at", -1, "print the state after this many changes (default: the end)")
	level  = flag.String("log-level", "info", "log level")
)

func main() {
	flag.Parse()
	if *gameID == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -dir DIR -game ID [-at N]")
		os.Exit(2)
	}

	logger, _, err := logging.New(config.LoggingConfig{Level: *level, Format: "console"})
	if err != nil {
		logger = logging.Fallback()
	}
	defer logger.Sync()

	replay, err := game.LoadReplayFromFile(*dir, *gameID)
	if err != nil {
		logger.Fatal("failed to load replay", zap.String("game_id", *gameID), zap.Error(err))
	}

	last := replay.Size() - 1
	index := *at
	if index < 0 || index > last {
		index = last
	}
	for i, c := range replay.Changes[:index] {
		logger.Info("change",
			zap.Int("index", i+1),
			zap.Uint64("seq", c.Seq),
			zap.Stringer("kind", c.Kind),
			zap.Uint64("player_id", c.Player),
			zap.Uint64("entity_id", c.Entity),
		)
	}

	state, err := replay.StateAt(index)
	if err != nil {
		logger.Fatal("failed to rebuild state", zap.Int("index", index), zap.Error(err))
	}
	logger.Info("state",
		zap.String("game_id", state.GameID),
		zap.Int("index", index),
		zap.Int("positions", replay.Size()),
		zap.Stringer("phase", state.Turn.Phase()),
		zap.Int("ships", len(state.Ships)),
		zap.Bool("over", state.Over),
		zap.Uint64("winner", state.Winner),
		zap.String("checksum", state.Checksum()),
	)
}
