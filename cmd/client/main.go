package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warpfront/warpfront-server-go/internal/client"
	"github.com/warpfront/warpfront-server-go/internal/config"
	"github.com/warpfront/warpfront-server-go/internal/frame"
	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/logging"
	"github.com/warpfront/warpfront-server-go/internal/wire"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	username   = flag.String("user", "", "username, overrides client.username")
	gameID     = flag.String("game", "", "game to join, overrides client.game_id")
	opponent   = flag.String("opponent", "", "join the game this user is seated in")
	seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "seed for the move policy")
)

// shipView is the per-frame presentation state of one ship.
type shipView struct {
	ID      game.ID
	X, Y    int
	Health  float64
	Hostile bool
}

func main() {
	flag.Parse()

	loader, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := loader.Config().Client
	if *username != "" {
		cfg.Username = *username
	}
	if *gameID != "" {
		cfg.GameID = *gameID
	}
	if *opponent != "" {
		cfg.Opponent = *opponent
	}
	if cfg.Username == "" {
		fmt.Fprintln(os.Stderr, "a username is required (-user or client.username)")
		os.Exit(2)
	}

	logger, _, err := logging.New(loader.Config().Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("username", cfg.Username))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("client stopped", zap.Error(err))
		os.Exit(1)
	}
}

func newTransport(cfg config.ClientConfig) (client.Transport, error) {
	if cfg.Transport == "grpc" {
		return client.NewGRPCTransport(cfg.GRPCAddress)
	}
	return client.NewHTTPTransport(cfg.ServerURL), nil
}

// seatPlayer logs in and joins or creates a game. These calls block; they
// happen before the frame loop starts.
func seatPlayer(ctx context.Context, api *client.API, cfg config.ClientConfig) (wire.Seat, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.SubmitTimeout)
	defer cancel()

	if err := api.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return wire.Seat{}, fmt.Errorf("login: %w", err)
	}
	switch {
	case cfg.GameID != "":
		return api.JoinGame(ctx, cfg.GameID)
	case cfg.Opponent != "":
		return api.JoinByUsername(ctx, cfg.Opponent)
	default:
		return api.CreateGame(ctx)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, logger *zap.Logger) error {
	transport, err := newTransport(cfg)
	if err != nil {
		return err
	}
	api := client.NewAPI(transport)
	defer api.Close()

	seat, err := seatPlayer(ctx, api, cfg)
	if err != nil {
		return err
	}
	logger.Info("seated", zap.String("game_id", seat.GameID), zap.Uint64("player_id", seat.PlayerID))

	snapCtx, cancel := context.WithTimeout(ctx, cfg.SubmitTimeout)
	snapshot, err := api.State(snapCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch state: %w", err)
	}

	mirror := client.NewMirror(snapshot)
	proxy := client.NewProxy(api, seat, client.Options{
		PollInterval:  cfg.PollInterval,
		SubmitTimeout: cfg.SubmitTimeout,
	}, logger)
	proxy.SetCursor(mirror.LastSeq())

	policy := client.NewRandomPolicy(*seed)
	pool := frame.NewPool(cfg.Workers)
	var views []shipView

	ticker := time.NewTicker(cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if changes := proxy.Changes(); len(changes) > 0 {
			if _, err := mirror.Apply(changes); err != nil {
				logger.Warn("mirror out of step", zap.Error(err))
			}
		}
		state := mirror.State()
		if state.Over {
			logger.Info("game over",
				zap.Uint64("winner", state.Winner),
				zap.Bool("won", state.Winner == seat.PlayerID),
				zap.Uint64("last_seq", state.LastSeq()),
			)
			return nil
		}

		ships := state.ShipList()
		if cap(views) < len(ships) {
			views = make([]shipView, len(ships))
		}
		views = views[:len(ships)]
		if err := frame.Update(ctx, pool, indices(len(ships)), func(_ context.Context, i int) error {
			views[i] = viewOf(state, ships[i], seat.PlayerID)
			return nil
		}); err != nil {
			return err
		}

		for _, res := range proxy.Results() {
			if !res.Accepted {
				logger.Debug("move rejected", zap.String("reason", res.Reason))
			}
		}
		// only the pass is offered while waiting; skip it unless it is our move
		if actions := proxy.GetActions(); len(actions) > 0 && state.Turn.Active == seat.PlayerID {
			if action, ok := policy.Choose(actions); ok {
				logger.Debug("playing", zap.Stringer("action", action), zap.Int("ships_in_view", len(views)))
				proxy.PerformAction(action)
			}
		}
	}
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func viewOf(state *game.State, ship *game.Ship, self game.ID) shipView {
	v := shipView{ID: ship.ID, Hostile: ship.Controller != self}
	if sys, ok := state.Systems[ship.System]; ok {
		v.X, v.Y = sys.X, sys.Y
	}
	if ship.MaxArmour > 0 {
		v.Health = float64(ship.Armour) / float64(ship.MaxArmour)
	}
	return v
}
