package client

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/repository"
	"github.com/warpfront/warpfront-server-go/internal/server"
	"github.com/warpfront/warpfront-server-go/internal/session"
	"github.com/warpfront/warpfront-server-go/internal/wire"
)

type testStack struct {
	registry *session.Registry
	httpURL  string
	grpcLis  *bufconn.Listener
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := zaptest.NewLogger(t)
	registry := session.NewRegistry(session.Options{Game: game.Options{Seed: 42}}, repository.NewMemoryRepository(), nil, logger)
	svc := server.NewService(registry, logger)

	httpSrv := httptest.NewServer(server.NewRouter(svc, nil, logger))
	t.Cleanup(httpSrv.Close)

	lis := bufconn.Listen(1 << 20)
	grpcSrv := server.NewGRPCServer(svc, logger, 0)
	go func() { _ = grpcSrv.Serve(lis) }()
	t.Cleanup(grpcSrv.Stop)

	return &testStack{registry: registry, httpURL: httpSrv.URL, grpcLis: lis}
}

func (s *testStack) transports(t *testing.T) map[string]func() Transport {
	return map[string]func() Transport{
		"http": func() Transport {
			return NewHTTPTransport(s.httpURL)
		},
		"grpc": func() Transport {
			tr, err := NewGRPCTransport("passthrough:///bufnet",
				grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
					return s.grpcLis.DialContext(ctx)
				}),
			)
			require.NoError(t, err)
			return tr
		},
	}
}

func newAPI(t *testing.T, newTransport func() Transport, username string) *API {
	t.Helper()
	api := NewAPI(newTransport())
	t.Cleanup(func() { _ = api.Close() })
	require.NoError(t, api.Login(context.Background(), username, "pw"))
	require.NotEmpty(t, api.Token())
	return api
}

func TestTransportsCoverEveryEndpoint(t *testing.T) {
	stack := newTestStack(t)
	for name, newTransport := range stack.transports(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			alice := newAPI(t, newTransport, "alice-"+name)
			bob := newAPI(t, newTransport, "bob-"+name)

			seat, err := alice.CreateGame(ctx)
			require.NoError(t, err)
			require.NotEmpty(t, seat.GameID)

			bobSeat, err := bob.JoinGame(ctx, seat.GameID)
			require.NoError(t, err)
			assert.Equal(t, seat.GameID, bobSeat.GameID)
			assert.NotEqual(t, seat.PlayerID, bobSeat.PlayerID)

			again, err := bob.JoinByUsername(ctx, "alice-"+name)
			require.NoError(t, err)
			assert.Equal(t, bobSeat, again)

			state, err := alice.State(ctx)
			require.NoError(t, err)
			assert.Equal(t, seat.GameID, state.GameID)

			actions, err := alice.Actions(ctx)
			require.NoError(t, err)
			require.NotEmpty(t, actions)
			assert.Equal(t, game.ActionNone, actions[0].Kind)

			res, err := alice.Perform(ctx, game.Action{Kind: game.ActionNone})
			require.NoError(t, err)
			assert.True(t, res.Accepted)
			assert.Greater(t, res.LastSeq, state.LastSeq())

			changes, err := alice.ChangesAfter(ctx, state.LastSeq())
			require.NoError(t, err)
			require.NotEmpty(t, changes)
			assert.Equal(t, state.LastSeq()+1, changes[0].Seq)
			assert.Equal(t, res.LastSeq, changes[len(changes)-1].Seq)

			rejected, err := bob.Perform(ctx, game.Action{Kind: game.ActionEndTurn})
			require.NoError(t, err)
			assert.False(t, rejected.Accepted)
			assert.NotEmpty(t, rejected.Reason)
		})
	}
}

func TestTransportsReportFailureStatus(t *testing.T) {
	stack := newTestStack(t)
	for name, newTransport := range stack.transports(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			anonymous := NewAPI(newTransport())
			defer anonymous.Close()
			_, err := anonymous.CreateGame(ctx)
			assert.Equal(t, wire.StatusUnauthorized, StatusOf(err))

			alice := newAPI(t, newTransport, "alice-"+name)
			_, err = alice.JoinGame(ctx, "nosuchgm")
			assert.Equal(t, wire.StatusNotFound, StatusOf(err))

			_, err = alice.State(ctx)
			assert.Equal(t, wire.StatusNotFound, StatusOf(err))

			seat, err := alice.CreateGame(ctx)
			require.NoError(t, err)
			bob := newAPI(t, newTransport, "bob-"+name)
			_, err = bob.JoinGame(ctx, seat.GameID)
			require.NoError(t, err)
			carol := newAPI(t, newTransport, "carol-"+name)
			_, err = carol.JoinGame(ctx, seat.GameID)
			assert.Equal(t, wire.StatusConflict, StatusOf(err))
		})
	}
}

func TestContiguous(t *testing.T) {
	batch := func(seqs ...uint64) []game.Change {
		out := make([]game.Change, len(seqs))
		for i, s := range seqs {
			out[i] = game.Change{Seq: s}
		}
		return out
	}
	tests := []struct {
		name   string
		batch  []game.Change
		cursor uint64
		want   int
		ok     bool
	}{
		{"empty", nil, 4, 0, true},
		{"follows cursor", batch(5, 6, 7), 4, 3, true},
		{"overlap trimmed", batch(3, 4, 5, 6), 4, 2, true},
		{"all seen", batch(1, 2), 4, 0, true},
		{"gap before", batch(6, 7), 4, 0, false},
		{"gap inside", batch(5, 7), 4, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := contiguous(tt.batch, tt.cursor)
			assert.Equal(t, tt.ok, ok)
			assert.Len(t, out, tt.want)
		})
	}
}
