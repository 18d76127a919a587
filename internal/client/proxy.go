package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/wire"
)

const (
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultSubmitTimeout = 5 * time.Second
)

type Options struct {
	// PollInterval is the minimum spacing between two launches of the same
	// request kind.
	PollInterval time.Duration
	// SubmitTimeout bounds each action submission. Fetches have no deadline
	// and run until the server answers.
	SubmitTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.SubmitTimeout == 0 {
		o.SubmitTimeout = DefaultSubmitTimeout
	}
}

// Proxy is the frame loop's view of one seat in a remote game. None of its
// methods touch the network on the caller's goroutine.
type Proxy struct {
	api    *API
	seat   wire.Seat
	opts   Options
	logger *zap.Logger

	actions *slot[[]game.Action]
	since   *slot[[]game.Change]
	changes *slot[[]game.Change]
	submits *rate.Limiter

	mu      sync.Mutex
	queue   []game.Action
	running bool
	idle    chan struct{}
	results []wire.ActionResult
	cursor  uint64
}

func NewProxy(api *API, seat wire.Seat, opts Options, logger *zap.Logger) *Proxy {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	idle := make(chan struct{})
	close(idle)
	return &Proxy{
		api:     api,
		seat:    seat,
		opts:    opts,
		logger:  logger.With(zap.String("game_id", seat.GameID), zap.Uint64("player_id", seat.PlayerID)),
		actions: newSlot[[]game.Action](opts.PollInterval),
		since:   newSlot[[]game.Change](opts.PollInterval),
		changes: newSlot[[]game.Change](opts.PollInterval),
		submits: rate.NewLimiter(rate.Every(opts.PollInterval), 1),
		idle:    idle,
	}
}

func (p *Proxy) GameID() string    { return p.seat.GameID }
func (p *Proxy) PlayerID() game.ID { return p.seat.PlayerID }
func (p *Proxy) Token() string     { return p.api.Token() }

func (p *Proxy) failed(kind string) func(error) {
	return func(err error) {
		p.logger.Debug("background request failed", zap.String("request", kind), zap.Error(err))
	}
}

// GetActions returns the list fetched by an earlier call, at most once per
// fetch. It returns nil while a fetch or a submission is outstanding and
// while the rate-limit window is open.
func (p *Proxy) GetActions() []game.Action {
	if p.Submitting() {
		return nil
	}
	actions, ok := p.actions.poll(p.fetchActions, p.failed("actions"))
	if !ok {
		return nil
	}
	return actions
}

func (p *Proxy) fetchActions() ([]game.Action, error) {
	<-p.submissionsDone()
	return p.api.Actions(context.Background())
}

// PerformAction queues action for submission and returns at once.
// Submissions go out one at a time in call order. Actions fetched before
// the submission are discarded.
func (p *Proxy) PerformAction(action game.Action) {
	action.Player = p.seat.PlayerID
	p.actions.reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, action)
	if p.running {
		return
	}
	p.running = true
	p.idle = make(chan struct{})
	go p.runSubmissions(p.idle)
}

func (p *Proxy) runSubmissions(idle chan struct{}) {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.running = false
			close(idle)
			p.mu.Unlock()
			return
		}
		action := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		res, err := p.submit(action)
		if err != nil {
			p.failed("perform")(err)
			continue
		}
		if !res.Accepted {
			p.logger.Debug("action rejected", zap.Stringer("action", action), zap.String("reason", res.Reason))
		}
		p.mu.Lock()
		p.results = append(p.results, res)
		p.mu.Unlock()
	}
}

func (p *Proxy) submit(action game.Action) (wire.ActionResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.SubmitTimeout)
	defer cancel()
	if err := p.submits.Wait(ctx); err != nil {
		return wire.ActionResult{}, err
	}
	return p.api.Perform(ctx, action)
}

// Submitting reports whether a submission is queued or in flight.
func (p *Proxy) Submitting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Proxy) submissionsDone() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle
}

// Results drains the outcomes of completed submissions. Failed
// submissions leave no result.
func (p *Proxy) Results() []wire.ActionResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.results
	p.results = nil
	return out
}

// GetChangesSince has the same non-blocking contract as GetActions. It has
// its own slot, so it never hands out a batch fetched for Changes.
func (p *Proxy) GetChangesSince(seq uint64) []game.Change {
	changes, ok := p.since.poll(func() ([]game.Change, error) {
		return p.fetchChanges(seq)
	}, p.failed("changes"))
	if !ok {
		return nil
	}
	return changes
}

func (p *Proxy) fetchChanges(seq uint64) ([]game.Change, error) {
	return p.api.ChangesAfter(context.Background(), seq)
}

// SetCursor sets the last change the caller has seen, normally the
// LastSeq of a freshly fetched snapshot.
func (p *Proxy) SetCursor(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = seq
}

func (p *Proxy) Cursor() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Changes polls for the changes after the cursor and advances it. A batch
// that does not continue the cursor without gaps is dropped and fetched
// again later.
func (p *Proxy) Changes() []game.Change {
	batch, ok := p.changes.poll(func() ([]game.Change, error) {
		return p.fetchChanges(p.Cursor())
	}, p.failed("changes"))
	if !ok {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out, ok := contiguous(batch, p.cursor)
	if !ok {
		p.logger.Warn("dropping non-contiguous change batch",
			zap.Uint64("cursor", p.cursor),
			zap.Uint64("first_seq", batch[0].Seq),
		)
		return nil
	}
	if len(out) > 0 {
		p.cursor = out[len(out)-1].Seq
	}
	return out
}

// contiguous strips changes at or below cursor and checks the rest follow
// it one by one.
func contiguous(batch []game.Change, cursor uint64) ([]game.Change, bool) {
	start := 0
	for start < len(batch) && batch[start].Seq <= cursor {
		start++
	}
	batch = batch[start:]
	for i, c := range batch {
		if c.Seq != cursor+uint64(i)+1 {
			return nil, false
		}
	}
	return batch, true
}
