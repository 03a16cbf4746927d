package relay

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/calehh/guardian-app/metrics"
	"github.com/calehh/guardian-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize       = 50
	DefaultAttempts        = 3
	DefaultBreakerFailures = 5
	DefaultBreakerTimeout  = 30 * time.Second
	DefaultSendRate        = 20
)

// OutboxSource reads outbound alerts with a sequence greater than after.
type OutboxSource interface {
	Outbox(ctx context.Context, after uint64, limit int) ([]*types.AlertMessage, error)
}

type Options struct {
	CursorPath      string
	Interval        time.Duration
	BatchSize       int
	Attempts        uint
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	SendRate        float64
}

func DefaultOptions() Options {
	return Options{
		Interval:        5 * time.Second,
		BatchSize:       DefaultBatchSize,
		Attempts:        DefaultAttempts,
		BreakerFailures: DefaultBreakerFailures,
		BreakerTimeout:  DefaultBreakerTimeout,
		SendRate:        DefaultSendRate,
	}
}

// Forwarder drains the ledger outbox into a Router. The cursor only moves
// past a message once the router accepted it, so a crash or an outage
// replays rather than drops.
type Forwarder struct {
	logger  cmtlog.Logger
	src     OutboxSource
	router  Router
	metrics *metrics.Metrics
	opts    Options

	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	after   uint64
}

func NewForwarder(logger cmtlog.Logger, src OutboxSource, router Router, m *metrics.Metrics, opts Options) (*Forwarder, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if opts.SendRate <= 0 {
		opts.SendRate = DefaultSendRate
	}
	f := &Forwarder{
		logger:  logger.With("module", "relay"),
		src:     src,
		router:  router,
		metrics: m,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.SendRate), opts.BatchSize),
	}
	f.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "alert-router",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Info("circuit breaker", "name", name, "from", from.String(), "to", to.String())
			if f.metrics != nil {
				f.metrics.RelayBreakerState.Set(float64(to))
			}
		},
	})
	after, err := loadCursor(opts.CursorPath)
	if err != nil {
		return nil, err
	}
	f.after = after
	return f, nil
}

// Cursor is the sequence of the last delivered message.
func (f *Forwarder) Cursor() uint64 {
	return f.after
}

func (f *Forwarder) BreakerState() gobreaker.State {
	return f.cb.State()
}

// Poll delivers one batch in sequence order and stops at the first failure.
func (f *Forwarder) Poll(ctx context.Context) (delivered int, err error) {
	msgs, err := f.src.Outbox(ctx, f.after, f.opts.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, msg := range msgs {
		if err = f.deliver(ctx, msg); err != nil {
			f.logger.Error("deliver fail", "seq", msg.Seq, "messageId", msg.MessageId.Hex(), "destChain", msg.DestChain, "err", err)
			return
		}
		f.after = msg.Seq
		if err = saveCursor(f.opts.CursorPath, f.after); err != nil {
			return
		}
		delivered++
	}
	return
}

func (f *Forwarder) deliver(ctx context.Context, msg *types.AlertMessage) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := f.cb.Execute(func() (interface{}, error) {
		return nil, retry.New(
			retry.Context(ctx),
			retry.Attempts(f.opts.Attempts),
		).Do(func() error {
			return f.router.Send(ctx, msg)
		})
	})
	if f.metrics != nil && !errors.Is(err, gobreaker.ErrOpenState) {
		f.metrics.RecordDelivery(msg.DestChain, err)
	}
	return err
}

func (f *Forwarder) Start(ctx context.Context) {
	f.logger.Info("relay forwarder started", "cursor", f.after)
	ticker := time.NewTicker(f.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := f.Poll(ctx)
			if n > 0 {
				f.logger.Info("alerts delivered", "count", n, "cursor", f.after)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				f.logger.Error("relay poll fail", "err", err)
			}
		}
	}
}

// An empty path keeps the cursor in memory only.
func loadCursor(path string) (uint64, error) {
	if path == "" || !cmtos.FileExists(path) {
		return 0, nil
	}
	bz, err := cmtos.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(bz)), 10, 64)
}

func saveCursor(path string, seq uint64) error {
	if path == "" {
		return nil
	}
	return cmtos.WriteFile(path, []byte(strconv.FormatUint(seq, 10)), 0o600)
}
