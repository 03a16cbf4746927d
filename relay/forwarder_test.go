package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/calehh/guardian-app/metrics"
	"github.com/calehh/guardian-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutbox struct {
	msgs []*types.AlertMessage
}

func (f *fakeOutbox) Outbox(ctx context.Context, after uint64, limit int) ([]*types.AlertMessage, error) {
	var out []*types.AlertMessage
	for _, m := range f.msgs {
		if m.Seq > after && (limit <= 0 || len(out) < limit) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeRouter struct {
	sent   []common.Hash
	failAt map[uint64]bool
	calls  int
}

func (r *fakeRouter) Send(ctx context.Context, msg *types.AlertMessage) error {
	r.calls++
	if r.failAt[msg.Seq] {
		return errors.New("router unavailable")
	}
	r.sent = append(r.sent, msg.MessageId)
	return nil
}

func testMessages(n int) []*types.AlertMessage {
	msgs := make([]*types.AlertMessage, 0, n)
	for i := 1; i <= n; i++ {
		msgs = append(msgs, &types.AlertMessage{
			Seq:       uint64(i),
			MessageId: common.BytesToHash([]byte{byte(i)}),
			DestChain: 10,
			Protocol:  common.HexToAddress("0xc1"),
			Action:    types.AlertActionPause,
		})
	}
	return msgs
}

func testOptions(t *testing.T) Options {
	opts := DefaultOptions()
	opts.CursorPath = filepath.Join(t.TempDir(), "cursor")
	opts.Attempts = 1
	opts.BreakerFailures = 2
	opts.BreakerTimeout = time.Hour
	opts.SendRate = 1000
	return opts
}

func TestPollDeliversInOrder(t *testing.T) {
	src := &fakeOutbox{msgs: testMessages(3)}
	router := &fakeRouter{}
	m := metrics.NewMetrics(nil)
	opts := testOptions(t)
	f, err := NewForwarder(cmtlog.NewNopLogger(), src, router, m, opts)
	require.NoError(t, err)

	n, err := f.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, uint64(3), f.Cursor())
	assert.Equal(t, []common.Hash{src.msgs[0].MessageId, src.msgs[1].MessageId, src.msgs[2].MessageId}, router.sent)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.RelayDeliveries.WithLabelValues("10", "ok")))

	n, err = f.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	// the cursor survives a restart
	f, err = NewForwarder(cmtlog.NewNopLogger(), src, router, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), f.Cursor())
}

func TestPollStopsAtFailure(t *testing.T) {
	src := &fakeOutbox{msgs: testMessages(3)}
	router := &fakeRouter{failAt: map[uint64]bool{2: true}}
	m := metrics.NewMetrics(nil)
	f, err := NewForwarder(cmtlog.NewNopLogger(), src, router, m, testOptions(t))
	require.NoError(t, err)

	n, err := f.Poll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(1), f.Cursor())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RelayDeliveries.WithLabelValues("10", "error")))

	// redelivered once the router recovers
	router.failAt = nil
	n, err = f.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint64(3), f.Cursor())
}

func TestBreakerOpens(t *testing.T) {
	src := &fakeOutbox{msgs: testMessages(1)}
	router := &fakeRouter{failAt: map[uint64]bool{1: true}}
	m := metrics.NewMetrics(nil)
	f, err := NewForwarder(cmtlog.NewNopLogger(), src, router, m, testOptions(t))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = f.Poll(context.Background())
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, f.BreakerState())
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.RelayBreakerState))

	calls := router.calls
	_, err = f.Poll(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, calls, router.calls)
	assert.Zero(t, f.Cursor())
}

func TestRetryWithinDelivery(t *testing.T) {
	src := &fakeOutbox{msgs: testMessages(1)}
	router := &flakyRouter{failures: 1}
	opts := testOptions(t)
	opts.Attempts = 2
	f, err := NewForwarder(cmtlog.NewNopLogger(), src, router, nil, opts)
	require.NoError(t, err)

	n, err := f.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, router.calls)
}

type flakyRouter struct {
	failures int
	calls    int
}

func (r *flakyRouter) Send(ctx context.Context, msg *types.AlertMessage) error {
	r.calls++
	if r.calls <= r.failures {
		return errors.New("timeout")
	}
	return nil
}

func TestHTTPRouter(t *testing.T) {
	var got RouterMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.DestChain == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	router := NewHTTPRouter(srv.URL, 1, time.Second)
	msg := &types.AlertMessage{
		Seq:       1,
		MessageId: common.HexToHash("0x01"),
		DestChain: 137,
		Protocol:  common.HexToAddress("0xc1"),
		Action:    types.AlertActionPause,
		Payload:   []byte{0x0a, 0x01},
	}
	require.NoError(t, router.Send(context.Background(), msg))
	assert.Equal(t, msg.MessageId, got.MessageId)
	assert.Equal(t, uint64(1), got.SourceChain)
	assert.Equal(t, uint64(137), got.DestChain)
	assert.Equal(t, uint8(types.AlertActionPause), got.Action)
	assert.Equal(t, []byte{0x0a, 0x01}, []byte(got.Payload))

	msg.DestChain = 0
	assert.Error(t, router.Send(context.Background(), msg))
}
