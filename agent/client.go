package agent

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	"github.com/calehh/guardian-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrQueryFailed = errors.New("query failed")
	ErrTxRejected  = errors.New("tx rejected")
)

// Client is what an agent or operator uses to talk to a guardian node: it
// signs and submits operations and reads the query paths.
type Client struct {
	logger  cmtlog.Logger
	Url     string
	cli     *comethttp.HTTP
	chainId string
}

func NewClient(url string, logger cmtlog.Logger) (*Client, error) {
	cli, err := comethttp.New(url, "/websocket")
	if err != nil {
		return nil, err
	}
	return &Client{
		logger: logger.With("module", "client"),
		Url:    url,
		cli:    cli,
	}, nil
}

// ChainId is read from the node once and cached.
func (c *Client) ChainId(ctx context.Context) (string, error) {
	if c.chainId != "" {
		return c.chainId, nil
	}
	st, err := c.cli.Status(ctx)
	if err != nil {
		return "", err
	}
	c.chainId = st.NodeInfo.Network
	return c.chainId, nil
}

func (c *Client) LatestHeight(ctx context.Context) (int64, error) {
	st, err := c.cli.Status(ctx)
	if err != nil {
		return 0, err
	}
	return st.SyncInfo.LatestBlockHeight, nil
}

func (c *Client) BlockResults(ctx context.Context, height int64) ([]*abci.ExecTxResult, error) {
	res, err := c.cli.BlockResults(ctx, &height)
	if err != nil {
		return nil, err
	}
	return res.TxsResults, nil
}

// Query returns the raw value of an ABCI query; a non-zero response code is
// an error carrying the node's log.
func (c *Client) Query(ctx context.Context, path string, data []byte) ([]byte, error) {
	res, err := c.cli.ABCIQuery(ctx, path, data)
	if err != nil {
		c.logger.Error("ABCIQuery fail", "path", path, "err", err)
		return nil, err
	}
	if res.Response.Code != 0 {
		return nil, fmt.Errorf("%w: %s code %d %s", ErrQueryFailed, path, res.Response.Code, res.Response.Log)
	}
	return res.Response.Value, nil
}

func (c *Client) QueryJSON(ctx context.Context, path string, data []byte, v any) error {
	val, err := c.Query(ctx, path, data)
	if err != nil {
		return err
	}
	return json.Unmarshal(val, v)
}

func (c *Client) Account(ctx context.Context, addr common.Address) (*state.Account, error) {
	var act state.Account
	if err := c.QueryJSON(ctx, types.QueryAccounts, addr.Bytes(), &act); err != nil {
		return nil, err
	}
	return &act, nil
}

// Outbox reads outbound alerts with a sequence greater than after.
func (c *Client) Outbox(ctx context.Context, after uint64, limit int) (msgs []*types.AlertMessage, err error) {
	q, err := json.Marshal(&types.OutboxQuery{After: after, Limit: limit})
	if err != nil {
		return nil, err
	}
	err = c.QueryJSON(ctx, types.QueryRelayOutbox, q, &msgs)
	return
}

// NewTx builds an unsigned envelope for key's account at its next nonce.
func (c *Client) NewTx(ctx context.Context, key *ecdsa.PrivateKey, tp tx.GuardTxType, payload any) (*tx.GuardTx, error) {
	act, err := c.Account(ctx, crypto.PubkeyToAddress(key.PublicKey))
	if err != nil {
		return nil, err
	}
	return &tx.GuardTx{
		Version: tx.GuardTxVersion1,
		Type:    tp,
		Nonce:   act.Nonce,
		Tx:      payload,
	}, nil
}

// Submit signs payload as an operation of type tp and waits for it to be
// committed. A failed operation returns ErrTxRejected with the result log.
func (c *Client) Submit(ctx context.Context, key *ecdsa.PrivateKey, tp tx.GuardTxType, payload any) (*abci.ExecTxResult, error) {
	chainId, err := c.ChainId(ctx)
	if err != nil {
		return nil, err
	}
	btx, err := c.NewTx(ctx, key, tp, payload)
	if err != nil {
		return nil, err
	}
	if err = btx.Sign(chainId, key); err != nil {
		return nil, err
	}
	dat, err := tx.MarshalGuardTx(btx)
	if err != nil {
		return nil, err
	}
	res, err := c.cli.BroadcastTxCommit(ctx, dat)
	if err != nil {
		return nil, err
	}
	if res.CheckTx.Code != 0 {
		return nil, fmt.Errorf("%w: check code %d %s", ErrTxRejected, res.CheckTx.Code, res.CheckTx.Log)
	}
	if res.TxResult.Code != 0 {
		return &res.TxResult, fmt.Errorf("%w: code %d %s", ErrTxRejected, res.TxResult.Code, res.TxResult.Log)
	}
	c.logger.Info("tx committed", "type", tp, "height", res.Height, "hash", res.Hash)
	return &res.TxResult, nil
}
