package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Router hands an outbound alert to the inter-chain message router.
// Delivery is at-least-once; the router dedups on MessageId.
type Router interface {
	Send(ctx context.Context, msg *types.AlertMessage) error
}

// RouterMessage is the JSON body posted to the router.
type RouterMessage struct {
	MessageId   common.Hash    `json:"messageId"`
	SourceChain uint64         `json:"sourceChain"`
	DestChain   uint64         `json:"destChain"`
	Protocol    common.Address `json:"protocol"`
	Action      uint8          `json:"action"`
	Payload     hexutil.Bytes  `json:"payload"`
}

type HTTPRouter struct {
	Url         string
	SourceChain uint64
	client      *http.Client
}

func NewHTTPRouter(url string, sourceChain uint64, timeout time.Duration) *HTTPRouter {
	return &HTTPRouter{
		Url:         url,
		SourceChain: sourceChain,
		client:      &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRouter) Send(ctx context.Context, msg *types.AlertMessage) error {
	body, err := json.Marshal(&RouterMessage{
		MessageId:   msg.MessageId,
		SourceChain: r.SourceChain,
		DestChain:   msg.DestChain,
		Protocol:    msg.Protocol,
		Action:      uint8(msg.Action),
		Payload:     msg.Payload,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("router status %d: %s", res.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}
