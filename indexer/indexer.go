package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/calehh/guardian-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

const DefaultPageSize = 100

// BlockSource is the part of the node RPC the indexer reads from.
type BlockSource interface {
	LatestHeight(ctx context.Context) (int64, error)
	BlockResults(ctx context.Context, height int64) ([]*abci.ExecTxResult, error)
}

type ChainIndexer struct {
	logger cmtlog.Logger
	db     *gorm.DB
	src    BlockSource

	// Height is the next block to index.
	Height   int64
	Interval time.Duration

	eventHandlers map[string]eventHandler
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

func NewChainIndexer(logger cmtlog.Logger, dbPath string, src BlockSource) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath)
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Event{}, &Vote{}, &Pause{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		db.Close()
		return nil, err
	}
	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		db:       db,
		src:      src,
		Height:   int64(h.Height + 1),
		Interval: time.Second,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventVoteCastType:       c.handleEventVoteCast,
		types.EventEmergencyPauseType: c.handleEventEmergencyPause,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

func (c *ChainIndexer) handleEventVoteCast(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventVoteCast(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	return db.Create(&Vote{
		Proposal: ev.Id,
		Voter:    ev.Voter.Hex(),
		Support:  ev.Support,
		Height:   uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventEmergencyPause(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventEmergencyPause(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	return db.Create(&Pause{
		Protocol:   ev.Protocol.Hex(),
		AgentId:    ev.AgentId.Hex(),
		Confidence: ev.Confidence,
		Reason:     ev.Reason,
		Height:     uint64(height),
	}).Error
}

// IndexBlock stores the events of every successful transaction in the block
// and advances the saved height, all in one database transaction.
func (c *ChainIndexer) IndexBlock(ctx context.Context, height int64) (err error) {
	results, err := c.src.BlockResults(ctx, height)
	if err != nil {
		return err
	}
	db := c.db.Begin()
	defer func() {
		if err != nil {
			db.Rollback()
		}
	}()
	for i, res := range results {
		if res == nil || res.Code != 0 {
			continue
		}
		for _, event := range res.Events {
			attrs, err1 := json.Marshal(types.Attributes(event))
			if err1 != nil {
				return err1
			}
			row := Event{
				Height:     uint64(height),
				TxIndex:    uint32(i),
				Type:       event.Type,
				Attributes: string(attrs),
			}
			if len(event.Attributes) > 0 {
				row.Key = event.Attributes[0].Value
			}
			if err = db.Create(&row).Error; err != nil {
				return err
			}
			if h, ok := c.eventHandlers[event.Type]; ok {
				if err = h(db, event, height); err != nil {
					return err
				}
			}
		}
	}
	if err = db.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		return err
	}
	return db.Commit().Error
}

// Sync indexes every block up to the node's latest height.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	latest, err := c.src.LatestHeight(ctx)
	if err != nil {
		return err
	}
	for c.Height <= latest {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.IndexBlock(ctx, c.Height); err != nil {
			return err
		}
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
			}
		}
	}
}

// Events pages through indexed events in [fromBlock, toBlock]; a zero
// toBlock is unbounded and empty eventTypes matches every type.
func (c *ChainIndexer) Events(fromBlock, toBlock uint64, eventTypes []string, offset, limit int) ([]Event, uint64, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := c.db.Model(&Event{}).Where("height >= ?", fromBlock)
	if toBlock > 0 {
		q = q.Where("height <= ?", toBlock)
	}
	if len(eventTypes) > 0 {
		q = q.Where("type IN (?)", eventTypes)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	events := make([]Event, 0)
	if err := q.Order("id asc").Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (c *ChainIndexer) VotesByProposal(proposal uint64) ([]Vote, error) {
	votes := make([]Vote, 0)
	err := c.db.Where("proposal = ?", proposal).Order("id asc").Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (c *ChainIndexer) PausesByProtocol(protocol string, offset, limit int) ([]Pause, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	pauses := make([]Pause, 0)
	err := c.db.Where("protocol = ?", protocol).Order("id desc").Offset(offset).Limit(limit).Find(&pauses).Error
	if err != nil {
		return nil, err
	}
	return pauses, nil
}
