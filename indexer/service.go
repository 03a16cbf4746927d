package indexer

import (
	"context"
	"net/http"
	"strconv"

	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// ChainQuerier reads the node's query paths.
type ChainQuerier interface {
	QueryJSON(ctx context.Context, path string, data []byte, v any) error
}

// Service is the dashboard read API: indexed history plus live read models.
type Service struct {
	logger     cmtlog.Logger
	engine     *gin.Engine
	indexer    *ChainIndexer
	chain      ChainQuerier
	listenAddr string
}

func NewService(logger cmtlog.Logger, listenAddr string, indexer *ChainIndexer, chain ChainQuerier) *Service {
	s := &Service{
		logger:     logger.With("module", "dashboard"),
		engine:     gin.New(),
		indexer:    indexer,
		chain:      chain,
		listenAddr: listenAddr,
	}
	s.engine.Use(gin.Recovery())
	s.engine.POST("/getEvents", s.getEvents)
	s.engine.POST("/getPauses", s.getPauses)
	s.engine.POST("/getAgentHealth", s.getAgentHealth)
	s.engine.POST("/getComplianceScore", s.getComplianceScore)
	s.engine.POST("/getProposal", s.getProposal)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

func (s *Service) Start() error {
	s.logger.Info("dashboard listening", "addr", s.listenAddr)
	return s.engine.Run(s.listenAddr)
}

type EventsRequest struct {
	FromBlock uint64   `json:"fromBlock"`
	ToBlock   uint64   `json:"toBlock"`
	Types     []string `json:"types"`
	Page      int      `json:"page"`
	PageSize  int      `json:"pageSize"`
}

type EventInfo struct {
	Height     uint64            `json:"height"`
	TxIndex    uint32            `json:"txIndex"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type EventsResponse struct {
	Events []EventInfo `json:"events"`
	Total  uint64      `json:"total"`
}

func page(p, size int) (offset, limit int) {
	if size <= 0 || size > DefaultPageSize {
		size = DefaultPageSize
	}
	if p < 1 {
		p = 1
	}
	return (p - 1) * size, size
}

func (s *Service) getEvents(c *gin.Context) {
	var req EventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ToBlock > 0 && req.ToBlock < req.FromBlock {
		c.JSON(http.StatusBadRequest, gin.H{"error": "toBlock before fromBlock"})
		return
	}
	offset, limit := page(req.Page, req.PageSize)
	events, total, err := s.indexer.Events(req.FromBlock, req.ToBlock, req.Types, offset, limit)
	if err != nil {
		s.logger.Error("getEvents fail", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	res := EventsResponse{Events: make([]EventInfo, 0, len(events)), Total: total}
	for i := range events {
		res.Events = append(res.Events, EventInfo{
			Height:     events[i].Height,
			TxIndex:    events[i].TxIndex,
			Type:       events[i].Type,
			Attributes: events[i].Attrs(),
		})
	}
	c.JSON(http.StatusOK, res)
}

type PausesRequest struct {
	Protocol string `json:"protocol" binding:"required"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

func (s *Service) getPauses(c *gin.Context) {
	var req PausesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Protocol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid protocol address"})
		return
	}
	offset, limit := page(req.Page, req.PageSize)
	pauses, err := s.indexer.PausesByProtocol(common.HexToAddress(req.Protocol).Hex(), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pauses": pauses})
}

type AgentHealthRequest struct {
	AgentId string `json:"agentId" binding:"required"`
}

func (s *Service) getAgentHealth(c *gin.Context) {
	var req AgentHealthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var h state.AgentHealth
	id := common.HexToHash(req.AgentId)
	if err := s.chain.QueryJSON(c.Request.Context(), types.QueryAgentHealth, id.Bytes(), &h); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h)
}

type ComplianceScoreRequest struct {
	ChainId uint64 `json:"chainId"`
}

func (s *Service) getComplianceScore(c *gin.Context) {
	var req ComplianceScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var cs state.ComplianceScore
	data := []byte(strconv.FormatUint(req.ChainId, 10))
	if err := s.chain.QueryJSON(c.Request.Context(), types.QueryComplianceScore, data, &cs); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cs)
}

type ProposalRequest struct {
	ProposalId uint64 `json:"proposalId" binding:"required"`
}

type ProposalResponse struct {
	Proposal *state.ProposalView `json:"proposal"`
	Votes    []Vote              `json:"votes"`
}

func (s *Service) getProposal(c *gin.Context) {
	var req ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var v state.ProposalView
	data := []byte(strconv.FormatUint(req.ProposalId, 10))
	if err := s.chain.QueryJSON(c.Request.Context(), types.QueryProposals, data, &v); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	votes, err := s.indexer.VotesByProposal(req.ProposalId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProposalResponse{Proposal: &v, Votes: votes})
}
