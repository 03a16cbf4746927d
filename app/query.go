package app

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	CodeQueryNotFound    = 404
	CodeQueryInvalidData = 400
)

var (
	errQueryInvalidData = errors.New("invalid query data")
	errQueryNotFound    = errors.New("not found")
)

const QueryValidators = "/validators/"

func (app *GuardianApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeQueryNotFound
		res.Log = "unknown query path " + req.Path
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// readFunc answers a query from a committed snapshot.
type readFunc func(st *state.State, data []byte) (any, error)

type StateQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
	read   readFunc
}

func NewStateQuerier(db *state.StateDB, logger cmtlog.Logger, read readFunc) (q *StateQuerier) {
	q = &StateQuerier{
		db:     db,
		logger: logger,
		read:   read,
	}
	return
}

func (q *StateQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st := q.db.ReadState()
	res.Height = int64(st.Height())
	v, err := q.read(st, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, errQueryInvalidData):
			res.Code = CodeQueryInvalidData
		case errors.Is(err, errQueryNotFound):
			res.Code = CodeQueryNotFound
		default:
			res.Code = state.ErrorCode(err)
		}
		res.Log = err.Error()
		return res, nil
	}
	res.Value, err = json.Marshal(v)
	if err != nil {
		q.logger.Error("query marshal fail", "path", req.Path, "err", err)
		res.Code = state.CategoryInternal * 100
		res.Log = err.Error()
	}
	return res, nil
}

func (app *GuardianApp) registerQuerier() {
	reads := map[string]readFunc{
		types.QueryProtocols:       queryProtocols,
		types.QueryAgents:          queryAgents,
		types.QueryAgentHealth:     queryAgentHealth,
		types.QueryReports:         queryReports,
		types.QueryComplianceScore: queryComplianceScore,
		types.QueryProposals:       queryProposals,
		types.QueryGovernance:      queryGovernance,
		types.QueryUpgrades:        queryUpgrades,
		types.QueryRelayOutbox:     queryOutbox,
		types.QueryAccounts:        queryAccount,
		types.QueryTokens:          queryTokens,
		types.QueryRoles:           queryRoles,
		types.QueryConfig:          queryConfig,
		QueryValidators:            queryValidators,
	}
	for path, read := range reads {
		app.queriers[path] = NewStateQuerier(app.db, app.logger, read)
	}
}

func address(data []byte) (common.Address, error) {
	if len(data) != common.AddressLength {
		return common.Address{}, errQueryInvalidData
	}
	return common.BytesToAddress(data), nil
}

func hash(data []byte) (common.Hash, error) {
	if len(data) != common.HashLength {
		return common.Hash{}, errQueryInvalidData
	}
	return common.BytesToHash(data), nil
}

func decimal(data []byte) (uint64, error) {
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, errQueryInvalidData
	}
	return n, nil
}

func queryProtocols(st *state.State, data []byte) (any, error) {
	if len(data) == 0 {
		ids, err := st.ProtocolIds()
		if err != nil {
			return nil, err
		}
		ps := make([]*types.Protocol, 0, len(ids))
		for _, id := range ids {
			p, err := st.Protocol(id)
			if err != nil {
				return nil, err
			}
			ps = append(ps, p)
		}
		return ps, nil
	}
	id, err := address(data)
	if err != nil {
		return nil, err
	}
	p, err := st.Protocol(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errQueryNotFound
	}
	return p, nil
}

func queryAgents(st *state.State, data []byte) (any, error) {
	if len(data) == 0 {
		ids, err := st.AgentIds()
		if err != nil {
			return nil, err
		}
		as := make([]*types.Agent, 0, len(ids))
		for _, id := range ids {
			a, err := st.Agent(id)
			if err != nil {
				return nil, err
			}
			as = append(as, a)
		}
		return as, nil
	}
	id, err := hash(data)
	if err != nil {
		return nil, err
	}
	a, err := st.Agent(id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errQueryNotFound
	}
	return a, nil
}

func queryAgentHealth(st *state.State, data []byte) (any, error) {
	id, err := hash(data)
	if err != nil {
		return nil, err
	}
	return st.AgentHealth(id)
}

func queryReports(st *state.State, data []byte) (any, error) {
	var q types.ReportQuery
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q); err != nil {
			return nil, errQueryInvalidData
		}
	}
	if q.Hash != (common.Hash{}) {
		return st.GetReport(q.Hash)
	}
	return st.FilterReports(func(r *types.Report) bool {
		if q.Type != nil && r.ReportType != *q.Type {
			return false
		}
		return q.ChainId == nil || r.ChainId == *q.ChainId
	})
}

func queryComplianceScore(st *state.State, data []byte) (any, error) {
	chainId, err := decimal(data)
	if err != nil {
		return nil, err
	}
	return st.ComplianceScore(chainId)
}

func queryProposals(st *state.State, data []byte) (any, error) {
	id, err := decimal(data)
	if err != nil {
		return nil, err
	}
	return st.ProposalView(id)
}

func queryGovernance(st *state.State, data []byte) (any, error) {
	return st.GovernanceStats()
}

func queryUpgrades(st *state.State, data []byte) (any, error) {
	if len(data) == 0 {
		return st.Upgrades()
	}
	id, err := hash(data)
	if err != nil {
		return nil, err
	}
	return st.UpgradeView(id)
}

func queryOutbox(st *state.State, data []byte) (any, error) {
	var q types.OutboxQuery
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q); err != nil {
			return nil, errQueryInvalidData
		}
	}
	msgs, err := st.Outbox(q.After, q.Limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*types.AlertMessage{}
	}
	return msgs, nil
}

func queryAccount(st *state.State, data []byte) (any, error) {
	addr, err := address(data)
	if err != nil {
		return nil, err
	}
	return st.Account(addr)
}

func queryTokens(st *state.State, data []byte) (any, error) {
	addr, err := address(data)
	if err != nil {
		return nil, err
	}
	bal, err := st.Tokens().BalanceOf(addr)
	if err != nil {
		return nil, err
	}
	return &types.TokenBalance{Address: addr, Balance: bal}, nil
}

func queryRoles(st *state.State, data []byte) (any, error) {
	roles := state.AllRoles
	if len(data) > 0 {
		roles = []string{string(data)}
	}
	members := make(map[string][]common.Address, len(roles))
	for _, role := range roles {
		m, err := st.RoleMembers(role)
		if err != nil {
			return nil, err
		}
		if m == nil {
			m = []common.Address{}
		}
		members[role] = m
	}
	return members, nil
}

func queryConfig(st *state.State, data []byte) (any, error) {
	threshold, err := st.ConfidenceThreshold()
	if err != nil {
		return nil, err
	}
	epoch, err := st.EpochDuration()
	if err != nil {
		return nil, err
	}
	dests, err := st.RelayDestinations()
	if err != nil {
		return nil, err
	}
	return &types.RegistryConfig{
		ConfidenceThreshold: threshold,
		EpochDuration:       epoch,
		RelayDestinations:   dests,
		EvmChainId:          st.Header().EvmChainId,
	}, nil
}

func queryValidators(st *state.State, data []byte) (any, error) {
	return st.Validators()
}
