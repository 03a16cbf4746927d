package state

import (
	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	HighUtilizationPct = 80
	LowRunwayDays      = 1
)

type AgentHealth struct {
	AgentId              common.Hash    `json:"agent_id"`
	Active               bool           `json:"active"`
	Wallet               common.Address `json:"wallet"`
	Balance              uint64         `json:"balance"`
	DailyBudget          uint64         `json:"daily_budget"`
	DailySpent           uint64         `json:"daily_spent"`
	UtilizationPct       uint64         `json:"utilization_pct"`
	ActionCount          uint64         `json:"action_count"`
	ActionBudget         uint64         `json:"action_budget"`
	ActionUtilizationPct uint64         `json:"action_utilization_pct"`
	RunwayDays           uint64         `json:"runway_days"`
	HighUtilization      bool           `json:"high_utilization"`
	LowRunway            bool           `json:"low_runway"`
}

func pct(part, whole uint64) uint64 {
	if whole == 0 {
		return 0
	}
	if part >= whole {
		return 100
	}
	return part * 100 / whole
}

// AgentHealth is a snapshot of budget use. Unregistered agents report
// inactive with zero values. A daily window that has elapsed counts as reset.
func (s *State) AgentHealth(id common.Hash) (h *AgentHealth, err error) {
	h = &AgentHealth{AgentId: id}
	a, err := s.Agent(id)
	if err != nil || a == nil {
		return h, err
	}
	balance, err := s.WalletBalance(id)
	if err != nil {
		return nil, err
	}
	spent, actions := a.DailySpent, a.ActionCount
	elapsed, err := s.epochElapsed(a)
	if err != nil {
		return nil, err
	}
	if elapsed {
		spent, actions = 0, 0
	}
	h.Active = a.Active
	h.Wallet = a.Wallet
	h.Balance = balance
	h.DailyBudget = a.DailyBudget
	h.DailySpent = spent
	h.UtilizationPct = pct(spent, a.DailyBudget)
	h.ActionCount = actions
	h.ActionBudget = a.ActionBudget
	h.ActionUtilizationPct = pct(actions, a.ActionBudget)
	if a.DailyBudget > 0 {
		h.RunwayDays = balance / a.DailyBudget
		h.LowRunway = h.RunwayDays < LowRunwayDays
	}
	h.HighUtilization = h.UtilizationPct > HighUtilizationPct
	return
}

var complianceWeights = map[types.ReportType]uint64{
	types.ReportTypeAML:        30,
	types.ReportTypeKYC:        25,
	types.ReportTypeRegulatory: 25,
	types.ReportTypeReserve:    20,
}

type ComplianceScore struct {
	ChainId uint64            `json:"chain_id"`
	Score   uint64            `json:"score"`
	Reports uint64            `json:"reports"`
	ByType  map[string]uint64 `json:"by_type"`
}

// ComplianceScore weighs each category that has at least one report on the
// chain. Incidents carry no weight.
func (s *State) ComplianceScore(chainId uint64) (cs *ComplianceScore, err error) {
	reports, err := s.ReportsByChain(chainId)
	if err != nil {
		return nil, err
	}
	cs = &ComplianceScore{ChainId: chainId, ByType: make(map[string]uint64)}
	seen := make(map[types.ReportType]bool)
	for _, r := range reports {
		cs.Reports++
		cs.ByType[r.ReportType.String()]++
		seen[r.ReportType] = true
	}
	for t, w := range complianceWeights {
		if seen[t] {
			cs.Score += w
		}
	}
	return
}

type ProposalView struct {
	types.Proposal
	Status          string `json:"status"`
	TotalVotes      uint64 `json:"total_votes"`
	BlocksRemaining uint64 `json:"blocks_remaining"`
}

func (s *State) ProposalView(id uint64) (v *ProposalView, err error) {
	p, err := s.Proposal(id)
	if err != nil {
		return nil, err
	}
	v = &ProposalView{
		Proposal:   *p,
		Status:     p.Status(s.header.Height).String(),
		TotalVotes: p.ForVotes + p.AgainstVotes,
	}
	if s.header.Height < p.EndBlock {
		v.BlocksRemaining = p.EndBlock - s.header.Height
	}
	return
}

type GovernanceStats struct {
	Proposals         uint64            `json:"proposals"`
	TotalVotes        uint64            `json:"total_votes"`
	ParticipationRate float64           `json:"participation_rate"`
	ByStatus          map[string]uint64 `json:"by_status"`
}

func (s *State) GovernanceStats() (g *GovernanceStats, err error) {
	g = &GovernanceStats{ByStatus: make(map[string]uint64)}
	g.Proposals, err = s.ProposalCount()
	if err != nil {
		return nil, err
	}
	g.TotalVotes, err = s.TotalVotes()
	if err != nil {
		return nil, err
	}
	if g.Proposals > 0 {
		g.ParticipationRate = float64(g.TotalVotes) / float64(g.Proposals)
	}
	for id := uint64(1); id <= g.Proposals; id++ {
		p, err := s.Proposal(id)
		if err != nil {
			return nil, err
		}
		g.ByStatus[p.Status(s.header.Height).String()]++
	}
	return
}

type UpgradeView struct {
	types.UpgradeProposal
	Status       string `json:"status"`
	ExecutableAt int64  `json:"executable_at"`
}

func (s *State) UpgradeView(id common.Hash) (*UpgradeView, error) {
	u, err := s.Upgrade(id)
	if err != nil {
		return nil, err
	}
	return &UpgradeView{
		UpgradeProposal: *u,
		Status:          u.DisplayState().String(),
		ExecutableAt:    u.ProposedAt + UpgradeTimelock,
	}, nil
}

func (s *State) Upgrades() (views []*UpgradeView, err error) {
	n, err := s.UpgradeCount()
	if err != nil {
		return nil, err
	}
	for i := uint64(1); i <= n; i++ {
		id, err := s.UpgradeIdAt(i)
		if err != nil {
			return nil, err
		}
		v, err := s.UpgradeView(id)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return
}
