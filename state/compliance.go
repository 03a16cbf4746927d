package state

import (
	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// Reports are append-only. Nothing in this file overwrites or removes a
// stored report and the ledger has no proxy.
var (
	KeyReport      = "d%x"
	KeyReportIndex = "di%d"
	KeyReportCount = "dc"
)

func (s *State) ReportCount() (uint64, error) {
	return s.getUint64(KeyReportCount)
}

func (s *State) GetReport(hash common.Hash) (r *types.Report, err error) {
	r = new(types.Report)
	found, err := s.getJSON(sprintf(KeyReport, hash), r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, wrap(ErrReportNotFound, hash.Hex())
	}
	return
}

func (s *State) StoreReport(caller common.Address, hash, agentId common.Hash, reportType types.ReportType, chainId uint64, uri string) error {
	if err := s.requireAuthorized(caller, ActionStoreReport, ErrUnauthorizedAnchor); err != nil {
		return err
	}
	if hash == (common.Hash{}) {
		return wrap(ErrInvalidHash, hash.Hex())
	}
	if reportType > types.MaxReportType {
		return wrap(ErrInvalidReportType, reportType)
	}
	exists, err := s.has(sprintf(KeyReport, hash))
	if err != nil {
		return err
	}
	if exists {
		return wrap(ErrReportAlreadyExists, hash.Hex())
	}
	n, err := s.ReportCount()
	if err != nil {
		return err
	}
	n++
	r := &types.Report{
		Hash:       hash,
		AgentId:    agentId,
		ReportType: reportType,
		ChainId:    chainId,
		Uri:        uri,
		Timestamp:  s.Now(),
		Seq:        n,
	}
	if err = s.setJSON(sprintf(KeyReport, hash), r); err != nil {
		return err
	}
	s.set(sprintf(KeyReportIndex, n), hash.Bytes())
	if err = s.setUint64(KeyReportCount, n); err != nil {
		return err
	}
	s.emit(types.EncodeEventReportStored(&types.EventReportStored{
		Hash:       hash,
		AgentId:    agentId,
		ReportType: reportType,
		ChainId:    chainId,
	}))
	return nil
}

func (s *State) reportAt(seq uint64) (*types.Report, error) {
	val, err := s.get(sprintf(KeyReportIndex, seq))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, wrap(ErrReportNotFound, seq)
	}
	return s.GetReport(common.BytesToHash(val))
}

// FilterReports walks the ledger in insertion order.
func (s *State) FilterReports(match func(r *types.Report) bool) (reports []*types.Report, err error) {
	n, err := s.ReportCount()
	if err != nil {
		return nil, err
	}
	for i := uint64(1); i <= n; i++ {
		r, err := s.reportAt(i)
		if err != nil {
			return nil, err
		}
		if match(r) {
			reports = append(reports, r)
		}
	}
	return
}

func (s *State) ReportsByType(t types.ReportType) ([]*types.Report, error) {
	return s.FilterReports(func(r *types.Report) bool { return r.ReportType == t })
}

func (s *State) ReportsByChain(chainId uint64) ([]*types.Report, error) {
	return s.FilterReports(func(r *types.Report) bool { return r.ChainId == chainId })
}
