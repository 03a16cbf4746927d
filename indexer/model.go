package indexer

import "encoding/json"

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

// Event is one ledger event emitted by a successful transaction. Key holds
// the value of the event's indexed attribute (protocol, agent, proposal...).
type Event struct {
	Id         uint64 `gorm:"primary_key;auto_increment" json:"id"`
	Height     uint64 `gorm:"index" json:"height"`
	TxIndex    uint32 `json:"tx_index"`
	Type       string `gorm:"index" json:"type"`
	Key        string `gorm:"index" json:"key"`
	Attributes string `gorm:"type:text" json:"-"`
}

func (e *Event) Attrs() map[string]string {
	m := make(map[string]string)
	_ = json.Unmarshal([]byte(e.Attributes), &m)
	return m
}

type Vote struct {
	Id       uint64 `gorm:"primary_key;auto_increment" json:"id"`
	Proposal uint64 `gorm:"index" json:"proposal"`
	Voter    string `json:"voter"`
	Support  bool   `json:"support"`
	Height   uint64 `json:"height"`
}

type Pause struct {
	Id         uint64 `gorm:"primary_key;auto_increment" json:"id"`
	Protocol   string `gorm:"index" json:"protocol"`
	AgentId    string `json:"agent_id"`
	Confidence uint32 `json:"confidence"`
	Reason     string `json:"reason"`
	Height     uint64 `json:"height"`
}
