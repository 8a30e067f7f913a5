package messaging

// RawTransaction is the transaction envelope some decoding paths attach to an event
type RawTransaction struct {
	Hash string `json:"hash"`
}

// RawEvent is one undecoded-to-domain contract event as delivered by a transport.
// Depending on the decoding path the arguments arrive positionally (Args), by name
// (Named) or both, and the transaction hash may sit on the event or on its transaction.
type RawEvent struct {
	Args            []interface{}          `json:"args,omitempty"`
	Named           map[string]interface{} `json:"named,omitempty"`
	TransactionHash string                 `json:"transactionHash,omitempty"`
	Transaction     *RawTransaction        `json:"transaction,omitempty"`
	LogIndex        *uint64                `json:"logIndex,omitempty"`
	BlockNumber     *uint64                `json:"blockNumber,omitempty"`
	BlockHash       string                 `json:"blockHash,omitempty"`
	TxIndex         uint                   `json:"transactionIndex,omitempty"`

	// Removed is set when the log was dropped by a chain reorganization
	Removed bool `json:"removed,omitempty"`
}

// Block returns the block number or 0 when the transport did not provide one
func (r *RawEvent) Block() uint64 {
	if r == nil || r.BlockNumber == nil {
		return 0
	}
	return *r.BlockNumber
}
