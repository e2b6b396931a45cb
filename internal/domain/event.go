package domain

// TokenCreationEvent is a transient record of one create-token call seen
// on chain. Produced by the discovery scanner, consumed once by pattern
// matching and registry insertion.
type TokenCreationEvent struct {
	Address      string // new token address, canonical lowercase
	Creator      string // transaction sender
	BlockNumber  uint64
	TxHash       string
	GasPriceGwei float64
	GasLimit     uint64
}
