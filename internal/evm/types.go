package evm

// Block is a ledger block with full transactions.
type Block struct {
	Number       uint64
	Hash         string
	Time         int64 // Unix timestamp (seconds)
	Transactions []Transaction
}

// Transaction is one ledger transaction.
type Transaction struct {
	Hash        string
	From        string
	To          string // empty for contract creations
	Input       []byte
	GasPriceWei uint64
	Gas         uint64
}

// Receipt is the execution receipt of a mined transaction.
type Receipt struct {
	TxHash          string
	Status          uint64 // 1 = success, 0 = reverted
	ContractAddress string // empty unless the tx created a contract
	Logs            []Log
}

// Log is one event emitted during transaction execution.
type Log struct {
	Address string
	Topics  []string
	Data    []byte
}
