package storage

// LedgerStore is everything the payment ledger and withdrawal sequencer touch.
type LedgerStore interface {
	PaymentStore
	BalanceReader
	LedgerWriter
	WithdrawalStore
}

// ApiStore defines the complete set of operations needed by the API.
// It composes other interfaces to provide a clear boundary for the API's data access.
type ApiStore interface {
	LedgerStore
	InventoryStore
}
