package models

// WalletEntry is the holding of one currency. Balance = Pending + Available;
// NewWalletEntry derives Balance for backends that report only the parts.
type WalletEntry struct {
	Name      string  `json:"name"`
	Balance   float64 `json:"balance"`
	Pending   float64 `json:"pending"`
	Available float64 `json:"available"`
}

// NewWalletEntry builds a WalletEntry from the pending and available parts.
func NewWalletEntry(name string, pending, available float64) WalletEntry {
	return WalletEntry{
		Name:      name,
		Balance:   pending + available,
		Pending:   pending,
		Available: available,
	}
}
