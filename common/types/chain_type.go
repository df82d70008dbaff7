package types

// ChainType represents supported blockchain families.
type ChainType string

const (
	// EVM represents Ethereum Virtual Machine based chains (e.g. Ethereum, Polygon, Base, etc.)
	EVM ChainType = "EVM"
	// SOLANA represents the Solana chain family.
	SOLANA ChainType = "SOLANA"
	// UNKNOWN represents an unknown or unsupported chain family in the system.
	UNKNOWN ChainType = "UNKNOWN"
)

// String converts ChainType to string representation.
func (t ChainType) String() string {
	return string(t)
}

// ParseChainType converts string to ChainType representation.
func ParseChainType(s string) ChainType {
	switch s {
	case EVM.String():
		return EVM
	case SOLANA.String():
		return SOLANA
	default:
		return UNKNOWN
	}
}
