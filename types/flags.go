package types

const (
	FlagOverwrite  = "overwrite"
	FlagChainID    = "chain-id"
	FlagHome       = "home"
	FlagEvmChainID = "evm-chain-id"
)
