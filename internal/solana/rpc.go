package solana

import "context"

// RPCClient defines the RPC surface the trading engine needs.
type RPCClient interface {
	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetLatestBlockhash returns the most recent blockhash.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// SendTransaction submits signed raw transaction bytes and returns the signature.
	SendTransaction(ctx context.Context, signedTx []byte) (string, error)

	// GetSignatureStatuses returns confirmation status for the given signatures.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetTokenAccountsByOwner returns all token balances held by an owner.
	GetTokenAccountsByOwner(ctx context.Context, owner string) ([]TokenBalance, error)

	// GetFeeForMessage returns the network fee in lamports for a base64 message.
	GetFeeForMessage(ctx context.Context, messageBase64 string) (uint64, error)
}

// SignatureStatus is the confirmation state of one submitted signature.
// A nil entry from GetSignatureStatuses means the signature is unknown.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int
	ConfirmationStatus string // "processed" | "confirmed" | "finalized"
	Err                interface{}
}

// Failed reports whether the transaction landed on chain with an error.
func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Err != nil
}

// Confirmed reports whether the transaction reached at least confirmed commitment.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil || s.Err != nil {
		return false
	}
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// TokenBalance is one SPL token holding of a wallet.
type TokenBalance struct {
	Mint     string
	Account  string
	Amount   string // raw amount, base units
	Decimals int
	UIAmount float64
}
