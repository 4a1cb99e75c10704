package trader

import (
	"context"
	"fmt"
	"log"
	"time"
)

// awaitConfirmation waits for a signature to reach confirmed commitment.
// It prefers the push path when a Confirmer is installed and falls back to
// polling signature statuses. A definitive on-chain failure returns
// ErrTransactionFailed; running out the deadline returns (false, nil) so the
// caller can report a soft failure instead of discarding the signature.
func (e *Engine) awaitConfirmation(ctx context.Context, signature string) (bool, error) {
	if e.confirmer != nil {
		ok, err := e.confirmer.WaitForSignature(ctx, signature)
		if err == nil {
			if !ok {
				return false, fmt.Errorf("%w: %s", ErrTransactionFailed, signature)
			}
			return true, nil
		}
		log.Printf("push confirmation unavailable (%v), falling back to polling", err)
	}
	return e.pollForConfirmation(ctx, signature)
}

func (e *Engine) pollForConfirmation(ctx context.Context, signature string) (bool, error) {
	deadline := time.Now().Add(e.pollTimeout)

	for {
		statuses, err := e.rpc.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			// Transient RPC trouble must not fail a submitted transaction.
			log.Printf("signature status poll: %v", err)
		} else if len(statuses) > 0 {
			status := statuses[0]
			if status.Failed() {
				return false, fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, status.Err)
			}
			if status.Confirmed() {
				return true, nil
			}
		}

		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}
