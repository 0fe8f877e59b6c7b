package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/topupstore/topup-api/internal/domain/wallet"
)

// WalletCredit is the terminal action for wallet ledger transactions: apply
// the signed balance increment for the transaction's kind in one atomic
// step and hand the snapshots back for the audit columns.
type WalletCredit struct {
	wallets *wallet.Service
}

func NewWalletCredit(wallets *wallet.Service) *WalletCredit {
	return &WalletCredit{wallets: wallets}
}

func (a *WalletCredit) Apply(ctx context.Context, c *Claimed, amount int64) (int64, int64, error) {
	delta := c.Kind.SignedDelta(amount)
	before, after, err := a.wallets.ApplyDelta(ctx, c.UserID, delta)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return 0, 0, fmt.Errorf("%w: wallet for user %s not found", ErrIntegrity, c.UserID)
		}
		return 0, 0, err
	}
	return before, after, nil
}
