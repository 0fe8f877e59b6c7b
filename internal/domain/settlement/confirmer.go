package settlement

import (
	"context"

	"github.com/topupstore/topup-api/internal/pkg/gateway"
)

// Confirmation is the answer a Confirmer gives the engine: whether the
// external outcome is confirmed and for what amount.
type Confirmation struct {
	Confirmed bool
	Amount    int64
}

// Confirmer obtains external confirmation for a claimed transaction. How
// confirmation is obtained is the only thing that legitimately varies
// between entry points; everything else goes through the same
// claim-confirm-commit sequence.
type Confirmer interface {
	Confirm(ctx context.Context, c *Claimed) (Confirmation, error)
}

// GatewayConfirmer confirms by calling out to the payment processor's
// status endpoint. Used by the client poll path, which must never trust
// client-supplied state.
type GatewayConfirmer struct {
	client *gateway.Client
}

func NewGatewayConfirmer(client *gateway.Client) *GatewayConfirmer {
	return &GatewayConfirmer{client: client}
}

func (g *GatewayConfirmer) Confirm(ctx context.Context, c *Claimed) (Confirmation, error) {
	resp, err := g.client.CheckStatus(ctx, c.ID)
	if err != nil {
		return Confirmation{}, err
	}
	return Confirmation{Confirmed: resp.Confirmed(), Amount: resp.SettledAmount()}, nil
}

// Asserted trusts the caller's claim of success for the row's recorded
// amount. Used by the webhook path (authenticity established at the HTTP
// boundary by signature validation) and by the admin override path (the
// operator asserts external proof out-of-band).
type Asserted struct{}

func (Asserted) Confirm(_ context.Context, c *Claimed) (Confirmation, error) {
	return Confirmation{Confirmed: true, Amount: c.Amount}, nil
}
