package engine

import (
	"github.com/google/uuid"

	"lrd/internal/engine/interfaces"
	"lrd/internal/providers"
)

// LoopbackSettlementClient acknowledges submissions locally. Deployments
// replace this with a real ledger client; the engine only sees the
// SettlementInterface either way.
type LoopbackSettlementClient struct {
	logger providers.Logger
}

func NewLoopbackSettlementClient(logger providers.Logger) interfaces.SettlementInterface {
	return &LoopbackSettlementClient{logger: logger}
}

func (c *LoopbackSettlementClient) Submit(amount float64, destination string) (string, error) {
	txID := uuid.NewString()
	c.logger.Infof(providers.TypeClaim, "loopback settlement: %.3f to %s as tx %s", amount, destination, txID)
	return txID, nil
}
