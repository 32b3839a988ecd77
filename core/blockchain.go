package core

import (
	"context"

	ethereum "github.com/ethereum/go-ethereum/common"

	"github.com/kigawas/certifier-website/common"
)

// Blockchain is the on-chain state this core reads: the certifier contract
// and the fee registrar. Implementations live in the blockchain package.
type Blockchain interface {
	IsCertified(ctx context.Context, addr ethereum.Address) (bool, error)
	HasPaid(ctx context.Context, addr ethereum.Address) (bool, error)
	PaymentStatus(ctx context.Context, addr ethereum.Address) (common.PaymentStatus, error)
}
