package blockchain

import (
	"context"
	"fmt"

	ethereum "github.com/ethereum/go-ethereum/common"
)

const certifierABIJSON = `[
  {"constant":true,"inputs":[{"name":"_who","type":"address"}],"name":"isCertified","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"view","type":"function"}
]`

// IsCertified reports whether the certifier contract already certified addr.
func (self *Blockchain) IsCertified(ctx context.Context, addr ethereum.Address) (bool, error) {
	result, err := self.call(ctx, self.certifierAddr, self.certifierABI, "isCertified", addr)
	if err != nil {
		return false, err
	}
	certified, ok := result[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isCertified result type %T", result[0])
	}
	return certified, nil
}
