package signer

import (
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethereum "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FileSigner signs refund transactions with an encrypted keystore file, the
// operator account of the fee registrar contract.
type FileSigner struct {
	opts *bind.TransactOpts
}

func (self FileSigner) GetAddress() ethereum.Address {
	return self.opts.From
}

func (self FileSigner) Sign(tx *types.Transaction) (*types.Transaction, error) {
	return self.opts.Signer(self.GetAddress(), tx)
}

func NewFileSigner(keystorePath, passphrase string, chainID *big.Int) (*FileSigner, error) {
	key, err := os.Open(keystorePath)
	if err != nil {
		return nil, err
	}
	defer key.Close()
	opts, err := bind.NewTransactorWithChainID(key, passphrase, chainID)
	if err != nil {
		return nil, err
	}
	return &FileSigner{opts: opts}, nil
}
