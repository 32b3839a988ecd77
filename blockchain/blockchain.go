package blockchain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ether "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethereum "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Signer signs refund transactions with the fee registrar's operator key.
type Signer interface {
	GetAddress() ethereum.Address
	Sign(tx *types.Transaction) (*types.Transaction, error)
}

// Blockchain talks to the certifier and fee registrar contracts. Reads go
// through eth_call, the refund write is a signed transaction from the
// operator account.
type Blockchain struct {
	client *ethclient.Client
	signer Signer

	certifierAddr ethereum.Address
	registrarAddr ethereum.Address
	certifierABI  abi.ABI
	registrarABI  abi.ABI

	// serializes nonce assignment between concurrent refund submissions
	nonceMu sync.Mutex
}

func NewBlockchain(
	client *ethclient.Client,
	signer Signer,
	certifierAddr, registrarAddr ethereum.Address) (*Blockchain, error) {

	certifierABI, err := abi.JSON(strings.NewReader(certifierABIJSON))
	if err != nil {
		return nil, fmt.Errorf("can not parse certifier ABI: %s", err.Error())
	}
	registrarABI, err := abi.JSON(strings.NewReader(feeRegistrarABIJSON))
	if err != nil {
		return nil, fmt.Errorf("can not parse fee registrar ABI: %s", err.Error())
	}
	return &Blockchain{
		client:        client,
		signer:        signer,
		certifierAddr: certifierAddr,
		registrarAddr: registrarAddr,
		certifierABI:  certifierABI,
		registrarABI:  registrarABI,
	}, nil
}

func (self *Blockchain) call(
	ctx context.Context,
	to ethereum.Address,
	parsed abi.ABI,
	method string,
	args ...interface{}) ([]interface{}, error) {

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("can not pack %s call: %s", method, err.Error())
	}
	msg := ether.CallMsg{To: &to, Data: data}
	output, err := self.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %s", method, err.Error())
	}
	result, err := parsed.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("can not unpack %s result: %s", method, err.Error())
	}
	return result, nil
}
