package blockchain

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/big"

	ether "github.com/ethereum/go-ethereum"
	ethereum "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/kigawas/certifier-website/common"
)

const feeRegistrarABIJSON = `[
  {"constant":true,"inputs":[{"name":"_who","type":"address"}],"name":"hasPaid","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[{"name":"_who","type":"address"}],"name":"paymentStatus","outputs":[{"name":"count","type":"uint256"},{"name":"origins","type":"address[]"}],"payable":false,"stateMutability":"view","type":"function"},
  {"constant":false,"inputs":[{"name":"_who","type":"address"},{"name":"_origin","type":"address"}],"name":"refund","outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`

// refundGasLimit is the fallback when gas estimation fails.
const refundGasLimit uint64 = 100000

// parsePaymentCount bounds-checks the on-chain uint256 before narrowing it,
// so a pathological contract value can not wrap into a negative count.
func parsePaymentCount(count *big.Int) (int, error) {
	if !count.IsInt64() || count.Int64() < 0 || count.Int64() > math.MaxInt32 {
		return 0, fmt.Errorf("payment count %s out of range", count.String())
	}
	return int(count.Int64()), nil
}

// HasPaid reports whether the fee registrar recorded a payment for addr.
func (self *Blockchain) HasPaid(ctx context.Context, addr ethereum.Address) (bool, error) {
	result, err := self.call(ctx, self.registrarAddr, self.registrarABI, "hasPaid", addr)
	if err != nil {
		return false, err
	}
	paid, ok := result[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected hasPaid result type %T", result[0])
	}
	return paid, nil
}

// PaymentStatus returns how many payments were made for addr and which
// addresses funded them.
func (self *Blockchain) PaymentStatus(ctx context.Context, addr ethereum.Address) (common.PaymentStatus, error) {
	result, err := self.call(ctx, self.registrarAddr, self.registrarABI, "paymentStatus", addr)
	if err != nil {
		return common.PaymentStatus{}, err
	}
	if len(result) != 2 {
		return common.PaymentStatus{}, fmt.Errorf("unexpected paymentStatus result length %d", len(result))
	}
	count, ok := result[0].(*big.Int)
	if !ok {
		return common.PaymentStatus{}, fmt.Errorf("unexpected payment count type %T", result[0])
	}
	origins, ok := result[1].([]ethereum.Address)
	if !ok {
		return common.PaymentStatus{}, fmt.Errorf("unexpected payment origins type %T", result[1])
	}
	paymentCount, err := parsePaymentCount(count)
	if err != nil {
		return common.PaymentStatus{}, err
	}
	return common.PaymentStatus{
		PaymentCount:   paymentCount,
		PaymentOrigins: origins,
	}, nil
}

// Refund submits the on-chain refund of entry.Who's payment back to
// entry.Origin and returns the tx hash. The call returning without error
// means the tx was accepted by the node, which is this operation's
// confirmation of submission.
func (self *Blockchain) Refund(ctx context.Context, entry common.RefundEntry) (string, error) {
	who, err := common.ValidateAddress(entry.Who)
	if err != nil {
		return "", err
	}
	origin, err := common.ValidateAddress(entry.Origin)
	if err != nil {
		return "", err
	}
	data, err := self.registrarABI.Pack("refund", who, origin)
	if err != nil {
		return "", fmt.Errorf("can not pack refund call: %s", err.Error())
	}

	self.nonceMu.Lock()
	defer self.nonceMu.Unlock()

	nonce, err := self.client.PendingNonceAt(ctx, self.signer.GetAddress())
	if err != nil {
		return "", fmt.Errorf("can not get pending nonce: %s", err.Error())
	}
	gasPrice, err := self.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("can not get gas price: %s", err.Error())
	}
	msg := ether.CallMsg{From: self.signer.GetAddress(), To: &self.registrarAddr, Data: data}
	gasLimit, err := self.client.EstimateGas(ctx, msg)
	if err != nil {
		log.Printf("Blockchain: can not estimate refund gas, using %d: %s", refundGasLimit, err.Error())
		gasLimit = refundGasLimit
	}

	tx := types.NewTransaction(nonce, self.registrarAddr, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := self.signer.Sign(tx)
	if err != nil {
		return "", fmt.Errorf("can not sign refund tx: %s", err.Error())
	}
	if err := self.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("can not send refund tx: %s", err.Error())
	}
	log.Printf("Blockchain: refund %s -> %s sent in tx %s", entry.Who, entry.Origin, signedTx.Hash().Hex())
	return signedTx.Hash().Hex(), nil
}
