package aptos

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	aptossdk "github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
	"github.com/aptos-labs/aptos-go-sdk/crypto"
	"github.com/chris/stealth-ledger/pkg/chain"
)

const maxGasAmount = 2000

// Signer holds the treasury account.
type Signer struct {
	account *aptossdk.Account
	Address string
}

// NewSigner builds a Signer from a hex encoded 32 byte ed25519 private key.
func NewSigner(keyHex string) (*Signer, error) {
	key := &crypto.Ed25519PrivateKey{}
	if err := key.FromHex(keyHex); err != nil {
		return nil, fmt.Errorf("invalid treasury key: %w", err)
	}
	account, err := aptossdk.NewAccountFromSigner(key)
	if err != nil {
		return nil, fmt.Errorf("invalid treasury key: %w", err)
	}
	return &Signer{account: account, Address: account.Address.String()}, nil
}

func transferPayload(req chain.TransferRequest) (aptossdk.TransactionPayload, error) {
	tag, err := coinTypeTag(req.CoinType)
	if err != nil {
		return aptossdk.TransactionPayload{}, err
	}
	to, err := parseAddress(req.To)
	if err != nil {
		return aptossdk.TransactionPayload{}, err
	}
	amount, err := bcs.SerializeU64(req.Amount)
	if err != nil {
		return aptossdk.TransactionPayload{}, err
	}
	return aptossdk.TransactionPayload{Payload: &aptossdk.EntryFunction{
		Module:   aptossdk.ModuleId{Address: aptossdk.AccountOne, Name: "aptos_account"},
		Function: "transfer_coins",
		ArgTypes: []aptossdk.TypeTag{*tag},
		Args:     [][]byte{to[:], amount},
	}}, nil
}

// rejected reports a submit error the node answered with a client error, so
// the transaction was definitely not accepted.
func rejected(err error) bool {
	status := statusOf(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusRequestTimeout
}

// SubmitTransfer builds a transfer_coins call, signs it with the treasury key
// and submits it. It is never retried.
func (c *Client) SubmitTransfer(ctx context.Context, req chain.TransferRequest) (string, error) {
	if c.signer == nil {
		return "", errors.New("no treasury signer configured")
	}
	payload, err := transferPayload(req)
	if err != nil {
		return "", fmt.Errorf("invalid transfer: %w", err)
	}

	var raw *aptossdk.RawTransaction
	err = c.read(ctx, func() error {
		var err error
		raw, err = c.node.BuildTransaction(c.signer.account.Address, payload, aptossdk.MaxGasAmount(maxGasAmount))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to build transfer: %w", err)
	}
	signed, err := raw.SignedTransaction(c.signer.account)
	if err != nil {
		return "", fmt.Errorf("failed to sign transfer: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}
	resp, err := c.node.SubmitTransaction(signed)
	if err != nil {
		if rejected(err) {
			return "", fmt.Errorf("transfer rejected: %w", err)
		}
		return "", fmt.Errorf("%w: %v", chain.ErrSubmissionUnknown, err)
	}

	c.logger.Info("transfer submitted", "tx_hash", resp.Hash, "to", req.To, "amount", req.Amount, "coin_type", req.CoinType)
	return resp.Hash, nil
}
