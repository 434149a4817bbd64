package aptos

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	aptossdk "github.com/aptos-labs/aptos-go-sdk"
	aptosapi "github.com/aptos-labs/aptos-go-sdk/api"
	"github.com/chris/stealth-ledger/pkg/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0x0101010101010101010101010101010101010101010101010101010101010101"

// fakeNode answers the calls each test sets; unset calls fail the test.
type fakeNode struct {
	t *testing.T

	accountTransactions  func(account aptossdk.AccountAddress, start, limit *uint64) ([]*aptosapi.CommittedTransaction, error)
	transactionByHash    func(hash string) (*aptosapi.Transaction, error)
	transactionByVersion func(version uint64) (*aptosapi.CommittedTransaction, error)
	accountResource      func(address aptossdk.AccountAddress, resourceType string) (map[string]any, error)
	view                 func(payload *aptossdk.ViewPayload) ([]any, error)
	buildTransaction     func(sender aptossdk.AccountAddress, payload aptossdk.TransactionPayload) (*aptossdk.RawTransaction, error)
	submitTransaction    func(signed *aptossdk.SignedTransaction) (*aptosapi.SubmitTransactionResponse, error)
	waitForTransaction   func(hash string) (*aptosapi.UserTransaction, error)

	calls int
}

func (f *fakeNode) unexpected(name string) error {
	f.t.Errorf("unexpected call to %s", name)
	return errors.New("unexpected call")
}

func (f *fakeNode) AccountTransactions(account aptossdk.AccountAddress, start, limit *uint64) ([]*aptosapi.CommittedTransaction, error) {
	f.calls++
	if f.accountTransactions == nil {
		return nil, f.unexpected("AccountTransactions")
	}
	return f.accountTransactions(account, start, limit)
}

func (f *fakeNode) TransactionByHash(hash string) (*aptosapi.Transaction, error) {
	f.calls++
	if f.transactionByHash == nil {
		return nil, f.unexpected("TransactionByHash")
	}
	return f.transactionByHash(hash)
}

func (f *fakeNode) TransactionByVersion(version uint64) (*aptosapi.CommittedTransaction, error) {
	f.calls++
	if f.transactionByVersion == nil {
		return nil, f.unexpected("TransactionByVersion")
	}
	return f.transactionByVersion(version)
}

func (f *fakeNode) AccountResource(address aptossdk.AccountAddress, resourceType string, _ ...uint64) (map[string]any, error) {
	f.calls++
	if f.accountResource == nil {
		return nil, f.unexpected("AccountResource")
	}
	return f.accountResource(address, resourceType)
}

func (f *fakeNode) View(payload *aptossdk.ViewPayload, _ ...uint64) ([]any, error) {
	f.calls++
	if f.view == nil {
		return nil, f.unexpected("View")
	}
	return f.view(payload)
}

func (f *fakeNode) BuildTransaction(sender aptossdk.AccountAddress, payload aptossdk.TransactionPayload, _ ...any) (*aptossdk.RawTransaction, error) {
	f.calls++
	if f.buildTransaction == nil {
		return nil, f.unexpected("BuildTransaction")
	}
	return f.buildTransaction(sender, payload)
}

func (f *fakeNode) SubmitTransaction(signed *aptossdk.SignedTransaction) (*aptosapi.SubmitTransactionResponse, error) {
	f.calls++
	if f.submitTransaction == nil {
		return nil, f.unexpected("SubmitTransaction")
	}
	return f.submitTransaction(signed)
}

func (f *fakeNode) WaitForTransaction(hash string, _ ...any) (*aptosapi.UserTransaction, error) {
	f.calls++
	if f.waitForTransaction == nil {
		return nil, f.unexpected("WaitForTransaction")
	}
	return f.waitForTransaction(hash)
}

func newTestClient(t *testing.T, node *fakeNode, signer *Signer) *Client {
	t.Helper()
	node.t = t
	return NewClientWithNode(node, Config{
		RateLimit:    1000,
		MaxRetries:   3,
		RetryDelay:   time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}, signer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustAddress(t *testing.T, s string) aptossdk.AccountAddress {
	t.Helper()
	addr, err := parseAddress(s)
	require.NoError(t, err)
	return addr
}

func userTransaction(t *testing.T, version uint64, hash string, success bool) *aptosapi.UserTransaction {
	sender := mustAddress(t, "0xbeef")
	return &aptosapi.UserTransaction{
		Version:   version,
		Hash:      hash,
		Success:   success,
		VmStatus:  "Executed successfully",
		Sender:    &sender,
		Timestamp: 1700000000000000,
		Events: []*aptosapi.Event{{
			Type:           "0xcafe::stealth::PaymentEvent",
			SequenceNumber: 3,
			Data:           map[string]any{"amount": "500", "ephemeral_public_key": "0x02ab"},
		}},
	}
}

func committed(ut *aptosapi.UserTransaction) *aptosapi.CommittedTransaction {
	return &aptosapi.CommittedTransaction{Type: aptosapi.TransactionVariantUser, Inner: ut}
}

func httpError(status int) error {
	return &aptossdk.HttpError{Status: http.StatusText(status), StatusCode: status}
}

func TestListAccountTransactions(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		node := &fakeNode{
			accountTransactions: func(account aptossdk.AccountAddress, start, limit *uint64) ([]*aptosapi.CommittedTransaction, error) {
				assert.Equal(t, mustAddress(t, "0xcafe"), account)
				assert.Nil(t, start)
				require.NotNil(t, limit)
				assert.Equal(t, uint64(25), *limit)
				return []*aptosapi.CommittedTransaction{
					committed(userTransaction(t, 42, "0xh1", true)),
					{Type: aptosapi.TransactionVariant("block_metadata_transaction")},
				}, nil
			},
		}
		client := newTestClient(t, node, nil)

		txs, err := client.ListAccountTransactions(context.Background(), "0xcafe", 25)

		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, uint64(42), txs[0].Version)
		assert.Equal(t, "0xh1", txs[0].Hash)
		assert.True(t, txs[0].Success)
		assert.Equal(t, mustAddress(t, "0xbeef").String(), txs[0].Sender)
		assert.Equal(t, time.UnixMicro(1700000000000000).UTC(), txs[0].Timestamp)
		require.Len(t, txs[0].Events, 1)
		assert.Equal(t, "3", txs[0].Events[0].SequenceNumber)
		assert.JSONEq(t, `"500"`, string(txs[0].Events[0].Data["amount"]))
	})

	t.Run("Retries Server Errors", func(t *testing.T) {
		node := &fakeNode{}
		node.accountTransactions = func(aptossdk.AccountAddress, *uint64, *uint64) ([]*aptosapi.CommittedTransaction, error) {
			if node.calls < 3 {
				return nil, httpError(http.StatusServiceUnavailable)
			}
			return nil, nil
		}
		client := newTestClient(t, node, nil)

		txs, err := client.ListAccountTransactions(context.Background(), "0xcafe", 10)

		require.NoError(t, err)
		assert.Empty(t, txs)
		assert.Equal(t, 3, node.calls)
	})

	t.Run("Bad Request Is Not Retried", func(t *testing.T) {
		node := &fakeNode{
			accountTransactions: func(aptossdk.AccountAddress, *uint64, *uint64) ([]*aptosapi.CommittedTransaction, error) {
				return nil, httpError(http.StatusBadRequest)
			},
		}
		client := newTestClient(t, node, nil)

		_, err := client.ListAccountTransactions(context.Background(), "0xcafe", 10)

		assert.Error(t, err)
		assert.Equal(t, 1, node.calls)
	})

	t.Run("Invalid Address", func(t *testing.T) {
		node := &fakeNode{}
		client := newTestClient(t, node, nil)

		_, err := client.ListAccountTransactions(context.Background(), "not-an-address", 10)

		assert.Error(t, err)
		assert.Zero(t, node.calls)
	})
}

func TestGetTransactionByHash(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		node := &fakeNode{
			transactionByHash: func(hash string) (*aptosapi.Transaction, error) {
				return &aptosapi.Transaction{Type: aptosapi.TransactionVariantUser, Inner: userTransaction(t, 7, hash, true)}, nil
			},
		}
		client := newTestClient(t, node, nil)

		tx, err := client.GetTransactionByHash(context.Background(), "0xh7")

		require.NoError(t, err)
		assert.Equal(t, uint64(7), tx.Version)
		assert.Equal(t, "0xh7", tx.Hash)
	})

	t.Run("Pending", func(t *testing.T) {
		node := &fakeNode{
			transactionByHash: func(string) (*aptosapi.Transaction, error) {
				return &aptosapi.Transaction{Type: aptosapi.TransactionVariantPending}, nil
			},
		}
		client := newTestClient(t, node, nil)

		_, err := client.GetTransactionByHash(context.Background(), "0xh1")

		assert.ErrorIs(t, err, chain.ErrNotFound)
	})

	t.Run("Unknown", func(t *testing.T) {
		node := &fakeNode{
			transactionByHash: func(string) (*aptosapi.Transaction, error) {
				return nil, httpError(http.StatusNotFound)
			},
		}
		client := newTestClient(t, node, nil)

		_, err := client.GetTransactionByHash(context.Background(), "0xh1")

		assert.ErrorIs(t, err, chain.ErrNotFound)
		assert.Equal(t, 1, node.calls)
	})
}

func TestGetTransactionByVersion(t *testing.T) {
	node := &fakeNode{
		transactionByVersion: func(version uint64) (*aptosapi.CommittedTransaction, error) {
			return committed(userTransaction(t, version, "0xh9", true)), nil
		},
	}
	client := newTestClient(t, node, nil)

	tx, err := client.GetTransactionByVersion(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, uint64(9), tx.Version)
	require.Len(t, tx.Events, 1)
}

func TestGetCoinBalance(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		node := &fakeNode{
			view: func(payload *aptossdk.ViewPayload) ([]any, error) {
				assert.Equal(t, "coin", payload.Module.Name)
				assert.Equal(t, "balance", payload.Function)
				require.Len(t, payload.ArgTypes, 1)
				assert.Equal(t, "0x1::aptos_coin::AptosCoin", payload.ArgTypes[0].String())
				owner := mustAddress(t, "0xbeef")
				assert.Equal(t, [][]byte{owner[:]}, payload.Args)
				return []any{"123456"}, nil
			},
		}
		client := newTestClient(t, node, nil)

		balance, err := client.GetCoinBalance(context.Background(), "0xbeef", "0x1::aptos_coin::AptosCoin")

		require.NoError(t, err)
		assert.Equal(t, uint64(123456), balance)
	})

	t.Run("Not Registered", func(t *testing.T) {
		node := &fakeNode{
			view: func(*aptossdk.ViewPayload) ([]any, error) {
				return nil, httpError(http.StatusNotFound)
			},
		}
		client := newTestClient(t, node, nil)

		_, err := client.GetCoinBalance(context.Background(), "0xbeef", "0x1::aptos_coin::AptosCoin")

		assert.ErrorIs(t, err, chain.ErrNotFound)
	})

	t.Run("Invalid Coin Type", func(t *testing.T) {
		node := &fakeNode{}
		client := newTestClient(t, node, nil)

		_, err := client.GetCoinBalance(context.Background(), "0xbeef", "AptosCoin")

		assert.Error(t, err)
		assert.Zero(t, node.calls)
	})
}

func TestGetCoinInfo(t *testing.T) {
	node := &fakeNode{
		accountResource: func(address aptossdk.AccountAddress, resourceType string) (map[string]any, error) {
			assert.Equal(t, aptossdk.AccountOne, address)
			assert.Equal(t, "0x1::coin::CoinInfo<0x1::aptos_coin::AptosCoin>", resourceType)
			return map[string]any{
				"type": resourceType,
				"data": map[string]any{"name": "Aptos Coin", "symbol": "APT", "decimals": float64(8)},
			}, nil
		},
	}
	client := newTestClient(t, node, nil)

	info, err := client.GetCoinInfo(context.Background(), "0x1::aptos_coin::AptosCoin")

	require.NoError(t, err)
	assert.Equal(t, "APT", info.Symbol)
	assert.Equal(t, uint8(8), info.Decimals)

	_, err = client.GetCoinInfo(context.Background(), "nocolons")
	assert.Error(t, err)
}

func TestSubmitTransfer(t *testing.T) {
	signer, err := NewSigner(testKey)
	require.NoError(t, err)
	req := chain.TransferRequest{To: "0xdead", Amount: 200, CoinType: "0x1::aptos_coin::AptosCoin"}

	build := func(sender aptossdk.AccountAddress, payload aptossdk.TransactionPayload) (*aptossdk.RawTransaction, error) {
		return &aptossdk.RawTransaction{
			Sender:                     sender,
			SequenceNumber:             7,
			Payload:                    payload,
			MaxGasAmount:               maxGasAmount,
			GasUnitPrice:               100,
			ExpirationTimestampSeconds: uint64(time.Now().Add(time.Minute).Unix()),
			ChainId:                    2,
		}, nil
	}

	t.Run("Success", func(t *testing.T) {
		node := &fakeNode{
			buildTransaction: func(sender aptossdk.AccountAddress, payload aptossdk.TransactionPayload) (*aptossdk.RawTransaction, error) {
				assert.Equal(t, signer.Address, sender.String())
				entry, ok := payload.Payload.(*aptossdk.EntryFunction)
				require.True(t, ok)
				assert.Equal(t, "aptos_account", entry.Module.Name)
				assert.Equal(t, "transfer_coins", entry.Function)
				require.Len(t, entry.Args, 2)
				dest := mustAddress(t, "0xdead")
				assert.Equal(t, dest[:], entry.Args[0])
				return build(sender, payload)
			},
			submitTransaction: func(signed *aptossdk.SignedTransaction) (*aptosapi.SubmitTransactionResponse, error) {
				assert.Equal(t, uint64(7), signed.Transaction.SequenceNumber)
				assert.NotNil(t, signed.Authenticator)
				return &aptosapi.SubmitTransactionResponse{Hash: "0xout"}, nil
			},
		}
		client := newTestClient(t, node, signer)

		hash, err := client.SubmitTransfer(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "0xout", hash)
	})

	t.Run("Rejected Submission", func(t *testing.T) {
		submits := 0
		node := &fakeNode{
			buildTransaction: build,
			submitTransaction: func(*aptossdk.SignedTransaction) (*aptosapi.SubmitTransactionResponse, error) {
				submits++
				return nil, httpError(http.StatusBadRequest)
			},
		}
		client := newTestClient(t, node, signer)

		_, err := client.SubmitTransfer(context.Background(), req)

		require.Error(t, err)
		assert.NotErrorIs(t, err, chain.ErrSubmissionUnknown)
		assert.Equal(t, 1, submits)
	})

	t.Run("Lost Response Is Unknown And Not Retried", func(t *testing.T) {
		for name, submitErr := range map[string]error{
			"Transport":    errors.New("connection reset by peer"),
			"Server Error": httpError(http.StatusBadGateway),
		} {
			t.Run(name, func(t *testing.T) {
				submits := 0
				node := &fakeNode{
					buildTransaction: build,
					submitTransaction: func(*aptossdk.SignedTransaction) (*aptosapi.SubmitTransactionResponse, error) {
						submits++
						return nil, submitErr
					},
				}
				client := newTestClient(t, node, signer)

				_, err := client.SubmitTransfer(context.Background(), req)

				assert.ErrorIs(t, err, chain.ErrSubmissionUnknown)
				assert.Equal(t, 1, submits)
			})
		}
	})

	t.Run("Build Failure Is Not Unknown", func(t *testing.T) {
		node := &fakeNode{
			buildTransaction: func(aptossdk.AccountAddress, aptossdk.TransactionPayload) (*aptossdk.RawTransaction, error) {
				return nil, httpError(http.StatusBadRequest)
			},
		}
		client := newTestClient(t, node, signer)

		_, err := client.SubmitTransfer(context.Background(), req)

		require.Error(t, err)
		assert.NotErrorIs(t, err, chain.ErrSubmissionUnknown)
	})

	t.Run("No Signer", func(t *testing.T) {
		node := &fakeNode{}
		client := newTestClient(t, node, nil)

		_, err := client.SubmitTransfer(context.Background(), req)

		assert.Error(t, err)
		assert.Zero(t, node.calls)
	})
}

func TestWaitForConfirmation(t *testing.T) {
	t.Run("Committed", func(t *testing.T) {
		node := &fakeNode{
			waitForTransaction: func(hash string) (*aptosapi.UserTransaction, error) {
				return userTransaction(t, 9, hash, true), nil
			},
		}
		client := newTestClient(t, node, nil)

		tx, err := client.WaitForConfirmation(context.Background(), "0xout", time.Second)

		require.NoError(t, err)
		assert.Equal(t, uint64(9), tx.Version)
	})

	t.Run("Aborted On Chain", func(t *testing.T) {
		node := &fakeNode{
			waitForTransaction: func(hash string) (*aptosapi.UserTransaction, error) {
				ut := userTransaction(t, 9, hash, false)
				ut.VmStatus = "EINSUFFICIENT_BALANCE"
				return ut, nil
			},
		}
		client := newTestClient(t, node, nil)

		tx, err := client.WaitForConfirmation(context.Background(), "0xout", time.Second)

		assert.ErrorIs(t, err, chain.ErrTransactionFailed)
		assert.Contains(t, err.Error(), "EINSUFFICIENT_BALANCE")
		require.NotNil(t, tx)
		assert.False(t, tx.Success)
	})

	t.Run("Timeout", func(t *testing.T) {
		node := &fakeNode{
			waitForTransaction: func(string) (*aptosapi.UserTransaction, error) {
				return nil, errors.New("timeout waiting for transaction")
			},
		}
		client := newTestClient(t, node, nil)

		_, err := client.WaitForConfirmation(context.Background(), "0xout", 30*time.Millisecond)

		assert.ErrorIs(t, err, chain.ErrConfirmationTimeout)
	})
}

func TestNewSigner(t *testing.T) {
	signer, err := NewSigner(testKey)
	require.NoError(t, err)
	assert.Len(t, signer.Address, 66)
	assert.True(t, strings.HasPrefix(signer.Address, "0x"))

	again, err := NewSigner(strings.TrimPrefix(testKey, "0x"))
	require.NoError(t, err)
	assert.Equal(t, signer.Address, again.Address)

	_, err = NewSigner("abcd")
	assert.Error(t, err)

	_, err = NewSigner("zz")
	assert.Error(t, err)
}

func TestTreasuryAddress(t *testing.T) {
	signer, err := NewSigner(testKey)
	require.NoError(t, err)

	assert.Equal(t, signer.Address, newTestClient(t, &fakeNode{}, signer).TreasuryAddress())
	assert.Empty(t, newTestClient(t, &fakeNode{}, nil).TreasuryAddress())
}

func TestEventDataIsRawJSON(t *testing.T) {
	tx, err := fromUserTransaction(userTransaction(t, 1, "0xh", true))
	require.NoError(t, err)

	var key string
	require.NoError(t, json.Unmarshal(tx.Events[0].Data["ephemeral_public_key"], &key))
	assert.Equal(t, "0x02ab", key)
}
