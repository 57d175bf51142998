package providers

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"math/rand/v2"
	"time"

	"anoa.com/mindminer/pkg/apperror"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Ledger issues reward payments. idempotencyKey identifies the logical payment so a retried
// call cannot pay twice.
type Ledger interface {
	Pay(ctx context.Context, toAddress string, amountMicroAlgos uint64, memo, idempotencyKey string) (string, error)
}

// AlgorandLedger pays from a hot wallet on the configured algod node.
type AlgorandLedger struct {
	client  *algod.Client
	sender  crypto.Account
	timeout time.Duration
}

func NewAlgorandLedger(server, token, senderMnemonic string) (*AlgorandLedger, error) {
	client, err := algod.MakeClient(server, token)
	if err != nil {
		return nil, fmt.Errorf("create algod client: %w", err)
	}

	sk, err := mnemonic.ToPrivateKey(senderMnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid sender mnemonic: %w", err)
	}

	account, err := crypto.AccountFromPrivateKey(ed25519.PrivateKey(sk))
	if err != nil {
		return nil, fmt.Errorf("derive sender account: %w", err)
	}

	return &AlgorandLedger{
		client:  client,
		sender:  account,
		timeout: 30 * time.Second,
	}, nil
}

func (l *AlgorandLedger) Pay(ctx context.Context, toAddress string, amountMicroAlgos uint64, memo, idempotencyKey string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if _, err := types.DecodeAddress(toAddress); err != nil {
		return "", fmt.Errorf("invalid recipient address %q: %w", toAddress, apperror.ErrInvalidInput)
	}

	params, err := l.client.SuggestedParams().Do(ctx)
	if err != nil {
		return "", fmt.Errorf("suggested params: %v: %w", err, apperror.ErrUpstreamUnavailable)
	}

	txn, err := transaction.MakePaymentTxn(l.sender.Address.String(), toAddress, amountMicroAlgos, []byte(memo), "", params)
	if err != nil {
		return "", fmt.Errorf("build payment txn: %w", err)
	}
	// A lease derived from the key makes a duplicate payment inside the validity window
	// rejected by the network.
	txn.Lease = sha256.Sum256([]byte(idempotencyKey))

	txID, signed, err := crypto.SignTransaction(l.sender.PrivateKey, txn)
	if err != nil {
		return "", fmt.Errorf("sign payment txn: %w", err)
	}

	if _, err := l.client.SendRawTransaction(signed).Do(ctx); err != nil {
		return "", fmt.Errorf("send payment txn: %v: %w", err, apperror.ErrUpstreamUnavailable)
	}

	if _, err := transaction.WaitForConfirmation(l.client, txID, 4, ctx); err != nil {
		return "", fmt.Errorf("confirm payment txn %s: %v: %w", txID, err, apperror.ErrUpstreamUnavailable)
	}

	return txID, nil
}

// MockLedger returns synthetic transaction ids; used when no sender mnemonic is configured.
type MockLedger struct{}

func (MockLedger) Pay(ctx context.Context, toAddress string, amountMicroAlgos uint64, memo, idempotencyKey string) (string, error) {
	return SyntheticTransactionID(), nil
}

// SyntheticTransactionID marks a reward whose on-chain payment is still pending.
func SyntheticTransactionID() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 10)
	for i := range suffix {
		suffix[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return fmt.Sprintf("MOCK_TXN_%d_%s", time.Now().UnixMilli(), suffix)
}
