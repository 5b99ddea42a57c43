package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/cooler-keeper/business/claims/app"
	"github.com/fd1az/cooler-keeper/business/claims/domain"
	"github.com/fd1az/cooler-keeper/internal/apperror"
	"github.com/fd1az/cooler-keeper/internal/logger"
)

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// sendStep scripts the node's reaction to one eth_sendRawTransaction.
type sendStep struct {
	errMsg string // non-empty: reject the broadcast with this message
	mine   bool   // produce a receipt for the transaction at the current head
	status string // receipt status, defaults to "0x1"
}

// chainStub is a minimal JSON-RPC node. Broadcasts are decoded and recorded
// so tests can assert on the raw transactions that went over the wire.
type chainStub struct {
	t *testing.T

	mu       sync.Mutex
	steps    []sendStep
	sent     []*types.Transaction
	receipts map[common.Hash]map[string]any
	head     uint64
}

func newChainStub(t *testing.T, steps ...sendStep) *chainStub {
	return &chainStub{
		t:        t,
		steps:    steps,
		receipts: make(map[common.Hash]map[string]any),
		head:     100,
	}
}

func (c *chainStub) sentTxs() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Transaction(nil), c.sent...)
}

func (c *chainStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var call struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		c.t.Errorf("bad rpc request: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch call.Method {
	case "eth_chainId":
		writeRPCResult(w, call.ID, "0x1")

	case "eth_blockNumber":
		writeRPCResult(w, call.ID, hexutil.EncodeUint64(c.head))

	case "eth_sendRawTransaction":
		var raw string
		if err := json.Unmarshal(call.Params[0], &raw); err != nil {
			c.t.Errorf("bad raw tx param: %v", err)
			return
		}
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(hexutil.MustDecode(raw)); err != nil {
			c.t.Errorf("undecodable raw tx: %v", err)
			return
		}
		c.sent = append(c.sent, tx)

		var step sendStep
		if len(c.steps) > 0 {
			step, c.steps = c.steps[0], c.steps[1:]
		}
		if step.mine {
			status := step.status
			if status == "" {
				status = "0x1"
			}
			c.receipts[tx.Hash()] = receiptJSON(tx, c.head, status)
		}
		if step.errMsg != "" {
			writeRPCError(w, call.ID, step.errMsg)
			return
		}
		writeRPCResult(w, call.ID, tx.Hash().Hex())

	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := json.Unmarshal(call.Params[0], &hash); err != nil {
			c.t.Errorf("bad receipt param: %v", err)
			return
		}
		if receipt, ok := c.receipts[hash]; ok {
			writeRPCResult(w, call.ID, receipt)
			return
		}
		writeRPCResult(w, call.ID, nil)

	default:
		writeRPCError(w, call.ID, "method not supported: "+call.Method)
	}
}

func receiptJSON(tx *types.Transaction, block uint64, status string) map[string]any {
	return map[string]any{
		"transactionHash":   tx.Hash().Hex(),
		"transactionIndex":  "0x0",
		"blockHash":         common.HexToHash("0xbeef").Hex(),
		"blockNumber":       hexutil.EncodeUint64(block),
		"gasUsed":           "0x30d40",
		"cumulativeGasUsed": "0x30d40",
		"logs":              []any{},
		"logsBloom":         "0x" + strings.Repeat("0", 512),
		"status":            status,
		"type":              "0x0",
	}
}

func writeRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		panic(err)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  json.RawMessage(data),
	})
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, msg string) {
	json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]any{"code": -32000, "message": msg},
	})
}

func newTestSubmitter(t *testing.T, stub *chainStub) *Submitter {
	t.Helper()

	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	readClient, err := ethclient.Dial(srv.URL)
	if err != nil {
		t.Fatalf("dial read client: %v", err)
	}
	t.Cleanup(readClient.Close)

	signer, err := NewSigner(testKey, 1)
	if err != nil {
		t.Fatal(err)
	}

	cfg := SubmitterConfig{
		SignURL:            srv.URL,
		MaxAttempts:        3,
		GasBumpPercent:     15,
		ConfirmationBlocks: 1,
		PollInterval:       5 * time.Millisecond,
		AttemptTimeout:     100 * time.Millisecond,
	}
	log := logger.New(testWriter{t}, logger.LevelDebug, "test", nil)

	submitter, err := NewSubmitter(cfg, readClient, signer, log)
	if err != nil {
		t.Fatalf("NewSubmitter() error = %v", err)
	}
	t.Cleanup(func() { submitter.Close() })

	return submitter
}

func claimRequest() app.SubmitRequest {
	return app.SubmitRequest{
		WindowID: 42,
		To:       common.HexToAddress("0xD6A6E8d9e82534bD65821142fcCd91ec9cF31880"),
		Calldata: []byte{0xe8, 0x46, 0x2e, 0x8f},
		Nonce:    7,
		GasLimit: 400000,
		GasPrice: big.NewInt(25e9),
	}
}

func TestSubmitUnderpricedBumpsAndRebroadcasts(t *testing.T) {
	stub := newChainStub(t,
		sendStep{errMsg: "replacement transaction underpriced"},
		sendStep{mine: true},
	)
	s := newTestSubmitter(t, stub)

	res, err := s.Submit(context.Background(), claimRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if res.Outcome != domain.OutcomeConfirmed {
		t.Errorf("Outcome = %s, want %s", res.Outcome, domain.OutcomeConfirmed)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", res.Attempts)
	}
	if !res.NonceConsumed {
		t.Error("NonceConsumed = false, want true")
	}

	sent := stub.sentTxs()
	if len(sent) != 2 {
		t.Fatalf("broadcasts = %d, want 2", len(sent))
	}
	for i, tx := range sent {
		if tx.Nonce() != 7 {
			t.Errorf("broadcast %d nonce = %d, want 7", i, tx.Nonce())
		}
	}
	if got := sent[0].GasPrice(); got.Cmp(big.NewInt(25_000_000_000)) != 0 {
		t.Errorf("first gas price = %s, want 25000000000", got)
	}
	// 25 gwei raised by 15 percent.
	if got := sent[1].GasPrice(); got.Cmp(big.NewInt(28_750_000_000)) != 0 {
		t.Errorf("replacement gas price = %s, want 28750000000", got)
	}
}

func TestSubmitNonceTooLowFailsFast(t *testing.T) {
	stub := newChainStub(t, sendStep{errMsg: "nonce too low"})
	s := newTestSubmitter(t, stub)

	res, err := s.Submit(context.Background(), claimRequest())
	if !apperror.IsCode(err, apperror.CodeNonceConflict) {
		t.Errorf("error = %v, want %s", err, apperror.CodeNonceConflict)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if got := len(stub.sentTxs()); got != 1 {
		t.Errorf("broadcasts = %d, want 1", got)
	}
}

func TestSubmitReplacesDroppedTransaction(t *testing.T) {
	// Every broadcast is accepted but no receipt ever appears, so each
	// attempt times out and the next one replaces it at the same nonce.
	stub := newChainStub(t)
	s := newTestSubmitter(t, stub)

	res, err := s.Submit(context.Background(), claimRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if res.Outcome != domain.OutcomeDropped {
		t.Errorf("Outcome = %s, want %s", res.Outcome, domain.OutcomeDropped)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	if res.NonceConsumed {
		t.Error("NonceConsumed = true, want false")
	}

	sent := stub.sentTxs()
	if len(sent) != 3 {
		t.Fatalf("broadcasts = %d, want 3", len(sent))
	}
	wantGas := []*big.Int{
		big.NewInt(25_000_000_000),
		big.NewInt(28_750_000_000),
		big.NewInt(33_062_500_000),
	}
	for i, tx := range sent {
		if tx.Nonce() != 7 {
			t.Errorf("broadcast %d nonce = %d, want 7", i, tx.Nonce())
		}
		if tx.GasPrice().Cmp(wantGas[i]) != 0 {
			t.Errorf("broadcast %d gas price = %s, want %s", i, tx.GasPrice(), wantGas[i])
		}
	}
}

func TestSubmitAlreadyKnownChasesReceipt(t *testing.T) {
	stub := newChainStub(t, sendStep{errMsg: "already known", mine: true})
	s := newTestSubmitter(t, stub)

	res, err := s.Submit(context.Background(), claimRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Outcome != domain.OutcomeConfirmed {
		t.Errorf("Outcome = %s, want %s", res.Outcome, domain.OutcomeConfirmed)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
}

func TestSubmitRevertedReceipt(t *testing.T) {
	stub := newChainStub(t, sendStep{mine: true, status: "0x0"})
	s := newTestSubmitter(t, stub)

	res, err := s.Submit(context.Background(), claimRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Outcome != domain.OutcomeReverted {
		t.Errorf("Outcome = %s, want %s", res.Outcome, domain.OutcomeReverted)
	}
	if !res.NonceConsumed {
		t.Error("NonceConsumed = false, want true")
	}
	if res.GasUsed != 200000 {
		t.Errorf("GasUsed = %d, want 200000", res.GasUsed)
	}
}

func TestSubmitPreflightVeto(t *testing.T) {
	stub := newChainStub(t)
	s := newTestSubmitter(t, stub)

	req := claimRequest()
	req.Preflight = func(ctx context.Context) error {
		return errors.New("profit below threshold")
	}

	res, err := s.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Outcome != domain.OutcomeAborted {
		t.Errorf("Outcome = %s, want %s", res.Outcome, domain.OutcomeAborted)
	}
	if got := len(stub.sentTxs()); got != 0 {
		t.Errorf("broadcasts = %d, want 0", got)
	}
}
