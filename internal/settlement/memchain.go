// memchain.go - In-memory settlement chain.
//
// MemChain implements Driver against an append-only in-process ledger.
// The nullifier set enforces double-spend rejection exactly as the real
// chain would. State can be saved to and reloaded from a JSON file so demo
// sessions survive restarts.

package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/google/uuid"
)

// ErrNullifierSeen is returned when a nullifier is submitted twice.
var ErrNullifierSeen = errors.New("nullifier already submitted")

// ErrUnknownNote is returned when consuming a note the chain never minted.
var ErrUnknownNote = errors.New("unknown note")

// chainNote is one minted note. Kind distinguishes advance payouts from
// settlement repayments.
type chainNote struct {
	NoteID   string `json:"note_id"`
	Kind     string `json:"kind"`
	DealID   string `json:"deal_id"`
	Amount   string `json:"amount"`
	Consumed bool   `json:"consumed"`
}

type chainState struct {
	Notes       []*chainNote `json:"notes"`
	Nullifiers  []string     `json:"nullifiers"`
	BlockNumber uint64       `json:"block_number"`
}

// MemChain is an in-memory Driver. Every call confirms immediately in its
// own block.
type MemChain struct {
	mu    sync.Mutex
	state chainState
	notes map[string]*chainNote
	nulls map[string]struct{}
}

func NewMemChain() *MemChain {
	return &MemChain{
		notes: make(map[string]*chainNote),
		nulls: make(map[string]struct{}),
	}
}

func (c *MemChain) mint(kind, dealID string, amount *big.Int) (string, TransactionStatus) {
	note := &chainNote{
		NoteID: uuid.NewString(),
		Kind:   kind,
		DealID: dealID,
		Amount: amount.String(),
	}
	c.state.BlockNumber++
	c.state.Notes = append(c.state.Notes, note)
	c.notes[note.NoteID] = note
	return note.NoteID, TransactionStatus{
		TxID:        uuid.NewString(),
		Status:      TxConfirmed,
		BlockNumber: c.state.BlockNumber,
	}
}

func (c *MemChain) CreateAdvanceNote(ctx context.Context, in AdvanceNoteInputs) (string, TransactionStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", TransactionStatus{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	noteID, status := c.mint("advance", in.DealID.Hex(), in.AdvanceAmount)
	return noteID, status, nil
}

func (c *MemChain) CreateSettlementNote(ctx context.Context, in SettlementNoteInputs) (string, TransactionStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", TransactionStatus{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	noteID, status := c.mint("settlement", in.DealID.Hex(), in.Amount)
	return noteID, status, nil
}

func (c *MemChain) ConsumeNote(ctx context.Context, noteID string) (TransactionStatus, error) {
	if err := ctx.Err(); err != nil {
		return TransactionStatus{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	note, ok := c.notes[noteID]
	if !ok {
		return TransactionStatus{Status: TxFailed, Err: "unknown note"},
			fmt.Errorf("consume %s: %w", noteID, ErrUnknownNote)
	}
	if note.Consumed {
		return TransactionStatus{Status: TxFailed, Err: "note already consumed"},
			fmt.Errorf("consume %s: %w", noteID, ErrUnknownNote)
	}
	note.Consumed = true
	c.state.BlockNumber++
	return TransactionStatus{
		TxID:        uuid.NewString(),
		Status:      TxConfirmed,
		BlockNumber: c.state.BlockNumber,
	}, nil
}

func (c *MemChain) SubmitNullifier(ctx context.Context, nullifier *big.Int) (TransactionStatus, error) {
	if err := ctx.Err(); err != nil {
		return TransactionStatus{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := nullifier.Text(16)
	if _, seen := c.nulls[key]; seen {
		return TransactionStatus{Status: TxFailed, Err: "double spend"},
			fmt.Errorf("nullifier %s: %w", key, ErrNullifierSeen)
	}
	c.nulls[key] = struct{}{}
	c.state.Nullifiers = append(c.state.Nullifiers, key)
	c.state.BlockNumber++
	return TransactionStatus{
		TxID:        uuid.NewString(),
		Status:      TxConfirmed,
		BlockNumber: c.state.BlockNumber,
	}, nil
}

// HasNullifier reports whether a nullifier has been recorded.
func (c *MemChain) HasNullifier(nullifier *big.Int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, seen := c.nulls[nullifier.Text(16)]
	return seen
}

// SaveToFile writes the chain state as indented JSON, overwriting path.
func (c *MemChain) SaveToFile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(&c.state)
}

// LoadChainFromFile restores a chain previously written by SaveToFile.
func LoadChainFromFile(path string) (*MemChain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c := NewMemChain()
	if err := json.NewDecoder(f).Decode(&c.state); err != nil {
		return nil, err
	}
	for _, note := range c.state.Notes {
		c.notes[note.NoteID] = note
	}
	for _, n := range c.state.Nullifiers {
		c.nulls[n] = struct{}{}
	}
	return c, nil
}
