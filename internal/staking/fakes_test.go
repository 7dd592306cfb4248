package staking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type memState struct {
	cfg      *Config
	seq      uint64
	holders  map[string]*Holder
	outbox   []MintInstruction
	requests map[string]bool
}

func (s *memState) clone() *memState {
	c := &memState{
		seq:      s.seq,
		holders:  make(map[string]*Holder, len(s.holders)),
		outbox:   append([]MintInstruction(nil), s.outbox...),
		requests: make(map[string]bool, len(s.requests)),
	}
	if s.cfg != nil {
		cfg := *s.cfg
		c.cfg = &cfg
	}
	for k, h := range s.holders {
		c.holders[k] = h.Clone()
	}
	for k := range s.requests {
		c.requests[k] = true
	}
	return c
}

// memStore is a copy-on-write Store: a failed Update leaves no trace.
type memStore struct {
	mu    sync.Mutex
	state *memState
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		holders:  make(map[string]*Holder),
		requests: make(map[string]bool),
	}}
}

func (m *memStore) Update(_ context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{st: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.st
	return nil
}

func (m *memStore) View(_ context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{st: m.state.clone()})
}

func (m *memStore) holder(principal string) (*Holder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.state.holders[principal]
	if !ok {
		return nil, false
	}
	return h.Clone(), true
}

func (m *memStore) putHolder(principal string, h *Holder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.holders[principal] = h.Clone()
}

func (m *memStore) config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state.cfg
}

func (m *memStore) outbox() []MintInstruction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MintInstruction(nil), m.state.outbox...)
}

type memTx struct{ st *memState }

func (t *memTx) Config() (*Config, error) {
	if t.st.cfg == nil {
		return nil, ErrNotInitialized
	}
	cfg := *t.st.cfg
	return &cfg, nil
}

func (t *memTx) SetConfig(cfg *Config) error {
	c := *cfg
	t.st.cfg = &c
	return nil
}

func (t *memTx) Holder(principal string) (*Holder, bool, error) {
	h, ok := t.st.holders[principal]
	if !ok {
		return NewHolder(), false, nil
	}
	return h.Clone(), true, nil
}

func (t *memTx) SetHolder(principal string, h *Holder) error {
	t.st.holders[principal] = h.Clone()
	return nil
}

func (t *memTx) MintSequence() (uint64, error) { return t.st.seq, nil }

func (t *memTx) SetMintSequence(seq uint64) error {
	t.st.seq = seq
	return nil
}

func (t *memTx) EnqueueMints(mints []MintInstruction) error {
	t.st.outbox = append(t.st.outbox, mints...)
	return nil
}

func (t *memTx) MarkRequest(id string) (bool, error) {
	if t.st.requests[id] {
		return false, nil
	}
	t.st.requests[id] = true
	return true, nil
}

// fakeOracle answers OwnerOf from a fixed table keyed by collection/token.
type fakeOracle struct {
	owners map[string]string
	calls  int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{owners: make(map[string]string)}
}

func (o *fakeOracle) set(collection, tokenID, owner string) {
	o.owners[collection+"/"+tokenID] = owner
}

func (o *fakeOracle) OwnerOf(_ context.Context, collection, tokenID string) (string, error) {
	o.calls++
	owner, ok := o.owners[collection+"/"+tokenID]
	if !ok {
		return "", errors.New("token not found")
	}
	return owner, nil
}

// fakeCodec treats "h:<name>" as the human form of "<name>".
type fakeCodec struct{}

func (fakeCodec) Canonicalize(addr string) (string, error) {
	raw := strings.ToLower(strings.TrimPrefix(addr, "h:"))
	if raw == "" || strings.ContainsAny(raw, " !") {
		return "", fmt.Errorf("malformed address %q", addr)
	}
	return raw, nil
}

func (fakeCodec) Humanize(addr string) (string, error) {
	if addr == "" {
		return "", errors.New("empty address")
	}
	return "h:" + addr, nil
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advanceSeconds(s int64) { c.t = c.t.Add(time.Duration(s) * time.Second) }

func (c *testClock) unix() int64 { return c.t.Unix() }

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
