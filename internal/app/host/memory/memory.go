// Package memory implements the host environment as an in-memory devnet
// chain. It is safe for concurrent use and is intended for tests and local
// development; nothing survives a process restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/shell_layer/internal/app/domain/shell"
	"github.com/R3E-Network/shell_layer/internal/app/host"
	"github.com/R3E-Network/shell_layer/internal/app/runtime"
)

// Receipt records one processed invocation.
type Receipt struct {
	ID        string
	Caller    shell.Address
	Target    shell.Address
	Value     int64
	Outcome   string
	Return    []byte
	CreatedAt time.Time
}

// Invocation outcomes beyond the shell state machine's own. Plain transfers
// and direct behavior calls share the same ledger.
const (
	OutcomeTransfer   = "transfer"
	OutcomeCall       = "call"
	OutcomeCallFailed = "call_failed"
)

// Chain is the in-memory devnet. Invocations are serialized under one mutex,
// which is the total ordering the protocol relies on; each invocation is
// atomic, with delegate state effects rolled back on failure.
type Chain struct {
	mu        sync.Mutex
	balances  map[shell.Address]int64
	shells    map[shell.Address]*shell.Instance
	behaviors map[shell.Address]host.Behavior
	storage   map[shell.Address]map[string][]byte
	receipts  []Receipt
	instSeq   uint64
}

var _ host.Environment = (*Chain)(nil)

// New creates an empty chain.
func New() *Chain {
	return &Chain{
		balances:  make(map[shell.Address]int64),
		shells:    make(map[shell.Address]*shell.Instance),
		behaviors: make(map[shell.Address]host.Behavior),
		storage:   make(map[shell.Address]map[string][]byte),
	}
}

// Environment implementation ---------------------------------------------------

// Instantiate installs a shell at a fresh environment-assigned address.
func (c *Chain) Instantiate(_ context.Context, image []byte, controller shell.Address) (shell.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := checkImage(image); err != nil {
		return shell.Address{}, err
	}

	addr := c.nextAddressLocked()
	for c.occupiedLocked(addr) {
		addr = c.nextAddressLocked()
	}
	c.shells[addr] = shell.NewInstance(addr, controller)
	return addr, nil
}

// InstantiateAt installs a shell at the requested address, atomically
// checking that nothing occupies it first.
func (c *Chain) InstantiateAt(_ context.Context, image []byte, controller shell.Address, addr shell.Address) (shell.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := checkImage(image); err != nil {
		return shell.Address{}, err
	}
	if c.occupiedLocked(addr) {
		return shell.Address{}, fmt.Errorf("instantiate at %s: %w", addr, shell.ErrAddressOccupied)
	}
	c.shells[addr] = shell.NewInstance(addr, controller)
	return addr, nil
}

func checkImage(image []byte) error {
	if shell.Keccak256(image) != shell.ImageHash() {
		return errors.New("image is not the shell executable")
	}
	return nil
}

// nextAddressLocked derives a fresh environment-assigned address from an
// instantiation counter. The 0xfe prefix keeps these preimages disjoint from
// deterministic derivation, which uses 0xff.
func (c *Chain) nextAddressLocked() shell.Address {
	c.instSeq++
	var seq [8]byte
	for i := 0; i < 8; i++ {
		seq[7-i] = byte(c.instSeq >> (8 * i))
	}
	sum := shell.Keccak256([]byte{0xfe}, seq[:]).Bytes()
	addr, _ := shell.AddressFromBytes(sum[len(sum)-20:])
	return addr
}

func (c *Chain) occupiedLocked(addr shell.Address) bool {
	if _, ok := c.shells[addr]; ok {
		return true
	}
	_, ok := c.behaviors[addr]
	return ok
}

// Accounts and behaviors -------------------------------------------------------

// Credit adds value to an account out of thin air. Devnet funding only.
func (c *Chain) Credit(addr shell.Address, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[addr] += amount
}

// BalanceOf returns the native balance of an address.
func (c *Chain) BalanceOf(addr shell.Address) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[addr]
}

// RegisterBehavior installs delegate logic at an address, the devnet stand-in
// for deploying an ordinary contract.
func (c *Chain) RegisterBehavior(addr shell.Address, b host.Behavior) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.occupiedLocked(addr) {
		return fmt.Errorf("register behavior at %s: %w", addr, shell.ErrAddressOccupied)
	}
	c.behaviors[addr] = b
	return nil
}

// Shell returns the instance deployed at addr, if any.
func (c *Chain) Shell(addr shell.Address) (*shell.Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.shells[addr]
	return inst, ok
}

// ReadStorage reads a storage slot outside any invocation.
func (c *Chain) ReadStorage(owner shell.Address, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.storage[owner][key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Receipts returns up to limit most recent receipts, newest first. A limit
// of zero or less returns everything.
func (c *Chain) Receipts(limit int) []Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.receipts)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Receipt, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, cloneReceipt(c.receipts[i]))
	}
	return out
}

// Invocation ------------------------------------------------------------------

// Invoke runs one invocation of target by caller with the given attached
// value and raw input. The value transfer commits on every branch, including
// a failed forward; only the state effects of the forwarded logic roll back.
// The returned error reports host-level refusals (bad value, insufficient
// caller funds) under which the invocation never started; a delegate failure
// is reported inside the Result, not here.
func (c *Chain) Invoke(caller, target shell.Address, value int64, input []byte) (runtime.Result, Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value < 0 {
		return runtime.Result{}, Receipt{}, fmt.Errorf("negative value %d", value)
	}
	if value > 0 && c.balances[caller] < value {
		return runtime.Result{}, Receipt{}, fmt.Errorf("insufficient funds: caller %s has %d, needs %d", caller, c.balances[caller], value)
	}

	// The transfer is unconditional: even no-op and failed-forward paths
	// accept attached value.
	c.balances[caller] -= value
	c.balances[target] += value

	snap := c.snapshotLocked()

	var res runtime.Result
	switch {
	case c.shells[target] != nil:
		res = runtime.Run(c.shells[target], runtime.Invocation{
			Caller: caller,
			Input:  input,
			Value:  value,
		}, chainView{c}, chainView{c})
		if res.Outcome == runtime.OutcomeForwardFailed {
			c.restoreLocked(snap)
		}

	case c.behaviors[target] != nil:
		execCtx := &host.ExecContext{
			Self:   target,
			Caller: caller,
			Value:  value,
			State:  chainView{c},
		}
		ret, err := c.behaviors[target].Invoke(execCtx, input)
		if err != nil {
			c.restoreLocked(snap)
			res = runtime.Result{Outcome: OutcomeCallFailed, Err: normalizeFailure(err)}
		} else {
			res = runtime.Result{Outcome: OutcomeCall, Return: ret}
		}

	default:
		res = runtime.Result{Outcome: OutcomeTransfer}
	}

	rcpt := Receipt{
		ID:        uuid.New().String(),
		Caller:    caller,
		Target:    target,
		Value:     value,
		Outcome:   string(res.Outcome),
		Return:    append([]byte(nil), res.Return...),
		CreatedAt: time.Now().UTC(),
	}
	c.receipts = append(c.receipts, rcpt)
	return res, cloneReceipt(rcpt), nil
}

// chainView exposes the chain to a running invocation without re-locking;
// Invoke already holds the mutex for the invocation's whole lifetime.
type chainView struct {
	c *Chain
}

var _ host.StateAccess = chainView{}
var _ runtime.Invoker = chainView{}

func (v chainView) Load(owner shell.Address, key string) ([]byte, bool) {
	val, ok := v.c.storage[owner][key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true
}

func (v chainView) Store(owner shell.Address, key string, value []byte) {
	slots := v.c.storage[owner]
	if slots == nil {
		slots = make(map[string][]byte)
		v.c.storage[owner] = slots
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	slots[key] = cp
}

func (v chainView) Balance(addr shell.Address) int64 {
	return v.c.balances[addr]
}

// InvokeInPlace executes the delegate's behavior inside the supplied context.
// A delegate with no installed behavior succeeds vacuously with empty return,
// matching the environment's permissive treatment of code-less targets.
func (v chainView) InvokeInPlace(ctx *host.ExecContext, delegate shell.Address, payload []byte) ([]byte, error) {
	b, ok := v.c.behaviors[delegate]
	if !ok {
		return nil, nil
	}
	ret, err := b.Invoke(ctx, payload)
	if err != nil {
		return nil, normalizeFailure(err)
	}
	return ret, nil
}

// normalizeFailure guarantees every behavior failure carries a raw payload.
// A *shell.DelegateError passes through untouched; anything else is wrapped
// with its message bytes as the payload.
func normalizeFailure(err error) error {
	var derr *shell.DelegateError
	if errors.As(err, &derr) {
		return derr
	}
	return shell.NewDelegateError([]byte(err.Error()))
}

// Snapshots -------------------------------------------------------------------

type chainSnapshot struct {
	balances map[shell.Address]int64
	storage  map[shell.Address]map[string][]byte
}

func (c *Chain) snapshotLocked() chainSnapshot {
	balances := make(map[shell.Address]int64, len(c.balances))
	for k, v := range c.balances {
		balances[k] = v
	}
	storage := make(map[shell.Address]map[string][]byte, len(c.storage))
	for owner, slots := range c.storage {
		cp := make(map[string][]byte, len(slots))
		for k, v := range slots {
			cp[k] = append([]byte(nil), v...)
		}
		storage[owner] = cp
	}
	return chainSnapshot{balances: balances, storage: storage}
}

func (c *Chain) restoreLocked(snap chainSnapshot) {
	c.balances = snap.balances
	c.storage = snap.storage
}

func cloneReceipt(r Receipt) Receipt {
	r.Return = append([]byte(nil), r.Return...)
	return r
}
