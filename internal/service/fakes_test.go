package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Listing Repo ---

type fakeListingRepo struct {
	mu       sync.RWMutex
	nextID   int64
	listings map[int64]*domain.Listing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{nextID: 1, listings: make(map[int64]*domain.Listing)}
}

func (r *fakeListingRepo) Create(ctx context.Context, l *domain.Listing) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = r.nextID
	r.nextID++
	cp := *l
	r.listings[l.ID] = &cp
	return l.ID, nil
}

func (r *fakeListingRepo) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *fakeListingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Listing, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeListingRepo) UpdateConfig(ctx context.Context, tx pgx.Tx, id int64, config domain.ConfigFlags, limit int64, allowRoot string, royalty int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("listing not found")
	}
	l.Config = config
	l.Limit = limit
	l.AllowRoot = allowRoot
	l.Royalty = royalty
	l.UpdatedAt = time.Now()
	return nil
}

func (r *fakeListingRepo) UpdateVendor(ctx context.Context, tx pgx.Tx, id int64, newVendor uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("listing not found")
	}
	l.Vendor = newVendor
	return nil
}

func (r *fakeListingRepo) UpdateURI(ctx context.Context, tx pgx.Tx, id int64, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("listing not found")
	}
	l.URI = uri
	return nil
}

func (r *fakeListingRepo) IncrementSupply(ctx context.Context, tx pgx.Tx, id int64, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("listing not found")
	}
	l.Supply += delta
	return nil
}

func (r *fakeListingRepo) ListByVendor(ctx context.Context, vendor uuid.UUID) ([]domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Listing
	for _, l := range r.listings {
		if l.Vendor == vendor {
			out = append(out, *l)
		}
	}
	return out, nil
}

// --- In-Memory Price Repo ---

type priceKey struct {
	listingID int64
	currency  domain.Currency
}

type fakePriceRepo struct {
	mu     sync.RWMutex
	prices map[priceKey]int64
}

func newFakePriceRepo() *fakePriceRepo {
	return &fakePriceRepo{prices: make(map[priceKey]int64)}
}

func (r *fakePriceRepo) Set(ctx context.Context, tx pgx.Tx, listingID int64, currency domain.Currency, price int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := priceKey{listingID, currency}
	if price == 0 {
		delete(r.prices, k)
		return nil
	}
	r.prices[k] = price
	return nil
}

func (r *fakePriceRepo) Get(ctx context.Context, listingID int64, currency domain.Currency) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prices[priceKey{listingID, currency}], nil
}

func (r *fakePriceRepo) ListByListing(ctx context.Context, listingID int64) ([]domain.PriceEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PriceEntry
	for k, p := range r.prices {
		if k.listingID == listingID {
			out = append(out, domain.PriceEntry{Currency: k.currency, Price: p})
		}
	}
	return out, nil
}

// --- In-Memory Escrow Repo ---

type escrowKey struct {
	payee    uuid.UUID
	currency domain.Currency
}

type fakeEscrowRepo struct {
	mu    sync.RWMutex
	cells map[escrowKey]*domain.EscrowCell
}

func newFakeEscrowRepo() *fakeEscrowRepo {
	return &fakeEscrowRepo{cells: make(map[escrowKey]*domain.EscrowCell)}
}

func (r *fakeEscrowRepo) Get(ctx context.Context, payee uuid.UUID, currency domain.Currency) (*domain.EscrowCell, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cells[escrowKey{payee, currency}]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeEscrowRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency) (*domain.EscrowCell, error) {
	return r.Get(ctx, payee, currency)
}

func (r *fakeEscrowRepo) Credit(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := escrowKey{payee, currency}
	c, ok := r.cells[k]
	if !ok {
		c = &domain.EscrowCell{Payee: payee, Currency: currency}
		r.cells[k] = c
	}
	c.Balance += amount
	c.TotalDeposited += amount
	c.UpdatedAt = time.Now()
	return nil
}

func (r *fakeEscrowRepo) Withdraw(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cells[escrowKey{payee, currency}]
	if !ok || c.Balance != amount {
		return fmt.Errorf("escrow cell balance mismatch")
	}
	c.Balance = 0
	c.TotalWithdrawn += amount
	c.UpdatedAt = time.Now()
	return nil
}

func (r *fakeEscrowRepo) TotalsByCurrency(ctx context.Context, currency domain.Currency) (*ports.EscrowTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	totals := &ports.EscrowTotals{Currency: currency}
	for k, c := range r.cells {
		if k.currency != currency {
			continue
		}
		totals.Balance += c.Balance
		totals.Deposited += c.TotalDeposited
		totals.Withdrawn += c.TotalWithdrawn
	}
	return totals, nil
}

// --- In-Memory Holding Repo ---

type holdingKey struct {
	holder    uuid.UUID
	listingID int64
}

type fakeHoldingRepo struct {
	mu       sync.RWMutex
	holdings map[holdingKey]*domain.Holding
}

func newFakeHoldingRepo() *fakeHoldingRepo {
	return &fakeHoldingRepo{holdings: make(map[holdingKey]*domain.Holding)}
}

func (r *fakeHoldingRepo) Get(ctx context.Context, holder uuid.UUID, listingID int64) (*domain.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holdings[holdingKey{holder, listingID}]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (r *fakeHoldingRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64) (*domain.Holding, error) {
	return r.Get(ctx, holder, listingID)
}

func (r *fakeHoldingRepo) Add(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64, units int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := holdingKey{holder, listingID}
	h, ok := r.holdings[k]
	if !ok {
		h = &domain.Holding{Holder: holder, ListingID: listingID}
		r.holdings[k] = h
	}
	h.Units += units
	h.UpdatedAt = time.Now()
	return nil
}

func (r *fakeHoldingRepo) Sub(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64, units int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holdings[holdingKey{holder, listingID}]
	if !ok || h.Units < units {
		return fmt.Errorf("insufficient units")
	}
	h.Units -= units
	h.UpdatedAt = time.Now()
	return nil
}

func (r *fakeHoldingRepo) ListByHolder(ctx context.Context, holder uuid.UUID) ([]domain.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Holding
	for k, h := range r.holdings {
		if k.holder == holder && h.Units > 0 {
			out = append(out, *h)
		}
	}
	return out, nil
}

// --- In-Memory Token Repo ---

type tokenBalanceKey struct {
	account  uuid.UUID
	currency domain.Currency
}

type fakeTokenRepo struct {
	mu         sync.RWMutex
	currencies map[domain.Currency]*domain.TokenCurrency
	balances   map[tokenBalanceKey]int64
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{
		currencies: make(map[domain.Currency]*domain.TokenCurrency),
		balances:   make(map[tokenBalanceKey]int64),
	}
}

func (r *fakeTokenRepo) CreateCurrency(ctx context.Context, c *domain.TokenCurrency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.currencies[c.Code]; ok {
		return fmt.Errorf("currency already exists")
	}
	cp := *c
	r.currencies[c.Code] = &cp
	return nil
}

func (r *fakeTokenRepo) GetCurrency(ctx context.Context, code domain.Currency) (*domain.TokenCurrency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.currencies[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeTokenRepo) Balance(ctx context.Context, account uuid.UUID, currency domain.Currency) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[tokenBalanceKey{account, currency}], nil
}

func (r *fakeTokenRepo) BalanceTx(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency) (int64, error) {
	return r.Balance(ctx, account, currency)
}

func (r *fakeTokenRepo) Credit(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[tokenBalanceKey{account, currency}] += amount
	return nil
}

func (r *fakeTokenRepo) Debit(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency, amount int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := tokenBalanceKey{account, currency}
	if r.balances[k] < amount {
		return false, nil
	}
	r.balances[k] -= amount
	return true, nil
}

// --- In-Memory Receipt Repo ---

type fakeReceiptRepo struct {
	mu       sync.RWMutex
	receipts map[uuid.UUID]*domain.MintReceipt
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{receipts: make(map[uuid.UUID]*domain.MintReceipt)}
}

func (r *fakeReceiptRepo) Create(ctx context.Context, tx pgx.Tx, receipt *domain.MintReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *receipt
	r.receipts[receipt.ID] = &cp
	return nil
}

func (r *fakeReceiptRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MintReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.receipts[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeReceiptRepo) ListByListing(ctx context.Context, listingID int64, limit int) ([]domain.MintReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.MintReceipt
	for _, rec := range r.receipts {
		if rec.ListingID == listingID {
			out = append(out, *rec)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// --- In-Memory Idempotency Repo + Cache ---

type fakeIdempotencyRepo struct {
	mu      sync.RWMutex
	entries map[string]*domain.IdempotencyLog
}

func newFakeIdempotencyRepo() *fakeIdempotencyRepo {
	return &fakeIdempotencyRepo{entries: make(map[string]*domain.IdempotencyLog)}
}

func (r *fakeIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[log.Key]; ok {
		return fmt.Errorf("duplicate idempotency key")
	}
	cp := *log
	r.entries[log.Key] = &cp
	return nil
}

func (r *fakeIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

type fakeIdempotencyCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func newFakeIdempotencyCache() *fakeIdempotencyCache {
	return &fakeIdempotencyCache{entries: make(map[string][]byte)}
}

func (c *fakeIdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key], nil
}

func (c *fakeIdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

type fakeMintGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeMintGuard() *fakeMintGuard {
	return &fakeMintGuard{held: make(map[string]bool)}
}

func (g *fakeMintGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return false, nil
	}
	g.held[key] = true
	return true, nil
}

func (g *fakeMintGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}

// --- In-Memory Account Repo ---

type fakeAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *fakeAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// --- Transactor ---

type fakeTransactor struct{}

func (t *fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
