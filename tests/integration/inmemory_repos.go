package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
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

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
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

// --- In-Memory Listing Repo ---

type inMemoryListingRepo struct {
	mu       sync.RWMutex
	listings map[int64]*domain.Listing
	nextID   int64
}

func newInMemoryListingRepo() *inMemoryListingRepo {
	return &inMemoryListingRepo{listings: make(map[int64]*domain.Listing), nextID: 1}
}

func (r *inMemoryListingRepo) Create(ctx context.Context, l *domain.Listing) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	cp := *l
	cp.ID = id
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.listings[id] = &cp
	return id, nil
}

func (r *inMemoryListingRepo) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *inMemoryListingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Listing, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryListingRepo) UpdateConfig(ctx context.Context, tx pgx.Tx, id int64, config domain.ConfigFlags, limit int64, allowRoot string, royalty int64) error {
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

func (r *inMemoryListingRepo) UpdateVendor(ctx context.Context, tx pgx.Tx, id int64, newVendor uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("listing not found")
	}
	l.Vendor = newVendor
	l.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryListingRepo) UpdateURI(ctx context.Context, tx pgx.Tx, id int64, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("listing not found")
	}
	l.URI = uri
	l.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryListingRepo) IncrementSupply(ctx context.Context, tx pgx.Tx, id int64, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("listing not found")
	}
	l.Supply += delta
	l.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryListingRepo) ListByVendor(ctx context.Context, vendor uuid.UUID) ([]domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Listing
	for _, l := range r.listings {
		if l.Vendor == vendor {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// --- In-Memory Price Repo ---

type inMemoryPriceRepo struct {
	mu     sync.RWMutex
	prices map[string]int64
}

func newInMemoryPriceRepo() *inMemoryPriceRepo {
	return &inMemoryPriceRepo{prices: make(map[string]int64)}
}

func priceKey(listingID int64, currency domain.Currency) string {
	return fmt.Sprintf("%d:%s", listingID, currency)
}

func (r *inMemoryPriceRepo) Set(ctx context.Context, tx pgx.Tx, listingID int64, currency domain.Currency, price int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if price == 0 {
		delete(r.prices, priceKey(listingID, currency))
		return nil
	}
	r.prices[priceKey(listingID, currency)] = price
	return nil
}

func (r *inMemoryPriceRepo) Get(ctx context.Context, listingID int64, currency domain.Currency) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prices[priceKey(listingID, currency)], nil
}

func (r *inMemoryPriceRepo) ListByListing(ctx context.Context, listingID int64) ([]domain.PriceEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PriceEntry
	for k, v := range r.prices {
		var id int64
		var code string
		if _, err := fmt.Sscanf(k, "%d:%s", &id, &code); err == nil && id == listingID {
			result = append(result, domain.PriceEntry{ListingID: id, Currency: domain.Currency(code), Price: v})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Currency < result[j].Currency })
	return result, nil
}

// --- In-Memory Escrow Repo ---

type inMemoryEscrowRepo struct {
	mu    sync.RWMutex
	cells map[string]*domain.EscrowCell
}

func newInMemoryEscrowRepo() *inMemoryEscrowRepo {
	return &inMemoryEscrowRepo{cells: make(map[string]*domain.EscrowCell)}
}

func escrowKey(payee uuid.UUID, currency domain.Currency) string {
	return payee.String() + ":" + string(currency)
}

func (r *inMemoryEscrowRepo) Get(ctx context.Context, payee uuid.UUID, currency domain.Currency) (*domain.EscrowCell, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cells[escrowKey(payee, currency)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryEscrowRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency) (*domain.EscrowCell, error) {
	return r.Get(ctx, payee, currency)
}

func (r *inMemoryEscrowRepo) Credit(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := escrowKey(payee, currency)
	c, ok := r.cells[key]
	if !ok {
		c = &domain.EscrowCell{Payee: payee, Currency: currency}
		r.cells[key] = c
	}
	c.Balance += amount
	c.TotalDeposited += amount
	c.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryEscrowRepo) Withdraw(ctx context.Context, tx pgx.Tx, payee uuid.UUID, currency domain.Currency, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cells[escrowKey(payee, currency)]
	if !ok || c.Balance != amount {
		return fmt.Errorf("escrow cell balance changed under lock")
	}
	c.Balance = 0
	c.TotalWithdrawn += amount
	c.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryEscrowRepo) TotalsByCurrency(ctx context.Context, currency domain.Currency) (*ports.EscrowTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	totals := &ports.EscrowTotals{Currency: currency}
	for _, c := range r.cells {
		if c.Currency != currency {
			continue
		}
		totals.Balance += c.Balance
		totals.Deposited += c.TotalDeposited
		totals.Withdrawn += c.TotalWithdrawn
	}
	return totals, nil
}

// --- In-Memory Holding Repo ---

type inMemoryHoldingRepo struct {
	mu       sync.RWMutex
	holdings map[string]*domain.Holding
}

func newInMemoryHoldingRepo() *inMemoryHoldingRepo {
	return &inMemoryHoldingRepo{holdings: make(map[string]*domain.Holding)}
}

func holdingKey(holder uuid.UUID, listingID int64) string {
	return fmt.Sprintf("%s:%d", holder, listingID)
}

func (r *inMemoryHoldingRepo) Get(ctx context.Context, holder uuid.UUID, listingID int64) (*domain.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holdings[holdingKey(holder, listingID)]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (r *inMemoryHoldingRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64) (*domain.Holding, error) {
	return r.Get(ctx, holder, listingID)
}

func (r *inMemoryHoldingRepo) Add(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64, units int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := holdingKey(holder, listingID)
	h, ok := r.holdings[key]
	if !ok {
		h = &domain.Holding{Holder: holder, ListingID: listingID}
		r.holdings[key] = h
	}
	h.Units += units
	h.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryHoldingRepo) Sub(ctx context.Context, tx pgx.Tx, holder uuid.UUID, listingID int64, units int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holdings[holdingKey(holder, listingID)]
	if !ok || h.Units < units {
		return fmt.Errorf("insufficient units")
	}
	h.Units -= units
	h.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryHoldingRepo) ListByHolder(ctx context.Context, holder uuid.UUID) ([]domain.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Holding
	for _, h := range r.holdings {
		if h.Holder == holder && h.Units > 0 {
			result = append(result, *h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ListingID < result[j].ListingID })
	return result, nil
}

// --- In-Memory Token Repo ---

type inMemoryTokenRepo struct {
	mu         sync.RWMutex
	currencies map[domain.Currency]*domain.TokenCurrency
	balances   map[string]int64
}

func newInMemoryTokenRepo() *inMemoryTokenRepo {
	return &inMemoryTokenRepo{
		currencies: make(map[domain.Currency]*domain.TokenCurrency),
		balances:   make(map[string]int64),
	}
}

func tokenKey(account uuid.UUID, currency domain.Currency) string {
	return account.String() + ":" + string(currency)
}

func (r *inMemoryTokenRepo) CreateCurrency(ctx context.Context, c *domain.TokenCurrency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.currencies[c.Code]; ok {
		return fmt.Errorf("currency already exists")
	}
	cp := *c
	r.currencies[c.Code] = &cp
	return nil
}

func (r *inMemoryTokenRepo) GetCurrency(ctx context.Context, code domain.Currency) (*domain.TokenCurrency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.currencies[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryTokenRepo) Balance(ctx context.Context, account uuid.UUID, currency domain.Currency) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[tokenKey(account, currency)], nil
}

func (r *inMemoryTokenRepo) BalanceTx(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency) (int64, error) {
	return r.Balance(ctx, account, currency)
}

func (r *inMemoryTokenRepo) Credit(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[tokenKey(account, currency)] += amount
	return nil
}

func (r *inMemoryTokenRepo) Debit(ctx context.Context, tx pgx.Tx, account uuid.UUID, currency domain.Currency, amount int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tokenKey(account, currency)
	if r.balances[key] < amount {
		return false, nil
	}
	r.balances[key] -= amount
	return true, nil
}

// --- In-Memory Receipt Repo ---

type inMemoryReceiptRepo struct {
	mu       sync.RWMutex
	receipts map[uuid.UUID]*domain.MintReceipt
}

func newInMemoryReceiptRepo() *inMemoryReceiptRepo {
	return &inMemoryReceiptRepo{receipts: make(map[uuid.UUID]*domain.MintReceipt)}
}

func (r *inMemoryReceiptRepo) Create(ctx context.Context, tx pgx.Tx, receipt *domain.MintReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *receipt
	r.receipts[receipt.ID] = &cp
	return nil
}

func (r *inMemoryReceiptRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MintReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.receipts[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryReceiptRepo) ListByListing(ctx context.Context, listingID int64, limit int) ([]domain.MintReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.MintReceipt
	for _, rec := range r.receipts {
		if rec.ListingID == listingID {
			result = append(result, *rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu   sync.RWMutex
	logs map[string]*domain.IdempotencyLog
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{logs: make(map[string]*domain.IdempotencyLog)}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[log.Key]; ok {
		return fmt.Errorf("duplicate idempotency key")
	}
	cp := *log
	r.logs[log.Key] = &cp
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// --- Serializing Transactor ---

// serializingTransactor emulates the listing row lock: transactions run one
// at a time, released on Commit or Rollback, whichever comes first.
type serializingTransactor struct {
	mu sync.Mutex
}

func newSerializingTransactor() *serializingTransactor {
	return &serializingTransactor{}
}

func (t *serializingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	tx := &memTx{}
	tx.release = func() { t.mu.Unlock() }
	return tx, nil
}

// memTx is a no-op pgx.Tx whose Commit/Rollback release the transactor lock once.
type memTx struct {
	once    sync.Once
	release func()
}

func (t *memTx) Commit(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
