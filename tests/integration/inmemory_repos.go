package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bnpl-credit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The in-memory store emulates the database's transaction discipline with a
// single mutex: Begin blocks until the previous transaction commits or rolls
// back. That mirrors what the wallet row lock gives us in production, where
// every money movement serializes on SELECT ... FOR UPDATE.
type memStore struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	wallets  map[uuid.UUID]*domain.Wallet
	lines    map[uuid.UUID]*domain.CreditLine
	ledger   []domain.LedgerEntry
	idemLogs map[string]*domain.IdempotencyLog
}

func newMemStore() *memStore {
	return &memStore{
		wallets:  make(map[uuid.UUID]*domain.Wallet),
		lines:    make(map[uuid.UUID]*domain.CreditLine),
		idemLogs: make(map[string]*domain.IdempotencyLog),
	}
}

// --- Wallet repository ---

type memWalletRepo struct{ store *memStore }

func (r *memWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *w
	r.store.wallets[w.UserID] = &cp
	return nil
}

func (r *memWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.wallets[userID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *memWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *memWalletRepo) Update(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.wallets[w.UserID]; !ok {
		return fmt.Errorf("wallet not found")
	}
	cp := *w
	r.store.wallets[w.UserID] = &cp
	return nil
}

func (r *memWalletRepo) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.store.wallets))
	for id := range r.store.wallets {
		ids = append(ids, id)
	}
	return ids, nil
}

// --- Credit line repository ---

type memCreditLineRepo struct{ store *memStore }

func (r *memCreditLineRepo) Create(ctx context.Context, tx pgx.Tx, line *domain.CreditLine) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *line
	r.store.lines[line.ID] = &cp
	return nil
}

func (r *memCreditLineRepo) ListActiveForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) ([]domain.CreditLine, error) {
	return r.ListActive(ctx, walletID)
}

func (r *memCreditLineRepo) ListActive(ctx context.Context, walletID uuid.UUID) ([]domain.CreditLine, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.CreditLine
	for _, l := range r.store.lines {
		if l.WalletID == walletID && l.Status == domain.CreditLineActive {
			result = append(result, *l)
		}
	}
	// Oldest due date first, matching the ORDER BY in the SQL repo.
	sort.Slice(result, func(i, j int) bool {
		return result[i].DueDate.Before(result[j].DueDate)
	})
	return result, nil
}

func (r *memCreditLineRepo) Update(ctx context.Context, tx pgx.Tx, line *domain.CreditLine) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.lines[line.ID]; !ok {
		return fmt.Errorf("credit line not found")
	}
	cp := *line
	r.store.lines[line.ID] = &cp
	return nil
}

// --- Ledger repository ---

type memLedgerRepo struct{ store *memStore }

func (r *memLedgerRepo) Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.ledger = append(r.store.ledger, *entry)
	return nil
}

func (r *memLedgerRepo) ListRecent(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.LedgerEntry
	for i := len(r.store.ledger) - 1; i >= 0 && len(result) < limit; i-- {
		if r.store.ledger[i].WalletID == walletID {
			result = append(result, r.store.ledger[i])
		}
	}
	return result, nil
}

// --- Idempotency repository ---

type memIdempotencyRepo struct{ store *memStore }

func (r *memIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.idemLogs[log.Key]; ok {
		return fmt.Errorf("duplicate idempotency key")
	}
	r.store.idemLogs[log.Key] = log
	return nil
}

func (r *memIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	l, ok := r.store.idemLogs[key]
	if !ok {
		return nil, nil
	}
	return l, nil
}

// --- Idempotency cache (always misses, forcing the DB path) ---

type memIdempotencyCache struct{}

func (memIdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (memIdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

// --- Transactor ---

type memTransactor struct{ store *memStore }

func (t *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.store.txMu.Lock()
	return &memTx{store: t.store}, nil
}

// memTx releases the transaction mutex on the first Commit or Rollback.
// The services call both (deferred Rollback after Commit), so the release
// must be idempotent.
type memTx struct {
	store *memStore
	done  sync.Once
}

func (t *memTx) release() {
	t.done.Do(func() { t.store.txMu.Unlock() })
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.release(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.release(); return nil }
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
