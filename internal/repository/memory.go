package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory implementations of the store contracts. They back the workflow
// tests and any wiring that has no database, and mirror the concurrency
// guarantees of the gorm implementations: status updates are compare-and-swap
// and ledger appends are check-and-insert under one lock.

// MemoryRequestStore is an in-memory FuelRequestRepository
type MemoryRequestStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]model.FuelRequest
}

func NewMemoryRequestStore() *MemoryRequestStore {
	return &MemoryRequestStore{requests: make(map[uuid.UUID]model.FuelRequest)}
}

func (s *MemoryRequestStore) Create(ctx context.Context, req *model.FuelRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.LastModifiedAt = now
	s.requests[req.ID] = *req
	return nil
}

func (s *MemoryRequestStore) FindByID(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrRequestNotFound, id)
	}
	out := req
	return &out, nil
}

func (s *MemoryRequestStore) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.FuelRequest, error) {
	return s.FindByID(ctx, id)
}

func (s *MemoryRequestStore) List(ctx context.Context, status string, page, limit int) ([]model.FuelRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []model.FuelRequest
	for _, req := range s.requests {
		if status == "" || req.Status == status {
			all = append(all, req)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	offset := (page - 1) * limit
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *MemoryRequestStore) UpdateStatusCAS(ctx context.Context, id uuid.UUID, expectedStatus string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrRequestNotFound, id)
	}
	if req.Status != expectedStatus {
		return fmt.Errorf("%w: expected status %s on %s", model.ErrStaleState, expectedStatus, id)
	}

	for key, value := range fields {
		switch key {
		case "status":
			req.Status = value.(string)
		case "quantity_served":
			qty := value.(decimal.Decimal)
			req.QuantityServed = &qty
		case "last_modified_at":
			req.LastModifiedAt = value.(time.Time)
		}
	}
	s.requests[id] = req
	return nil
}

// MemoryLedger is an in-memory ValidationLedger
type MemoryLedger struct {
	mu      sync.Mutex
	entries []model.ValidationEntry
	decided map[string]bool // "requestID/level"
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{decided: make(map[string]bool)}
}

func ledgerKey(requestID uuid.UUID, level int) string {
	return fmt.Sprintf("%s/%d", requestID, level)
}

func (l *MemoryLedger) Append(ctx context.Context, entry *model.ValidationEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(entry.RequestID, entry.Level)
	if l.decided[key] {
		return fmt.Errorf("%w: request %s level %d", model.ErrLevelAlreadyDecided, entry.RequestID, entry.Level)
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.DecidedAt.IsZero() {
		entry.DecidedAt = time.Now()
	}
	l.decided[key] = true
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *MemoryLedger) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.ValidationEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.ValidationEntry
	for _, e := range l.entries {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

// MemoryAuditRepository is an in-memory AuditRepository
type MemoryAuditRepository struct {
	mu   sync.Mutex
	logs []model.AuditLog
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *MemoryAuditRepository) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := int64(len(r.logs))
	offset := (page - 1) * limit
	if offset >= len(r.logs) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(r.logs) {
		end = len(r.logs)
	}
	out := make([]model.AuditLog, end-offset)
	copy(out, r.logs[offset:end])
	return out, total, nil
}

// NopTransactionManager runs the callback without transactional scope. The
// in-memory stores are individually atomic; the append-before-CAS ordering in
// the transition engine keeps the ledger invariant intact without rollback.
type NopTransactionManager struct{}

func (NopTransactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
