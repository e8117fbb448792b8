package repositories

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/models"
)

// MemoryLedger is the in-process LedgerStore used by tests and STORE_BACKEND=memory.
type MemoryLedger struct {
	mu        sync.Mutex
	marketers map[primitive.ObjectID]*models.Marketer
	sales     []models.Sale
	month     string
	// FailInsertSale and FailIncrement let tests simulate store outages.
	FailInsertSale error
	FailIncrement  error
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{marketers: make(map[primitive.ObjectID]*models.Marketer)}
}

func (l *MemoryLedger) CreateMarketer(ctx context.Context, marketer *models.Marketer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if marketer.ID.IsZero() {
		marketer.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if marketer.CreatedAt.IsZero() {
		marketer.CreatedAt = now
	}
	marketer.UpdatedAt = now
	stored := *marketer
	l.marketers[marketer.ID] = &stored
	return nil
}

func (l *MemoryLedger) GetMarketer(ctx context.Context, id primitive.ObjectID) (*models.Marketer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.marketers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *m
	return &out, nil
}

func (l *MemoryLedger) FindMarketerByReferralCode(ctx context.Context, code string) (*models.Marketer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range l.marketers {
		if m.ReferralCode == code {
			out := *m
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (l *MemoryLedger) UpdateFCMToken(ctx context.Context, id primitive.ObjectID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.marketers[id]
	if !ok {
		return ErrNotFound
	}
	m.FCMToken = token
	return nil
}

func (l *MemoryLedger) InsertSale(ctx context.Context, sale *models.Sale) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailInsertSale != nil {
		return l.FailInsertSale
	}
	if sale.IdempotencyKey != "" {
		for _, s := range l.sales {
			if s.IdempotencyKey == sale.IdempotencyKey {
				return ErrDuplicateSale
			}
		}
	}
	if sale.ID.IsZero() {
		sale.ID = primitive.NewObjectID()
	}
	l.sales = append(l.sales, *sale)
	return nil
}

func (l *MemoryLedger) DeleteSale(ctx context.Context, id primitive.ObjectID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.sales {
		if s.ID == id {
			l.sales = append(l.sales[:i], l.sales[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (l *MemoryLedger) FindSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.sales {
		if s.IdempotencyKey == key {
			out := s
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (l *MemoryLedger) ListSales(ctx context.Context, marketerID *primitive.ObjectID, limit int) ([]models.Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Sale, 0, limit)
	for _, s := range l.sales {
		if marketerID != nil && s.MarketerID != *marketerID {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *MemoryLedger) IncrementRevenue(ctx context.Context, id primitive.ObjectID, amount models.Money) (*models.Marketer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailIncrement != nil {
		return nil, l.FailIncrement
	}
	m, ok := l.marketers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if amount > 0 && (m.TeamRevenue > math.MaxInt64-amount || m.MonthlyRevenue > math.MaxInt64-amount) {
		return nil, ErrRevenueOverflow
	}
	m.TeamRevenue += amount
	m.MonthlyRevenue += amount
	m.UpdatedAt = time.Now().UTC()
	out := *m
	return &out, nil
}

func (l *MemoryLedger) ResetMonthlyRevenue(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for _, m := range l.marketers {
		if m.MonthlyRevenue != 0 {
			m.MonthlyRevenue = 0
			n++
		}
	}
	return n, nil
}

func (l *MemoryLedger) SwapRevenueMonth(ctx context.Context, month string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := l.month
	l.month = month
	return previous, nil
}

func (l *MemoryLedger) ClaimQualification(ctx context.Context, id primitive.ObjectID, level int) (int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.marketers[id]
	if !ok {
		return 0, false, ErrNotFound
	}
	if m.LastNotifiedLevel >= level {
		return m.LastNotifiedLevel, false, nil
	}
	previous := m.LastNotifiedLevel
	m.LastNotifiedLevel = level
	return previous, true, nil
}

func (l *MemoryLedger) ReleaseQualification(ctx context.Context, id primitive.ObjectID, level, previous int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.marketers[id]
	if !ok {
		return ErrNotFound
	}
	if m.LastNotifiedLevel == level {
		m.LastNotifiedLevel = previous
	}
	return nil
}

func (l *MemoryLedger) ListQualificationCandidates(ctx context.Context, level int, threshold models.Money, limit int) ([]models.Marketer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.Marketer
	for _, m := range l.marketers {
		if m.Level == level && m.TeamRevenue >= threshold && m.LastNotifiedLevel < level {
			out = append(out, *m)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
