package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrDuplicateSale = errors.New("sale already recorded for idempotency key")
	// ErrRevenueOverflow means the increment would leave the int64 range.
	ErrRevenueOverflow = errors.New("revenue increment out of range")
)

// LedgerStore holds marketers and their sales. Revenue fields are mutated
// only by IncrementRevenue and ResetMonthlyRevenue.
type LedgerStore interface {
	CreateMarketer(ctx context.Context, marketer *models.Marketer) error
	GetMarketer(ctx context.Context, id primitive.ObjectID) (*models.Marketer, error)
	FindMarketerByReferralCode(ctx context.Context, code string) (*models.Marketer, error)
	UpdateFCMToken(ctx context.Context, id primitive.ObjectID, token string) error

	InsertSale(ctx context.Context, sale *models.Sale) error
	DeleteSale(ctx context.Context, id primitive.ObjectID) error
	FindSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error)
	// ListSales returns the newest sales first; a nil marketerID lists all marketers.
	ListSales(ctx context.Context, marketerID *primitive.ObjectID, limit int) ([]models.Sale, error)

	// IncrementRevenue adds amount to teamRevenue and monthlyRevenue in one
	// atomic update and returns the post-increment marketer. An increment that
	// would overflow fails with ErrRevenueOverflow and changes nothing.
	IncrementRevenue(ctx context.Context, id primitive.ObjectID, amount models.Money) (*models.Marketer, error)
	ResetMonthlyRevenue(ctx context.Context) (int64, error)
	// SwapRevenueMonth records month (YYYY-MM) as the current revenue month and
	// returns the month recorded before it, "" when none was.
	SwapRevenueMonth(ctx context.Context, month string) (previous string, err error)

	// ClaimQualification moves lastNotifiedLevel up to level if it is below it.
	// Only the caller that gets claimed=true may emit the qualification.
	ClaimQualification(ctx context.Context, id primitive.ObjectID, level int) (previous int, claimed bool, err error)
	// ReleaseQualification undoes a claim whose notification could not be written.
	ReleaseQualification(ctx context.Context, id primitive.ObjectID, level, previous int) error
	// ListQualificationCandidates returns marketers at level whose team revenue
	// reached threshold but who were never notified for that level.
	ListQualificationCandidates(ctx context.Context, level int, threshold models.Money, limit int) ([]models.Marketer, error)
}

// ListQuery selects one page of a subject's notifications.
type ListQuery struct {
	SubjectID string
	Cursor    string
	Limit     int
	Type      models.NotificationType
	Status    models.NotificationStatus
}

// NotificationStore is the append-only notification log.
type NotificationStore interface {
	Append(ctx context.Context, n *models.Notification) (primitive.ObjectID, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	ListByCursor(ctx context.Context, q ListQuery) (*models.NotificationPage, error)
	MarkRead(ctx context.Context, subjectID string, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context, subjectID string) (int64, error)
	MarkAllReadByType(ctx context.Context, subjectID string, t models.NotificationType) (int64, error)
	Delete(ctx context.Context, subjectID string, id primitive.ObjectID) error
	Counts(ctx context.Context, subjectID string) (*models.NotificationCounts, error)
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
