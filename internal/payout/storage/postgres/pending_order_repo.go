package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/TrulyGourav/OrchexPay/internal/payout/domain"
	"github.com/TrulyGourav/OrchexPay/internal/payout/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const pendingOrderColumns = `id, merchant_id, vendor_id, order_id, amount::text, currency, split_done, created_at`

// PendingOrderRepo implements ports.PendingOrderRepository.
type PendingOrderRepo struct {
	pool Pool
}

// NewPendingOrderRepo creates a new PendingOrderRepo.
func NewPendingOrderRepo(pool Pool) *PendingOrderRepo {
	return &PendingOrderRepo{pool: pool}
}

// Create inserts a pending order. A unique violation on
// (merchant_id, order_id) is reported as ports.ErrDuplicateKey.
func (r *PendingOrderRepo) Create(ctx context.Context, o *domain.PendingOrder) error {
	query := `INSERT INTO pending_orders (id, merchant_id, vendor_id, order_id, amount, currency, split_done, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		o.ID, o.MerchantID, o.VendorID, o.OrderID,
		o.Amount.StringAmount(), o.Amount.Currency(), o.SplitDone, o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert pending order: %w", ports.ErrDuplicateKey)
		}
		return fmt.Errorf("insert pending order: %w", err)
	}
	return nil
}

// GetByOrderID fetches a pending order by its merchant-scoped order id.
func (r *PendingOrderRepo) GetByOrderID(ctx context.Context, merchantID uuid.UUID, orderID string) (*domain.PendingOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM pending_orders WHERE merchant_id = $1 AND order_id = $2`, pendingOrderColumns)

	o := &domain.PendingOrder{}
	var amountStr, currencyStr string
	err := r.pool.QueryRow(ctx, query, merchantID, orderID).Scan(
		&o.ID, &o.MerchantID, &o.VendorID, &o.OrderID,
		&amountStr, &currencyStr, &o.SplitDone, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending order: %w", err)
	}

	amount, err := money.Parse(amountStr, currencyStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q %q: %w", amountStr, currencyStr, err)
	}
	o.Amount = amount
	return o, nil
}

// MarkSplitDone records that the order's escrow split has settled.
func (r *PendingOrderRepo) MarkSplitDone(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE pending_orders SET split_done = TRUE WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark split done: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending order not found: %s", id)
	}
	return nil
}
