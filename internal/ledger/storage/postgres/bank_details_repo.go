package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bankDetailsColumns = `user_id, account_number, ifsc_code, beneficiary_name, created_at, updated_at`

// BankDetailsRepo implements ports.BankDetailsRepository.
type BankDetailsRepo struct {
	pool Pool
}

// NewBankDetailsRepo creates a new BankDetailsRepo.
func NewBankDetailsRepo(pool Pool) *BankDetailsRepo {
	return &BankDetailsRepo{pool: pool}
}

// Upsert inserts the vendor's bank details or overwrites the existing row.
// created_at is only written on first insert.
func (r *BankDetailsRepo) Upsert(ctx context.Context, d *domain.VendorBankDetails) error {
	query := `INSERT INTO vendor_bank_details (user_id, account_number, ifsc_code, beneficiary_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			account_number = EXCLUDED.account_number,
			ifsc_code = EXCLUDED.ifsc_code,
			beneficiary_name = EXCLUDED.beneficiary_name,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		d.UserID, d.AccountNumber, d.IFSCCode, d.BeneficiaryName, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert bank details: %w", err)
	}
	return nil
}

// GetByUserID fetches the vendor's bank details, or nil, nil when none exist.
func (r *BankDetailsRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.VendorBankDetails, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendor_bank_details WHERE user_id = $1`, bankDetailsColumns)

	var d domain.VendorBankDetails
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&d.UserID, &d.AccountNumber, &d.IFSCCode, &d.BeneficiaryName, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bank details: %w", err)
	}
	return &d, nil
}
