package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rafaelaquinocxs/supravelconnect-backend/internal/models"
)

const packageColumns = `
	id, name, description, credits, price, discount,
	is_active, is_popular, validity_days, created_at, updated_at
`

type PackageRepository struct {
	db DBTX
}

func NewPackageRepository(db DBTX) *PackageRepository {
	return &PackageRepository{db: db}
}

func scanPackage(row pgx.Row) (*models.CreditPackage, error) {
	var pkg models.CreditPackage
	err := row.Scan(
		&pkg.ID,
		&pkg.Name,
		&pkg.Description,
		&pkg.Credits,
		&pkg.Price,
		&pkg.Discount,
		&pkg.IsActive,
		&pkg.IsPopular,
		&pkg.ValidityDays,
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *PackageRepository) ListActive(ctx context.Context) ([]models.CreditPackage, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM credit_packages
		WHERE is_active
		ORDER BY price ASC
	`, packageColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packages := make([]models.CreditPackage, 0)
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return packages, nil
}

func (r *PackageRepository) GetActiveByID(ctx context.Context, packageID int64) (*models.CreditPackage, error) {
	query := fmt.Sprintf(`SELECT %s FROM credit_packages WHERE id = $1 AND is_active`, packageColumns)
	return scanPackage(r.db.QueryRow(ctx, query, packageID))
}
