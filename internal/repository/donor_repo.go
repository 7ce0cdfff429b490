package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const donorColumns = `id, blood_group, organ_offered, city, region, available_for_emergency, active, created_at, updated_at`

// PostgresDonorRepository - реализация DonorRepository для базы данных.
type PostgresDonorRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresDonorRepository создает новый экземпляр PostgresDonorRepository.
func NewPostgresDonorRepository(db *pgxpool.Pool) *PostgresDonorRepository {
	return &PostgresDonorRepository{DB: db}
}

// UpsertDonor создает донора или обновляет его профиль. Время создания сохраняется,
// снятый с учета донор повторно не активируется.
func (r *PostgresDonorRepository) UpsertDonor(ctx context.Context, donor models.Donor) (*models.Donor, error) {
	now := time.Now().UTC()
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = now
	}
	donor.UpdatedAt = now

	query := `
		INSERT INTO donor (` + donorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			blood_group = EXCLUDED.blood_group,
			organ_offered = EXCLUDED.organ_offered,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			available_for_emergency = EXCLUDED.available_for_emergency,
			active = donor.active AND EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + donorColumns
	row := r.DB.QueryRow(
		ctx,
		query,
		donor.ID,
		donor.BloodGroup,
		organsToStrings(donor.OrganOffered),
		donor.City,
		donor.Region,
		donor.AvailableForEmergency,
		donor.Active,
		donor.CreatedAt,
		donor.UpdatedAt)
	return scanDonor(row)
}

// GetDonor получает донора по ID.
func (r *PostgresDonorRepository) GetDonor(ctx context.Context, donorId string) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donor WHERE id = $1`
	donor, err := scanDonor(r.DB.QueryRow(ctx, query, donorId))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("donor %s", donorId)
	}
	return donor, err
}

// ListActiveDonors возвращает всех активных доноров.
func (r *PostgresDonorRepository) ListActiveDonors(ctx context.Context) ([]models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donor WHERE active ORDER BY id`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donors []models.Donor
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, *donor)
	}
	return donors, rows.Err()
}

// WithdrawDonor выводит донора из пула. Донор с активной парой не выводится.
func (r *PostgresDonorRepository) WithdrawDonor(ctx context.Context, donorId string, at time.Time) (*models.Donor, error) {
	query := `
		UPDATE donor SET active = FALSE, updated_at = $2
		WHERE id = $1
		AND NOT EXISTS (
			SELECT 1 FROM organ_match
			WHERE donor_id = $1 AND status IN ('proposed', 'confirmed')
		)
		RETURNING ` + donorColumns
	donor, err := scanDonor(r.DB.QueryRow(ctx, query, donorId, at))
	if err == nil {
		return donor, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM donor WHERE id = $1)`, donorId).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NotFoundf("donor %s", donorId)
	}
	return nil, models.ConcurrentModificationf("donor %s holds an active match", donorId)
}

func scanDonor(row pgx.Row) (*models.Donor, error) {
	var donor models.Donor
	var organs []string
	err := row.Scan(
		&donor.ID,
		&donor.BloodGroup,
		&organs,
		&donor.City,
		&donor.Region,
		&donor.AvailableForEmergency,
		&donor.Active,
		&donor.CreatedAt,
		&donor.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan donor: %w", err)
	}
	donor.OrganOffered = make([]models.OrganType, 0, len(organs))
	for _, o := range organs {
		donor.OrganOffered = append(donor.OrganOffered, models.OrganType(o))
	}
	return &donor, nil
}

func organsToStrings(organs []models.OrganType) []string {
	out := make([]string, 0, len(organs))
	for _, o := range organs {
		out = append(out, string(o))
	}
	return out
}
