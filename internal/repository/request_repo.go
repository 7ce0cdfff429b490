package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, organ_type, blood_group, urgency_level, recipient_id, city, region, status, created_at, updated_at`

// PostgresRequestRepository - реализация RequestRepository для базы данных.
type PostgresRequestRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresRequestRepository создает новый экземпляр PostgresRequestRepository.
func NewPostgresRequestRepository(db *pgxpool.Pool) *PostgresRequestRepository {
	return &PostgresRequestRepository{DB: db}
}

// CreateRequest создает новый запрос реципиента.
func (r *PostgresRequestRepository) CreateRequest(ctx context.Context, request models.Request) (*models.Request, error) {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	request.UpdatedAt = request.CreatedAt

	insertQuery := `INSERT INTO request (` + requestColumns + `)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		request.ID,
		request.OrganType,
		request.BloodGroup,
		request.UrgencyLevel,
		request.RecipientID,
		request.City,
		request.Region,
		request.Status,
		request.CreatedAt,
		request.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// GetRequest получает запрос по ID.
func (r *PostgresRequestRepository) GetRequest(ctx context.Context, requestId string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM request WHERE id = $1`
	request, err := scanRequest(r.DB.QueryRow(ctx, query, requestId))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("request %s", requestId)
	}
	return request, err
}

// ListRequests возвращает страницу запросов, при пустом статусе - все.
func (r *PostgresRequestRepository) ListRequests(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.Request, error) {
	var query string
	var args []interface{}
	if status != "" {
		query = `
			SELECT ` + requestColumns + `
			FROM request
			WHERE status = $1
			ORDER BY created_at, id
			LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query = `
			SELECT ` + requestColumns + `
			FROM request
			ORDER BY created_at, id
			LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	return r.queryRequests(ctx, query, args...)
}

// ListPendingRequests возвращает все запросы в статусе pending.
func (r *PostgresRequestRepository) ListPendingRequests(ctx context.Context) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM request WHERE status = $1 ORDER BY created_at, id`
	return r.queryRequests(ctx, query, models.PendingRequest)
}

func (r *PostgresRequestRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]models.Request, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}
	return requests, rows.Err()
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var request models.Request
	err := row.Scan(
		&request.ID,
		&request.OrganType,
		&request.BloodGroup,
		&request.UrgencyLevel,
		&request.RecipientID,
		&request.City,
		&request.Region,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan request: %w", err)
	}
	return &request, nil
}
