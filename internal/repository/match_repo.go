package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const matchSelect = `
	SELECT m.id, m.donor_id, m.request_id, m.score, m.status, m.reason, m.version,
	       r.organ_type, r.urgency_level,
	       m.created_at, m.confirmed_at, m.fulfilled_at, m.rejected_at, m.updated_at
	FROM organ_match m
	JOIN request r ON r.id = m.request_id`

// querier - общее подмножество pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresMatchRepository - реализация MatchRepository для базы данных.
type PostgresMatchRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresMatchRepository создает новый экземпляр PostgresMatchRepository.
func NewPostgresMatchRepository(db *pgxpool.Pool) *PostgresMatchRepository {
	return &PostgresMatchRepository{DB: db}
}

// CreateMatches создает предложенные пары и переводит их запросы в matched одной транзакцией.
// Если хотя бы одна пара не может быть создана, не создается ни одна.
func (r *PostgresMatchRepository) CreateMatches(ctx context.Context, proposals []models.MatchProposal, at time.Time) ([]models.Match, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created := make([]models.Match, 0, len(proposals))
	for _, p := range proposals {
		var active bool
		err := tx.QueryRow(ctx, `SELECT active FROM donor WHERE id = $1 FOR SHARE`, p.DonorID).Scan(&active)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NotFoundf("donor %s", p.DonorID)
		}
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, models.ConcurrentModificationf("donor %s is no longer active", p.DonorID)
		}

		match := models.Match{
			ID:        uuid.New().String(),
			DonorID:   p.DonorID,
			RequestID: p.RequestID,
			Score:     p.Score,
			Status:    models.ProposedMatch,
			Version:   1,
			CreatedAt: at,
			UpdatedAt: at,
		}
		updateRequestQuery := `
			UPDATE request SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4
			RETURNING organ_type, urgency_level`
		err = tx.QueryRow(ctx, updateRequestQuery, models.MatchedRequest, at, p.RequestID, models.PendingRequest).
			Scan(&match.OrganType, &match.UrgencyLevel)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ConcurrentModificationf("request %s is no longer pending", p.RequestID)
		}
		if err != nil {
			return nil, err
		}

		insertQuery := `INSERT INTO organ_match (id, donor_id, request_id, score, status, reason, version, created_at, updated_at)
                       VALUES ($1, $2, $3, $4, $5, '', $6, $7, $8)`
		_, err = tx.Exec(
			ctx,
			insertQuery,
			match.ID,
			match.DonorID,
			match.RequestID,
			match.Score,
			match.Status,
			match.Version,
			match.CreatedAt,
			match.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return nil, models.ConcurrentModificationf("donor %s or request %s already holds an active match", p.DonorID, p.RequestID)
			}
			return nil, err
		}
		created = append(created, match)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// GetMatch получает пару по ID.
func (r *PostgresMatchRepository) GetMatch(ctx context.Context, matchId string) (*models.Match, error) {
	return getMatch(ctx, r.DB, matchId)
}

// ListMatches возвращает пары с фильтрами по статусу, органу, срочности, донору и запросу.
func (r *PostgresMatchRepository) ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	add := func(column string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	if filter.Status != "" {
		add("m.status", filter.Status)
	}
	if filter.OrganType != "" {
		add("r.organ_type", filter.OrganType)
	}
	if filter.UrgencyLevel != "" {
		add("r.urgency_level", filter.UrgencyLevel)
	}
	if filter.DonorID != "" {
		add("m.donor_id", filter.DonorID)
	}
	if filter.RequestID != "" {
		add("m.request_id", filter.RequestID)
	}

	query := matchSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY m.created_at DESC, m.id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.Limit, filter.Offset)
	}
	return queryMatches(ctx, r.DB, query, args...)
}

// ListActiveMatches возвращает пары в статусах proposed и confirmed.
func (r *PostgresMatchRepository) ListActiveMatches(ctx context.Context) ([]models.Match, error) {
	query := matchSelect + ` WHERE m.status IN ('proposed', 'confirmed') ORDER BY m.created_at, m.id`
	return queryMatches(ctx, r.DB, query)
}

// ApplyTransition применяет переход пары вместе с каскадом одной транзакцией.
// Запись пары защищена проверкой версии: проигравший гонку получает ErrConcurrentModification.
func (r *PostgresMatchRepository) ApplyTransition(ctx context.Context, t models.Transition) (*models.Match, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var donorId, requestId string
	updateMatchQuery := fmt.Sprintf(`
		UPDATE organ_match
		SET status = $1,
		    reason = CASE WHEN $2 <> '' THEN $2 ELSE reason END,
		    version = version + 1,
		    %s = $3,
		    updated_at = $3
		WHERE id = $4 AND version = $5 AND status = $6
		RETURNING donor_id, request_id`, transitionColumn(t.To))
	err = tx.QueryRow(ctx, updateMatchQuery, t.To, t.Reason, t.At, t.MatchID, t.ExpectedVersion, t.From).
		Scan(&donorId, &requestId)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organ_match WHERE id = $1)`, t.MatchID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, models.NotFoundf("match %s", t.MatchID)
		}
		return nil, models.ConcurrentModificationf("match %s was modified concurrently", t.MatchID)
	}
	if err != nil {
		return nil, err
	}

	if t.RequestTo != "" {
		tag, err := tx.Exec(ctx, `UPDATE request SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
			t.RequestTo, t.At, requestId, t.RequestFrom)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() != 1 {
			return nil, models.ConcurrentModificationf("request %s is not %s", requestId, t.RequestFrom)
		}
	}

	if t.DeactivateDonor {
		if _, err := tx.Exec(ctx, `UPDATE donor SET active = FALSE, updated_at = $1 WHERE id = $2`, t.At, donorId); err != nil {
			return nil, err
		}
	}

	match, err := getMatch(ctx, tx, t.MatchID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return match, nil
}

// transitionColumn возвращает колонку времени перехода; значения фиксированы, не из ввода.
func transitionColumn(status models.MatchStatus) string {
	switch status {
	case models.ConfirmedMatch:
		return "confirmed_at"
	case models.FulfilledMatch:
		return "fulfilled_at"
	case models.RejectedMatch:
		return "rejected_at"
	}
	return "updated_at"
}

func getMatch(ctx context.Context, q querier, matchId string) (*models.Match, error) {
	match, err := scanMatch(q.QueryRow(ctx, matchSelect+` WHERE m.id = $1`, matchId))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundf("match %s", matchId)
	}
	return match, err
}

func queryMatches(ctx context.Context, q querier, query string, args ...interface{}) ([]models.Match, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *match)
	}
	return matches, rows.Err()
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	var match models.Match
	err := row.Scan(
		&match.ID,
		&match.DonorID,
		&match.RequestID,
		&match.Score,
		&match.Status,
		&match.Reason,
		&match.Version,
		&match.OrganType,
		&match.UrgencyLevel,
		&match.CreatedAt,
		&match.ConfirmedAt,
		&match.FulfilledAt,
		&match.RejectedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan match: %w", err)
	}
	return &match, nil
}
