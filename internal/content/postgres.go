package content

import (
	"context"
	"database/sql"
	goerrors "errors"
	"strconv"
	"time"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/models"

	"github.com/lib/pq"
)

// PostgresRepository stores items in content_items and aggregates in
// content_models.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const itemColumns = `id, model_id, title, description, file_url, thumbnail_url, content_type, is_premium, tags, created_at, updated_at`

func (r *PostgresRepository) GetItem(ctx context.Context, id string) (*models.ContentItem, error) {
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE id = $1`
	return scanItem(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *PostgresRepository) ListItems(ctx context.Context, filter ListFilter) ([]models.ContentItem, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if filter.ModelID != "" {
		args = append(args, filter.ModelID)
		where += ` AND model_id = $` + strconv.Itoa(len(args))
	}
	if filter.ContentType != "" {
		args = append(args, string(filter.ContentType))
		where += ` AND content_type = $` + strconv.Itoa(len(args))
	}
	if filter.Premium != nil {
		args = append(args, *filter.Premium)
		where += ` AND is_premium = $` + strconv.Itoa(len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM content_items` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewQueryExecutionFailedError("count content", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + itemColumns + ` FROM content_items` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.NewQueryExecutionFailedError("list content", err)
	}
	defer rows.Close()

	items := []models.ContentItem{}
	for rows.Next() {
		var item models.ContentItem
		var contentType string
		if err := rows.Scan(&item.ID, &item.ModelID, &item.Title, &item.Description,
			&item.FileURL, &item.ThumbnailURL, &contentType, &item.IsPremium,
			pq.Array(&item.Tags), &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, 0, errors.NewQueryExecutionFailedError("list content", err)
		}
		item.ContentType = models.ContentType(contentType)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewQueryExecutionFailedError("list content", err)
	}
	return items, total, nil
}

func (r *PostgresRepository) CreateItem(ctx context.Context, item *models.ContentItem) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO content_items (` + itemColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		_, err := tx.ExecContext(ctx, query,
			item.ID, item.ModelID, item.Title, item.Description,
			item.FileURL, item.ThumbnailURL, string(item.ContentType), item.IsPremium,
			pq.Array(item.Tags), item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			return errors.NewQueryExecutionFailedError("create content", err)
		}

		premiumDelta := 0
		if item.IsPremium {
			premiumDelta = 1
		}
		return applyDeltaTx(ctx, tx, item.ModelID, 1, premiumDelta)
	})
}

func (r *PostgresRepository) SetItemPremium(ctx context.Context, id string, premium bool) (*models.ContentItem, error) {
	var updated *models.ContentItem
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE content_items SET is_premium = $1, updated_at = $2
			WHERE id = $3 AND is_premium <> $1
			RETURNING ` + itemColumns
		item, err := scanItem(tx.QueryRowContext(ctx, query, premium, time.Now().UTC(), id), id)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeContentNotFound) {
				// Flag unchanged or item missing; find out which.
				item, err = scanItem(tx.QueryRowContext(ctx,
					`SELECT `+itemColumns+` FROM content_items WHERE id = $1`, id), id)
				if err != nil {
					return err
				}
				updated = item
				return nil
			}
			return err
		}

		premiumDelta := -1
		if premium {
			premiumDelta = 1
		}
		if err := applyDeltaTx(ctx, tx, item.ModelID, 0, premiumDelta); err != nil {
			return err
		}
		updated = item
		return nil
	})
	return updated, err
}

func (r *PostgresRepository) DeleteItem(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var modelID string
		var isPremium bool
		query := `DELETE FROM content_items WHERE id = $1 RETURNING model_id, is_premium`
		err := tx.QueryRowContext(ctx, query, id).Scan(&modelID, &isPremium)
		if err != nil {
			if goerrors.Is(err, sql.ErrNoRows) {
				return errors.NewContentNotFoundError(id)
			}
			return errors.NewQueryExecutionFailedError("delete content", err)
		}

		premiumDelta := 0
		if isPremium {
			premiumDelta = -1
		}
		return applyDeltaTx(ctx, tx, modelID, -1, premiumDelta)
	})
}

func (r *PostgresRepository) GetModel(ctx context.Context, id string) (*models.ContentModel, error) {
	query := `SELECT id, name, description, thumbnail_url, content_count, premium_content_count, tags, created_at, updated_at
		FROM content_models WHERE id = $1`

	var m models.ContentModel
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Name, &m.Description,
		&m.ThumbnailURL, &m.ContentCount, &m.PremiumContentCount,
		pq.Array(&m.Tags), &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewModelNotFoundError(id)
		}
		return nil, errors.NewQueryExecutionFailedError("get model", err)
	}
	return &m, nil
}

func (r *PostgresRepository) ApplyDelta(ctx context.Context, modelID string, totalDelta, premiumDelta int) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return applyDeltaTx(ctx, tx, modelID, totalDelta, premiumDelta)
	})
}

// applyDeltaTx adjusts both counters in one conditional UPDATE. The WHERE
// clause enforces the aggregate invariant, so a violating delta simply
// matches zero rows and nothing is committed.
func applyDeltaTx(ctx context.Context, tx *sql.Tx, modelID string, totalDelta, premiumDelta int) error {
	query := `UPDATE content_models
		SET content_count = content_count + $1,
		    premium_content_count = premium_content_count + $2,
		    updated_at = $3
		WHERE id = $4
		  AND content_count + $1 >= 0
		  AND premium_content_count + $2 >= 0
		  AND premium_content_count + $2 <= content_count + $1`

	res, err := tx.ExecContext(ctx, query, totalDelta, premiumDelta, time.Now().UTC(), modelID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("apply counter delta", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("apply counter delta", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM content_models WHERE id = $1)`, modelID).Scan(&exists); err != nil {
		return errors.NewQueryExecutionFailedError("apply counter delta", err)
	}
	if !exists {
		return errors.NewModelNotFoundError(modelID)
	}
	return errors.NewAggregateInvariantViolationError(modelID, totalDelta, premiumDelta)
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewQueryExecutionFailedError("commit", err)
	}
	return nil
}

func scanItem(row *sql.Row, id string) (*models.ContentItem, error) {
	var item models.ContentItem
	var contentType string
	err := row.Scan(&item.ID, &item.ModelID, &item.Title, &item.Description,
		&item.FileURL, &item.ThumbnailURL, &contentType, &item.IsPremium,
		pq.Array(&item.Tags), &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewContentNotFoundError(id)
		}
		return nil, errors.NewQueryExecutionFailedError("get content", err)
	}
	item.ContentType = models.ContentType(contentType)
	return &item, nil
}
