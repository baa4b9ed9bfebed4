package imgpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

const selectColumns = `SELECT id, description, evaluation, image_path, owner_id, date_created
	FROM images`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (p PostgresRepo) Create(ctx context.Context, rec *model.ImageRecord) error {
	query := `INSERT INTO images (id, description, evaluation, image_path, owner_id, date_created)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := p.DB.Master.ExecContext(ctx, query, rec.ID, rec.Description, rec.Evaluation, rec.ImagePath, rec.OwnerID, rec.DateCreated)
	return err
}

func (p PostgresRepo) GetByID(ctx context.Context, id string) (*model.ImageRecord, error) {
	query := selectColumns + `
	WHERE id = $1`

	var rec model.ImageRecord
	err := p.DB.QueryRowContext(ctx, query, id).Scan(&rec.ID,
		&rec.Description,
		&rec.Evaluation,
		&rec.ImagePath,
		&rec.OwnerID,
		&rec.DateCreated)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrImageNotFound // 404
		default:
			return nil, err // 500
		}
	}
	return &rec, nil
}

// GetByOwner never returns nil slice: владелец без картинок получает пустой список
func (p PostgresRepo) GetByOwner(ctx context.Context, owner string, q model.GalleryQuery) ([]model.ImageRecord, error) {
	args := []any{owner}
	query := selectColumns + `
	WHERE owner_id = $1`

	if q.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(q.Search)+"%")
		query += fmt.Sprintf(` AND description ILIKE $%d`, len(args))
	}

	order := model.OrderDESC
	if q.Order == model.OrderASC {
		order = model.OrderASC
	}
	query += fmt.Sprintf(`
	ORDER BY date_created %s, id %s`, order, order)

	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		query += fmt.Sprintf(`
	LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	images := make([]model.ImageRecord, 0, max(q.Limit, 0))
	for rows.Next() {
		var rec model.ImageRecord
		if err := rows.Scan(&rec.ID,
			&rec.Description,
			&rec.Evaluation,
			&rec.ImagePath,
			&rec.OwnerID,
			&rec.DateCreated); err != nil {
			return nil, err
		}
		images = append(images, rec)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return images, nil
}

func (p PostgresRepo) CountByOwner(ctx context.Context, owner, search string) (int, error) {
	args := []any{owner}
	query := `SELECT COUNT(*) FROM images WHERE owner_id = $1`
	if search != "" {
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		query += ` AND description ILIKE $2`
	}

	var total int
	if err := p.DB.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Update - полная замена полей записи, последний писатель побеждает
func (p PostgresRepo) Update(ctx context.Context, rec *model.ImageRecord) error {
	query := `UPDATE images SET description = $1, evaluation = $2, image_path = $3
	WHERE id = $4 AND owner_id = $5`

	res, err := p.DB.Master.ExecContext(ctx, query, rec.Description, rec.Evaluation, rec.ImagePath, rec.ID, rec.OwnerID)
	if err != nil {
		return err // 500
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrImageNotFound // 404
	}
	return nil
}

// Delete removes the record only and returns the stored path so the caller can schedule the file cleanup.
func (p PostgresRepo) Delete(ctx context.Context, id, owner string) (string, error) {
	query := `DELETE FROM images
	WHERE id = $1 AND owner_id = $2
	RETURNING image_path`

	var path string
	if err := p.DB.QueryRowContext(ctx, query, id, owner).Scan(&path); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return "", model.ErrImageNotFound // 404
		default:
			return "", err // 500
		}
	}
	return path, nil
}

func (p PostgresRepo) ExistsByPath(ctx context.Context, path string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM images WHERE image_path = $1)`

	var exists bool
	if err := p.DB.QueryRowContext(ctx, query, path).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
