package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/andreyxaxa/Spectra/internal/entity"
	"github.com/andreyxaxa/Spectra/pkg/postgres"
	"github.com/andreyxaxa/Spectra/pkg/types/errs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	// Table
	imagesTable = "images"

	// Columns
	idColumn               = "id"
	userIDColumn           = "user_id"
	originalFilenameColumn = "original_filename"
	storageKeyColumn       = "storage_key"
	thumbnailKeyColumn     = "thumbnail_key"
	tagsColumn             = "tags"
	paletteColumn          = "palette"
	createdAtColumn        = "created_at"
)

var imageColumns = []string{
	idColumn,
	userIDColumn,
	originalFilenameColumn,
	storageKeyColumn,
	thumbnailKeyColumn,
	tagsColumn,
	paletteColumn,
	createdAtColumn,
}

type scanner interface {
	Scan(dest ...any) error
}

type ImageMetadataRepo struct {
	*postgres.Postgres
}

func NewImageMetadataRepo(pg *postgres.Postgres) *ImageMetadataRepo {
	return &ImageMetadataRepo{pg}
}

// Create inserts the record; id and created_at come from column defaults.
func (r *ImageMetadataRepo) Create(ctx context.Context, image *entity.Image) (*entity.Image, error) {
	sql, args, err := createImageQuery(r.Builder, image)
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - Create - r.Builder.ToSql: %w", err)
	}

	// Pool / Tx
	executor := r.GetExecutor(ctx)

	created := *image
	created.Tags = nonNil(image.Tags)
	created.Palette = nonNil(image.Palette)

	err = executor.QueryRow(ctx, sql, args...).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - Create - executor.QueryRow: %w", err)
	}

	return &created, nil
}

func (r *ImageMetadataRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error) {
	sql, args, err := r.Builder.
		Select(imageColumns...).
		From(imagesTable).
		Where(squirrel.Eq{idColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	image, err := scanImage(executor.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ImageMetadataRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("ImageMetadataRepo - GetByID - executor.QueryRow: %w", err)
	}

	return image, nil
}

func (r *ImageMetadataRepo) UpdateFields(ctx context.Context, id uuid.UUID, tags, palette []string) error {
	sql, args, err := r.Builder.
		Update(imagesTable).
		Set(tagsColumn, nonNil(tags)).
		Set(paletteColumn, nonNil(palette)).
		Where(squirrel.Eq{idColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ImageMetadataRepo - UpdateFields - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ImageMetadataRepo - UpdateFields - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ImageMetadataRepo - UpdateFields: %w", errs.ErrRecordNotFound)
	}

	return nil
}

// UpdateThumbnail sets the thumbnail pointer. Writing the same key again matches the row and succeeds.
func (r *ImageMetadataRepo) UpdateThumbnail(ctx context.Context, id uuid.UUID, thumbnailKey string) error {
	sql, args, err := r.Builder.
		Update(imagesTable).
		Set(thumbnailKeyColumn, thumbnailKey).
		Where(squirrel.Eq{idColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ImageMetadataRepo - UpdateThumbnail - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ImageMetadataRepo - UpdateThumbnail - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ImageMetadataRepo - UpdateThumbnail: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *ImageMetadataRepo) ListAll(ctx context.Context, page entity.Page) (*entity.ImagePage, error) {
	sql, args, err := listImagesQuery(r.Builder, page)
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - ListAll - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	images, err := r.queryImages(ctx, executor, sql, args)
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - ListAll - r.queryImages: %w", err)
	}

	countSQL, countArgs, err := r.Builder.Select("count(*)").From(imagesTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - ListAll - r.Builder.ToSql(count): %w", err)
	}

	var total int64
	err = executor.QueryRow(ctx, countSQL, countArgs...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - ListAll - executor.QueryRow(count): %w", err)
	}

	return &entity.ImagePage{
		Items:  images,
		Number: page.Number,
		Size:   page.Size,
		Total:  total,
	}, nil
}

// FindByAnyTag returns every record whose tags overlap the query set. A row matches once
// no matter how many query tags it carries.
func (r *ImageMetadataRepo) FindByAnyTag(ctx context.Context, tags []string) ([]*entity.Image, error) {
	if len(tags) == 0 {
		return []*entity.Image{}, nil
	}

	sql, args, err := findByAnyTagQuery(r.Builder, tags)
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - FindByAnyTag - r.Builder.ToSql: %w", err)
	}

	images, err := r.queryImages(ctx, r.GetExecutor(ctx), sql, args)
	if err != nil {
		return nil, fmt.Errorf("ImageMetadataRepo - FindByAnyTag - r.queryImages: %w", err)
	}

	return images, nil
}

func (r *ImageMetadataRepo) queryImages(ctx context.Context, executor postgres.Executor, sql string, args []any) ([]*entity.Image, error) {
	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executor.Query: %w", err)
	}
	defer rows.Close()

	images := make([]*entity.Image, 0)
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		images = append(images, image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return images, nil
}

func createImageQuery(b squirrel.StatementBuilderType, image *entity.Image) (string, []any, error) {
	return b.
		Insert(imagesTable).
		Columns(
			userIDColumn,
			originalFilenameColumn,
			storageKeyColumn,
			thumbnailKeyColumn,
			tagsColumn,
			paletteColumn,
		).
		Values(
			image.UserID,
			image.OriginalFilename,
			image.StorageKey,
			image.ThumbnailKey,
			nonNil(image.Tags),
			nonNil(image.Palette),
		).
		Suffix("RETURNING " + idColumn + ", " + createdAtColumn).
		ToSql()
}

func listImagesQuery(b squirrel.StatementBuilderType, page entity.Page) (string, []any, error) {
	return b.
		Select(imageColumns...).
		From(imagesTable).
		OrderBy(createdAtColumn+" DESC", idColumn).
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
}

func findByAnyTagQuery(b squirrel.StatementBuilderType, tags []string) (string, []any, error) {
	return b.
		Select(imageColumns...).
		From(imagesTable).
		Where(squirrel.Expr(tagsColumn+" && ?", tags)).
		OrderBy(createdAtColumn + " DESC").
		ToSql()
}

func scanImage(row scanner) (*entity.Image, error) {
	var image entity.Image

	err := row.Scan(
		&image.ID,
		&image.UserID,
		&image.OriginalFilename,
		&image.StorageKey,
		&image.ThumbnailKey,
		&image.Tags,
		&image.Palette,
		&image.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &image, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
