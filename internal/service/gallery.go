package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/UnendingLoop/ImageAble/internal/imageproc"
	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/UnendingLoop/ImageAble/internal/mwlogger"
	"github.com/google/uuid"
)

// SaveImages embeds the metadata into every file, stores it and creates the owner's record.
// Each image is saved on its own: a failure stops the loop, images saved before it stay.
func (c ImageService) SaveImages(ctx context.Context, owner string, files []model.UploadFile, descriptions, evaluations []string) ([]model.ImageRecord, error) {
	if len(files) == 0 || len(descriptions) != len(files) || len(evaluations) != len(files) {
		return nil, model.ErrInvalidRequest
	}
	if owner == "" {
		return nil, model.ErrForbidden
	}

	saved := make([]model.ImageRecord, 0, len(files))
	for i, f := range files {
		rec, err := c.saveOne(ctx, owner, f, descriptions[i], evaluations[i])
		if err != nil {
			return saved, err
		}
		saved = append(saved, *rec)
	}

	return saved, nil
}

func (c ImageService) saveOne(ctx context.Context, owner string, f model.UploadFile, desc, eval string) (*model.ImageRecord, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	// пустое описание в галерею не пишем
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return nil, model.ErrNullDescription
	}
	if f.Content == nil {
		return nil, model.ErrInvalidRequest
	}
	data, err := readLimited(f.Content)
	if err != nil {
		if errors.Is(err, model.ErrInvalidRequest) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrSaveFailed, err)
	}

	out, format, err := imageproc.Embed(data, desc, eval)
	if err != nil {
		return nil, err // 400: формат/контейнер
	}
	c.verifyEmbedded(ctx, out, desc, eval)

	ctype := model.GetCType[format]
	rec := &model.ImageRecord{
		ID:          uuid.New(),
		Description: desc,
		Evaluation:  eval,
		OwnerID:     owner,
		DateCreated: time.Now().UTC(),
	}
	rec.ImagePath = storageKey(rec.ID, f.Filename, ctype)

	if err := c.storage.Put(ctx, rec.ImagePath, int64(len(out)), ctype, bytes.NewReader(out)); err != nil {
		logger.Error().Err(err).Str("key", rec.ImagePath).Msg("Failed to save image in Storage")
		return nil, fmt.Errorf("%w: %v", model.ErrSaveFailed, err)
	}

	if err := c.repo.Create(ctx, rec); err != nil {
		logger.Error().Err(err).Str("key", rec.ImagePath).Msg("Failed to create image record in DB")
		// файл без записи никому не нужен - удаляем сразу, иначе его подберет sweep
		if delErr := c.storage.Delete(ctx, rec.ImagePath); delErr != nil {
			logger.Error().Err(delErr).Str("key", rec.ImagePath).Msg("Failed to remove stored file after DB failure")
		}
		return nil, fmt.Errorf("%w: %v", model.ErrSaveFailed, err)
	}

	return rec, nil
}

func (c ImageService) verifyEmbedded(ctx context.Context, data []byte, desc, eval string) {
	meta, err := imageproc.Extract(data)
	if err != nil || meta.Description != desc || meta.Evaluation != eval {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Warn().Err(err).Msg("Embedded metadata does not read back as written")
	}
}

// DownloadWithMetadata returns the uploaded image with the pair embedded, in its original format.
func (c ImageService) DownloadWithMetadata(ctx context.Context, f model.UploadFile, desc, eval string) ([]byte, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if f.Content == nil || f.Size == 0 || desc == "" || eval == "" {
		return nil, "", model.ErrNoImageFile
	}

	data, err := readLimited(f.Content)
	if err != nil {
		if errors.Is(err, model.ErrInvalidRequest) {
			return nil, "", err
		}
		logger.Error().Err(err).Msg("Failed to read uploaded file")
		return nil, "", model.ErrDownloadFailed
	}
	if len(data) == 0 {
		return nil, "", model.ErrNoImageFile
	}

	out, format, err := imageproc.Embed(data, desc, eval)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUnsupportedFormat),
			errors.Is(err, model.ErrCorruptImage),
			errors.Is(err, model.ErrMetadataTooLarge):
			return nil, "", err
		default:
			logger.Error().Err(err).Msg("Failed to embed metadata")
			return nil, "", model.ErrDownloadFailed
		}
	}

	return out, model.GetCType[format], nil
}

// GetGallery returns one page of the owner's images.
func (c ImageService) GetGallery(ctx context.Context, owner string, req model.GalleryRequest) (*model.GalleryPage, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if owner == "" {
		return nil, model.ErrForbidden
	}
	normalizeGalleryRequest(&req)

	total, err := c.repo.CountByOwner(ctx, owner, req.SearchString)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to count gallery images in DB")
		return nil, model.ErrCommon500
	}

	images, err := c.repo.GetByOwner(ctx, owner, model.GalleryQuery{
		Search: req.SearchString,
		Order:  sortToOrder(req.SortOrder),
		Limit:  c.pageSize,
		Offset: (req.PageNumber - 1) * c.pageSize,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch gallery page from DB")
		return nil, model.ErrCommon500
	}

	totalPages := (total + c.pageSize - 1) / c.pageSize
	return &model.GalleryPage{
		Images:        images,
		PageIndex:     req.PageNumber,
		TotalPages:    totalPages,
		HasPrevious:   req.PageNumber > 1,
		HasNext:       req.PageNumber < totalPages,
		CurrentFilter: req.CurrentFilter,
		SortOrder:     req.SortOrder,
	}, nil
}

// ownedRecord - чужие записи выглядят как несуществующие
func (c ImageService) ownedRecord(ctx context.Context, owner, id string) (*model.ImageRecord, error) {
	if owner == "" {
		return nil, model.ErrForbidden
	}
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	rec, err := c.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return nil, model.ErrImageNotFound
		}
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Str("id", id).Msg("Failed to fetch image from DB")
		return nil, model.ErrCommon500
	}
	if rec.OwnerID != owner {
		return nil, model.ErrImageNotFound
	}

	return rec, nil
}

// DownloadImage streams the stored file of an owned record. Caller closes the reader.
func (c ImageService) DownloadImage(ctx context.Context, owner, id string) (io.ReadCloser, string, string, error) {
	rec, err := c.ownedRecord(ctx, owner, id)
	if err != nil {
		return nil, "", "", err
	}

	data, ctype, err := c.storage.Get(ctx, rec.ImagePath)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return nil, "", "", model.ErrImageNotFound
		}
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Str("key", rec.ImagePath).Msg("Failed to fetch image from Storage")
		return nil, "", "", model.ErrDownloadFailed
	}

	return data, ctype, originalName(rec.ImagePath), nil
}

// UpdateDescription replaces the description in the record, then best-effort in the stored file.
func (c ImageService) UpdateDescription(ctx context.Context, owner string, req model.UpdateDescriptionRequest) (*model.ImageRecord, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return nil, model.ErrInvalidRequest
	}
	rec, err := c.ownedRecord(ctx, owner, req.ImageID)
	if err != nil {
		return nil, err
	}

	// запись - источник правды: сначала БД, файл переписываем после
	rec.Description = req.Description
	if err := c.repo.Update(ctx, rec); err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return nil, model.ErrImageNotFound
		}
		logger.Error().Err(err).Str("id", req.ImageID).Msg("Failed to update image record in DB")
		return nil, model.ErrCommon500
	}

	if err := c.rewriteStored(ctx, rec.ImagePath, rec.Description, rec.Evaluation); err != nil {
		logger.Error().Err(err).Str("key", rec.ImagePath).Msg("Failed to rewrite metadata of stored image, record already updated")
	}

	return rec, nil
}

func (c ImageService) rewriteStored(ctx context.Context, key, desc, eval string) error {
	rc, _, err := c.storage.Get(ctx, key)
	if err != nil {
		return err
	}
	data, err := readLimited(rc)
	closeFileFlow(rc)
	if err != nil {
		return err
	}

	out, format, err := imageproc.Embed(data, desc, eval)
	if err != nil {
		return err
	}
	return c.storage.Put(ctx, key, int64(len(out)), model.GetCType[format], bytes.NewReader(out))
}

// Delete removes the record; the stored file goes to the cleanup queue.
func (c ImageService) Delete(ctx context.Context, owner, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if owner == "" {
		return model.ErrForbidden
	}
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	path, err := c.repo.Delete(ctx, id, owner)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return model.ErrImageNotFound // 404
		}
		logger.Error().Err(err).Str("id", id).Msg("Failed to delete image from DB")
		return model.ErrCommon500
	}

	if err := c.enqueueCleanup(ctx, path, model.ReasonRecordDeleted); err != nil {
		logger.Error().Err(err).Str("key", path).Msg("Failed to publish cleanup task, deleting file inline")
		if err := c.storage.Delete(ctx, path); err != nil {
			// запись уже удалена: файл подберет sweep
			logger.Error().Err(err).Str("key", path).Msg("Failed to delete file from Storage")
		}
	}

	return nil
}

// SweepOrphans enqueues stored files older than orphanAge that no record references. At most limit per run.
func (c ImageService) SweepOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	objects, err := c.storage.List(ctx, time.Now().Add(-c.orphanAge))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list stored images")
		return
	}

	enqueued := 0
	for _, obj := range objects {
		if enqueued >= limit {
			break
		}
		exists, err := c.repo.ExistsByPath(ctx, obj.Key)
		if err != nil {
			logger.Error().Err(err).Str("key", obj.Key).Msg("Failed to check stored image in DB")
			continue
		}
		if exists {
			continue
		}
		if err := c.enqueueCleanup(ctx, obj.Key, model.ReasonOrphan); err != nil {
			logger.Error().Err(err).Str("key", obj.Key).Msg("Failed to publish orphan to queue")
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		logger.Info().Int("orphans", enqueued).Msg("Orphaned files sent to cleanup")
	}
}

func (c ImageService) enqueueCleanup(ctx context.Context, path, reason string) error {
	payload, err := json.Marshal(model.CleanupTask{ImagePath: path, Reason: reason})
	if err != nil {
		return err
	}
	return c.publisher.SendWithRetry(ctx, retryStrategy, []byte(path), payload)
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		logger := mwlogger.LoggerFromContext(context.Background())
		logger.Error().Err(err).Msg("Service failed to close fileflow")
	}
}
