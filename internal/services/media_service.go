package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/models"
	"github.com/charlesng35/leadflow/internal/storage"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/logger"
)

// DefaultMaxUploadBytes caps a single media upload.
const DefaultMaxUploadBytes int64 = 25 << 20

const sniffLen = 3072

// MediaService stores images and videos for content projects and testimonials.
type MediaService struct {
	db       *gorm.DB
	store    storage.Store
	maxBytes int64
	now      func() time.Time
	log      *zap.Logger
}

// NewMediaService constructs a MediaService. maxBytes <= 0 uses the default.
func NewMediaService(db *gorm.DB, store storage.Store, maxBytes int64) (*MediaService, error) {
	if db == nil {
		return nil, errors.New("media service: db is required")
	}
	if store == nil {
		return nil, errors.New("media service: store is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &MediaService{
		db:       db,
		store:    store,
		maxBytes: maxBytes,
		now:      time.Now,
		log:      logger.WithModule("media"),
	}, nil
}

// MaxBytes returns the upload size limit.
func (s *MediaService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload sniffs the content type of body, rejects anything that is not an
// image or video, stores it and records the upload.
func (s *MediaService) Upload(ctx context.Context, fileName string, body io.Reader, size int64) (*models.FileUpload, error) {
	ctx = ensureContext(ctx)
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, apperrors.NewValidation("file name is required")
	}
	if size > s.maxBytes {
		return nil, apperrors.NewValidation(fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperrors.NewBadRequest("unable to read upload")
	}
	head = head[:n]
	if n == 0 {
		return nil, apperrors.NewValidation("file is empty")
	}
	if int64(n) > s.maxBytes {
		return nil, apperrors.NewValidation(fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}

	mt := mimetype.Detect(head)
	contentType := mt.String()
	if !isMediaType(contentType) {
		return nil, apperrors.NewValidation("only image and video uploads are allowed, got " + contentType)
	}

	key := storage.ObjectKey(fileName, mt.Extension(), s.now())
	reader := io.MultiReader(bytes.NewReader(head), io.LimitReader(body, s.maxBytes-int64(n)+1))
	counted := &countingReader{r: reader}

	obj, err := s.store.Put(ctx, key, counted, size, contentType)
	if err != nil {
		s.log.Error("store upload failed", zap.String("key", key), zap.Error(err))
		return nil, apperrors.NewPersistence(err)
	}
	if counted.n > s.maxBytes {
		s.removeObject(ctx, key)
		return nil, apperrors.NewValidation(fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}

	upload := models.FileUpload{
		FileName:    fileName,
		ObjectKey:   obj.Key,
		ContentType: contentType,
		Size:        counted.n,
		URL:         obj.URL,
		Backend:     s.store.Backend(),
	}
	if err := s.db.WithContext(ctx).Create(&upload).Error; err != nil {
		s.removeObject(ctx, key)
		return nil, storeError(s.log, "record upload", err)
	}

	return &upload, nil
}

// List returns uploads newest first.
func (s *MediaService) List(ctx context.Context) ([]models.FileUpload, error) {
	uploads := []models.FileUpload{}
	if err := s.db.WithContext(ensureContext(ctx)).Order("created_at DESC").Find(&uploads).Error; err != nil {
		return nil, storeError(s.log, "list uploads", err)
	}
	return uploads, nil
}

// Delete removes the stored object and its record.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var upload models.FileUpload
	if err := s.db.WithContext(ctx).First(&upload, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		return storeError(s.log, "load upload", err)
	}

	if err := s.store.Delete(ctx, upload.ObjectKey); err != nil {
		s.log.Error("delete object failed", zap.String("key", upload.ObjectKey), zap.Error(err))
		return apperrors.NewPersistence(err)
	}
	if err := s.db.WithContext(ctx).Delete(&upload).Error; err != nil {
		return storeError(s.log, "delete upload", err)
	}
	return nil
}

func (s *MediaService) removeObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("remove orphaned object failed", zap.String("key", key), zap.Error(err))
	}
}

func isMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
