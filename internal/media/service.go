package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/Kyz7/backoffice/internal/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// allowedTypes is matched against the sniffed type, not the client's header.
var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"image/svg+xml":   true,
	"video/mp4":       true,
	"video/webm":      true,
	"application/pdf": true,
}

type Service struct {
	db       *gorm.DB
	store    storage.Storage
	policy   *bluemonday.Policy
	maxBytes int64
	log      logrus.FieldLogger
}

func NewService(db *gorm.DB, store storage.Storage, maxBytes int64, log logrus.FieldLogger) *Service {
	return &Service{
		db:       db,
		store:    store,
		policy:   bluemonday.UGCPolicy(),
		maxBytes: maxBytes,
		log:      log,
	}
}

type UploadInput struct {
	FileName   string
	Size       int64
	Body       io.ReadSeeker
	Alt        string
	Caption    string
	UploadedBy uint
}

type UpdateInput struct {
	Alt     *string `json:"alt"`
	Caption *string `json:"caption"`
}

type Filter struct {
	Type   string
	Search string
	Paging response.Paging
}

// Upload validates the file, stores its bytes and then records it. When the
// record cannot be written the stored object is removed again.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.MediaFile, error) {
	if in.Size <= 0 {
		return nil, apperr.Field("file", "is empty")
	}
	if in.Size > s.maxBytes {
		return nil, apperr.Field("file", "exceeds the maximum upload size")
	}

	mime, err := mimetype.DetectReader(in.Body)
	if err != nil {
		return nil, apperr.BadRequest("Failed to read uploaded file")
	}
	contentType, _, _ := strings.Cut(mime.String(), ";")
	if !allowedTypes[contentType] {
		return nil, apperr.Field("file", "file type "+contentType+" is not allowed")
	}
	if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
		return nil, apperr.Internal("Failed to read uploaded file", err)
	}

	key := storage.ObjectKey(in.FileName, contentType, time.Now())
	url, err := s.store.Put(ctx, key, contentType, in.Body)
	if err != nil {
		return nil, apperr.Internal("Failed to store file", err)
	}

	file := models.MediaFile{
		FileName:   in.FileName,
		URL:        url,
		StorageKey: key,
		MimeType:   contentType,
		Size:       in.Size,
		Alt:        strings.TrimSpace(in.Alt),
		Caption:    s.policy.Sanitize(in.Caption),
		UploadedBy: in.UploadedBy,
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.WithError(delErr).WithField("storage_key", key).Error("failed to remove stored object after record write failed")
		}
		return nil, apperr.Internal("Failed to save media metadata", err)
	}

	s.log.WithFields(logrus.Fields{
		"media_id":  file.ID,
		"mime_type": contentType,
		"size":      in.Size,
		"storage":   s.store.Name(),
	}).Info("media uploaded")
	return &file, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.MediaFile, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.MediaFile{})
	if f.Type != "" {
		q = q.Where("mime_type LIKE ?", f.Type+"%")
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("file_name LIKE ? OR alt LIKE ? OR caption LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("Failed to count media", err)
	}

	var files []models.MediaFile
	if err := q.Preload("Uploader").
		Order("created_at DESC, id DESC").
		Offset(f.Paging.Offset()).
		Limit(f.Paging.Limit).
		Find(&files).Error; err != nil {
		return nil, 0, apperr.Internal("Failed to fetch media", err)
	}
	return files, total, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.MediaFile, error) {
	var file models.MediaFile
	if err := s.db.WithContext(ctx).Preload("Uploader").First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Media")
		}
		return nil, apperr.Internal("Failed to fetch media", err)
	}
	return &file, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.MediaFile, error) {
	file, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Alt != nil {
		file.Alt = strings.TrimSpace(*in.Alt)
		updates["alt"] = file.Alt
	}
	if in.Caption != nil {
		file.Caption = s.policy.Sanitize(*in.Caption)
		updates["caption"] = file.Caption
	}
	if len(updates) == 0 {
		return file, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.MediaFile{}).Where("id = ?", file.ID).Updates(updates).Error; err != nil {
		return nil, apperr.Internal("Failed to update media", err)
	}
	return file, nil
}

// Delete drops the record first; an object left behind in storage is only
// logged.
func (s *Service) Delete(ctx context.Context, id uint) error {
	file, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.MediaFile{}, file.ID).Error; err != nil {
		return apperr.Internal("Failed to delete media", err)
	}
	if err := s.store.Delete(ctx, file.StorageKey); err != nil {
		s.log.WithError(err).WithField("storage_key", file.StorageKey).Warn("media record deleted but stored object remains")
	}
	return nil
}
