package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/internal/models"
	"github.com/pageza/fitcheck/backend/internal/storage"
	"github.com/pageza/fitcheck/backend/internal/types"
	"github.com/pageza/fitcheck/backend/internal/validation"
)

// MaxPhotoSize is the largest accepted profile photo in bytes
const MaxPhotoSize = 5 << 20

// photoExtensions maps accepted (sniffed) content types to object key extensions
var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ProfileService handles user profile operations
type ProfileService struct {
	db        *gorm.DB
	cache     ProfileCache
	photos    PhotoStore
	validator *validation.Validator
	log       logrus.FieldLogger
}

// Ensure ProfileService implements IProfileService
var _ IProfileService = (*ProfileService)(nil)

// ProfileOption configures optional collaborators of a ProfileService
type ProfileOption func(*ProfileService)

// WithCache enables read-through caching of single profiles
func WithCache(cache ProfileCache) ProfileOption {
	return func(s *ProfileService) { s.cache = cache }
}

// WithPhotoStore enables photo uploads
func WithPhotoStore(photos PhotoStore) ProfileOption {
	return func(s *ProfileService) { s.photos = photos }
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) ProfileOption {
	return func(s *ProfileService) { s.log = logging.Component(logger, "profiles") }
}

// NewProfileService creates a new ProfileService instance
func NewProfileService(db *gorm.DB, opts ...ProfileOption) *ProfileService {
	s := &ProfileService{
		db:        db,
		validator: validation.New(),
		log:       logging.Component(nil, "profiles"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProfile validates and stores a new profile; the database assigns its id
func (s *ProfileService) CreateProfile(ctx context.Context, req *types.CreateProfileRequest) (*models.UserProfile, error) {
	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, toValidationError(err)
	}

	profile := &models.UserProfile{
		Email:        req.Email,
		ProfilePhoto: req.ProfilePhoto,
		BodyType:     req.BodyType,
		SkinTone:     req.SkinTone,
	}
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.log.WithField("profile_id", profile.ID).Info("created profile")
	return profile, nil
}

// GetProfile retrieves a profile by id
func (s *ProfileService) GetProfile(ctx context.Context, id uint) (*models.UserProfile, error) {
	if cached := s.cacheGet(ctx, id); cached != nil {
		return cached, nil
	}

	profile, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}

	// an update may have committed and invalidated between load and set
	s.cacheSet(ctx, profile)
	if s.cache != nil {
		current, err := s.load(s.db.WithContext(ctx), id)
		if err != nil {
			s.cacheInvalidate(ctx, id)
			return nil, err
		}
		if !sameProfile(profile, current) {
			s.cacheInvalidate(ctx, id)
		}
		return current, nil
	}
	return profile, nil
}

// ListProfiles returns a page of profiles ordered by id, and the total matching count
func (s *ProfileService) ListProfiles(ctx context.Context, filter types.ProfileFilter) ([]models.UserProfile, int64, error) {
	filter.Normalize()

	query := s.db.WithContext(ctx).Model(&models.UserProfile{})
	if filter.Email != "" {
		query = query.Where("email = ?", filter.Email)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	profiles := make([]models.UserProfile, 0, filter.Limit)
	if err := query.Order("id").Limit(filter.Limit).Offset(filter.Offset).Find(&profiles).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	return profiles, total, nil
}

// UpdateProfile applies a partial update. The id of a profile never changes.
func (s *ProfileService) UpdateProfile(ctx context.Context, id uint, req *types.UpdateProfileRequest) (*models.UserProfile, error) {
	if req.Empty() {
		return s.GetProfile(ctx, id)
	}

	var (
		updated  *models.UserProfile
		oldPhoto *string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		oldPhoto = profile.ProfilePhoto

		merged := types.CreateProfileRequest{
			Email:        profile.Email,
			ProfilePhoto: profile.ProfilePhoto,
			BodyType:     profile.BodyType,
			SkinTone:     profile.SkinTone,
		}
		if req.Email != nil {
			merged.Email = *req.Email
		}
		if req.BodyType != nil {
			merged.BodyType = *req.BodyType
		}
		if req.SkinTone != nil {
			merged.SkinTone = *req.SkinTone
		}
		if req.ProfilePhoto.Set {
			merged.ProfilePhoto = req.ProfilePhoto.Value
		}

		merged.Normalize()
		if err := s.validator.Struct(&merged); err != nil {
			return toValidationError(err)
		}

		profile.Email = merged.Email
		profile.ProfilePhoto = merged.ProfilePhoto
		profile.BodyType = merged.BodyType
		profile.SkinTone = merged.SkinTone

		if err := s.writeFields(tx, profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheInvalidate(ctx, id)
	if !samePhoto(oldPhoto, updated.ProfilePhoto) {
		s.deleteStoredPhoto(ctx, oldPhoto)
	}

	s.log.WithField("profile_id", id).Info("updated profile")
	return updated, nil
}

// DeleteProfile removes a profile and its stored photo
func (s *ProfileService) DeleteProfile(ctx context.Context, id uint) error {
	var photo *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		photo = profile.ProfilePhoto

		result := tx.Delete(&models.UserProfile{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete profile %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrProfileNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cacheInvalidate(ctx, id)
	s.deleteStoredPhoto(ctx, photo)

	s.log.WithField("profile_id", id).Info("deleted profile")
	return nil
}

// UploadProfilePhoto stores a new photo for the profile and points profile_photo at it.
// The type is detected from the content, not from what the client claims.
func (s *ProfileService) UploadProfilePhoto(ctx context.Context, id uint, photo io.Reader) (*models.UserProfile, error) {
	if s.photos == nil {
		return nil, ErrPhotosDisabled
	}

	data, err := io.ReadAll(io.LimitReader(photo, MaxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) == 0 {
		return nil, &ValidationError{Fields: validation.FieldErrors{"photo": "is required"}}
	}
	if len(data) > MaxPhotoSize {
		return nil, ErrPhotoTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := photoExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPhotoType, contentType)
	}

	if _, err := s.load(s.db.WithContext(ctx), id); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("profile-photos/%d/%s.%s", id, uuid.New().String(), ext)
	url, err := s.photos.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, err
	}

	// only profile_photo is written; other columns may have changed during Put
	var profile *models.UserProfile
	var oldPhoto *string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		oldPhoto = current.ProfilePhoto

		result := tx.Model(&models.UserProfile{}).Where("id = ?", id).Update("profile_photo", url)
		if result.Error != nil {
			return fmt.Errorf("failed to update profile %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrProfileNotFound
		}

		profile, err = s.load(tx, id)
		return err
	})
	if err != nil {
		// the row vanished while uploading; do not leave an orphan behind
		s.deleteStoredPhoto(ctx, &url)
		return nil, err
	}

	s.cacheInvalidate(ctx, id)
	if !samePhoto(oldPhoto, &url) {
		s.deleteStoredPhoto(ctx, oldPhoto)
	}

	s.log.WithFields(logrus.Fields{"profile_id": id, "bytes": len(data)}).Info("uploaded profile photo")
	return profile, nil
}

// RemoveProfilePhoto sets profile_photo to NULL. Removing an absent photo is not an error.
func (s *ProfileService) RemoveProfilePhoto(ctx context.Context, id uint) (*models.UserProfile, error) {
	return s.UpdateProfile(ctx, id, &types.UpdateProfileRequest{
		ProfilePhoto: types.NewOptionalString(nil),
	})
}

// PhotoURL returns a download link for the profile photo. Photos kept in the
// configured store get a presigned link valid for ttl; others are returned as stored.
func (s *ProfileService) PhotoURL(ctx context.Context, id uint, ttl time.Duration) (string, error) {
	profile, err := s.GetProfile(ctx, id)
	if err != nil {
		return "", err
	}
	if !profile.HasPhoto() {
		return "", ErrNoPhoto
	}

	url := *profile.ProfilePhoto
	if s.photos == nil {
		return url, nil
	}

	signed, err := s.photos.PresignGet(ctx, url, ttl)
	if errors.Is(err, storage.ErrForeignURL) {
		return url, nil
	}
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (s *ProfileService) load(db *gorm.DB, id uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := db.First(&profile, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %d: %w", id, err)
	}
	return &profile, nil
}

// loadForUpdate row-locks the profile for the rest of tx. SQLite has no row
// locks and serializes writers instead.
func (s *ProfileService) loadForUpdate(tx *gorm.DB, id uint) (*models.UserProfile, error) {
	return s.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// writeFields updates every mutable column of profile; id only selects the row
func (s *ProfileService) writeFields(db *gorm.DB, profile *models.UserProfile) error {
	result := db.Model(&models.UserProfile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]interface{}{
			"email":         profile.Email,
			"profile_photo": profile.ProfilePhoto,
			"body_type":     profile.BodyType,
			"skin_tone":     profile.SkinTone,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update profile %d: %w", profile.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// deleteStoredPhoto removes a photo object; failures are logged, never returned
func (s *ProfileService) deleteStoredPhoto(ctx context.Context, url *string) {
	if s.photos == nil || url == nil || *url == "" {
		return
	}
	err := s.photos.Delete(ctx, *url)
	if err != nil && !errors.Is(err, storage.ErrForeignURL) {
		s.log.WithError(err).WithField("url", *url).Warn("failed to delete stored photo")
	}
}

func (s *ProfileService) cacheGet(ctx context.Context, id uint) *models.UserProfile {
	if s.cache == nil {
		return nil
	}
	profile, err := s.cache.Get(ctx, id)
	if err != nil {
		s.log.WithError(err).Warn("profile cache read failed")
		return nil
	}
	return profile
}

func (s *ProfileService) cacheSet(ctx context.Context, profile *models.UserProfile) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, profile); err != nil {
		s.log.WithError(err).Warn("profile cache write failed")
	}
}

func (s *ProfileService) cacheInvalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.WithError(err).Warn("profile cache invalidation failed")
	}
}

func sameProfile(a, b *models.UserProfile) bool {
	return a.ID == b.ID &&
		a.Email == b.Email &&
		a.BodyType == b.BodyType &&
		a.SkinTone == b.SkinTone &&
		samePhoto(a.ProfilePhoto, b.ProfilePhoto)
}

func samePhoto(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return strings.TrimSpace(*a) == strings.TrimSpace(*b)
}
