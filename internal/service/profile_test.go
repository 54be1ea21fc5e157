package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fitcheck/backend/internal/models"
	"github.com/pageza/fitcheck/backend/internal/storage"
	"github.com/pageza/fitcheck/backend/internal/testhelpers"
	"github.com/pageza/fitcheck/backend/internal/types"
)

// pngHeader is enough for http.DetectContentType to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memoryCache struct {
	mu      sync.Mutex
	entries map[uint]models.UserProfile
	gets    int
	// onSet runs before an entry is stored
	onSet func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[uint]models.UserProfile{}}
}

func (c *memoryCache) Get(_ context.Context, id uint) (*models.UserProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	p, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *memoryCache) Set(_ context.Context, p *models.UserProfile) error {
	if c.onSet != nil {
		c.onSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.ID] = *p
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

type memoryPhotoStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	// onPut runs after validation, before the object is stored
	onPut func()
}

const memoryBaseURL = "https://photos.test"

func newMemoryPhotoStore() *memoryPhotoStore {
	return &memoryPhotoStore{objects: map[string][]byte{}}
}

func (m *memoryPhotoStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	if m.onPut != nil {
		m.onPut()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	url := memoryBaseURL + "/" + key
	m.objects[url] = data
	return url, nil
}

func (m *memoryPhotoStore) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, memoryBaseURL) {
		return storage.ErrForeignURL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, url)
	return nil
}

func (m *memoryPhotoStore) PresignGet(_ context.Context, url string, ttl time.Duration) (string, error) {
	if !strings.HasPrefix(url, memoryBaseURL) {
		return "", storage.ErrForeignURL
	}
	return fmt.Sprintf("%s?expires=%d", url, int(ttl.Seconds())), nil
}

func (m *memoryPhotoStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func newTestProfileService(t *testing.T, opts ...ProfileOption) *ProfileService {
	t.Helper()
	return NewProfileService(testhelpers.SetupSQLite(t), opts...)
}

func validRequest() *types.CreateProfileRequest {
	return &types.CreateProfileRequest{Email: "a@b.com", BodyType: "slim", SkinTone: "tan"}
}

func strPtr(s string) *string { return &s }

func TestCreateProfileAssignsID(t *testing.T) {
	svc := newTestProfileService(t)
	ctx := context.Background()

	profile, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)
	assert.NotZero(t, profile.ID)
	assert.Nil(t, profile.ProfilePhoto)

	second, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)
	assert.NotEqual(t, profile.ID, second.ID, "ids are unique even for identical emails")
}

func TestCreateProfileRoundTrip(t *testing.T) {
	svc := newTestProfileService(t)
	ctx := context.Background()

	req := &types.CreateProfileRequest{
		Email:        "round@trip.com",
		ProfilePhoto: strPtr("https://cdn.example.com/me.jpg"),
		BodyType:     "athletic",
		SkinTone:     "olive",
	}
	created, err := svc.CreateProfile(ctx, req)
	require.NoError(t, err)

	got, err := svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, "round@trip.com", got.Email)
	assert.Equal(t, "https://cdn.example.com/me.jpg", *got.ProfilePhoto)
	assert.Equal(t, "athletic", got.BodyType)
	assert.Equal(t, "olive", got.SkinTone)
}

func TestCreateProfileValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   types.CreateProfileRequest
		field string
	}{
		{name: "missing email", req: types.CreateProfileRequest{BodyType: "slim", SkinTone: "tan"}, field: "email"},
		{name: "blank email", req: types.CreateProfileRequest{Email: "   ", BodyType: "slim", SkinTone: "tan"}, field: "email"},
		{name: "malformed email", req: types.CreateProfileRequest{Email: "nope", BodyType: "slim", SkinTone: "tan"}, field: "email"},
		{name: "missing body type", req: types.CreateProfileRequest{Email: "a@b.com", SkinTone: "tan"}, field: "body_type"},
		{name: "missing skin tone", req: types.CreateProfileRequest{Email: "a@b.com", BodyType: "slim"}, field: "skin_tone"},
		{name: "long body type", req: types.CreateProfileRequest{Email: "a@b.com", BodyType: strings.Repeat("x", 51), SkinTone: "tan"}, field: "body_type"},
	}

	svc := newTestProfileService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.CreateProfile(context.Background(), &req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidProfile)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	_, total, err := svc.ListProfiles(context.Background(), types.ProfileFilter{})
	require.NoError(t, err)
	assert.Zero(t, total, "nothing is stored on validation failure")
}

func TestGetProfileNotFound(t *testing.T) {
	svc := newTestProfileService(t)
	_, err := svc.GetProfile(context.Background(), 404)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestGetProfileUsesCache(t *testing.T) {
	cache := newMemoryCache()
	svc := newTestProfileService(t, WithCache(cache))
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	require.Contains(t, cache.entries, created.ID)

	// a stale cache entry is served until invalidated
	stale := cache.entries[created.ID]
	stale.SkinTone = "cached"
	cache.entries[created.ID] = stale

	got, err := svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached", got.SkinTone)

	_, err = svc.UpdateProfile(ctx, created.ID, &types.UpdateProfileRequest{SkinTone: strPtr("fair")})
	require.NoError(t, err)
	assert.NotContains(t, cache.entries, created.ID)

	got, err = svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "fair", got.SkinTone)
}

func TestGetProfileDropsEntryOverwrittenByConcurrentUpdate(t *testing.T) {
	cache := newMemoryCache()
	svc := newTestProfileService(t, WithCache(cache))
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)

	// an update commits and invalidates after the miss was loaded, before it is stored
	var once sync.Once
	cache.onSet = func() {
		once.Do(func() {
			_, err := svc.UpdateProfile(ctx, created.ID, &types.UpdateProfileRequest{SkinTone: strPtr("olive")})
			require.NoError(t, err)
		})
	}

	got, err := svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "olive", got.SkinTone)

	got, err = svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "olive", got.SkinTone)

	cached, err := cache.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "olive", cached.SkinTone)
}

func TestListProfiles(t *testing.T) {
	svc := newTestProfileService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		email := "many@b.com"
		if i%2 == 0 {
			email = fmt.Sprintf("user%d@b.com", i)
		}
		_, err := svc.CreateProfile(ctx, &types.CreateProfileRequest{Email: email, BodyType: "slim", SkinTone: "tan"})
		require.NoError(t, err)
	}

	all, total, err := svc.ListProfiles(ctx, types.ProfileFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID, "ordered by id")
	}

	page, total, err := svc.ListProfiles(ctx, types.ProfileFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, all[2].ID, page[0].ID)

	byEmail, total, err := svc.ListProfiles(ctx, types.ProfileFilter{Email: "many@b.com"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, byEmail, 2)
}

func TestUpdateProfilePartial(t *testing.T) {
	svc := newTestProfileService(t)
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, &types.CreateProfileRequest{
		Email: "a@b.com", BodyType: "slim", SkinTone: "tan", ProfilePhoto: strPtr("https://cdn/x.png"),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, created.ID, &types.UpdateProfileRequest{BodyType: strPtr("curvy")})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "curvy", updated.BodyType)
	assert.Equal(t, "a@b.com", updated.Email)
	assert.Equal(t, "tan", updated.SkinTone)
	require.NotNil(t, updated.ProfilePhoto, "absent photo key leaves photo untouched")
	assert.Equal(t, "https://cdn/x.png", *updated.ProfilePhoto)

	cleared, err := svc.UpdateProfile(ctx, created.ID, &types.UpdateProfileRequest{ProfilePhoto: types.NewOptionalString(nil)})
	require.NoError(t, err)
	assert.Nil(t, cleared.ProfilePhoto)

	stored, err := svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, cleared, stored)
}

func TestUpdateProfileRejectsBlankRequiredFields(t *testing.T) {
	svc := newTestProfileService(t)
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, created.ID, &types.UpdateProfileRequest{Email: strPtr("")})
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = svc.UpdateProfile(ctx, created.ID, &types.UpdateProfileRequest{SkinTone: strPtr("  ")})
	assert.ErrorIs(t, err, ErrInvalidProfile)

	stored, err := svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored, "failed update leaves the row unchanged")
}

func TestUpdateProfileNotFound(t *testing.T) {
	svc := newTestProfileService(t)
	_, err := svc.UpdateProfile(context.Background(), 77, &types.UpdateProfileRequest{Email: strPtr("x@y.com")})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestDeleteProfile(t *testing.T) {
	photos := newMemoryPhotoStore()
	svc := newTestProfileService(t, WithPhotoStore(photos))
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)
	_, err = svc.UploadProfilePhoto(ctx, created.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, 1, photos.count())

	require.NoError(t, svc.DeleteProfile(ctx, created.ID))
	assert.Zero(t, photos.count(), "stored photo is removed with the profile")

	_, err = svc.GetProfile(ctx, created.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	assert.ErrorIs(t, svc.DeleteProfile(ctx, created.ID), ErrProfileNotFound)
}

func TestUploadProfilePhoto(t *testing.T) {
	photos := newMemoryPhotoStore()
	svc := newTestProfileService(t, WithPhotoStore(photos))
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)

	first, err := svc.UploadProfilePhoto(ctx, created.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.NotNil(t, first.ProfilePhoto)
	assert.True(t, strings.HasPrefix(*first.ProfilePhoto, fmt.Sprintf("%s/profile-photos/%d/", memoryBaseURL, created.ID)))
	assert.True(t, strings.HasSuffix(*first.ProfilePhoto, ".png"))
	firstURL := *first.ProfilePhoto

	second, err := svc.UploadProfilePhoto(ctx, created.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.NotEqual(t, firstURL, *second.ProfilePhoto)
	assert.Equal(t, 1, photos.count(), "previous photo is replaced")

	stored, err := svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ProfilePhoto, stored.ProfilePhoto)
}

func TestUploadProfilePhotoKeepsConcurrentUpdate(t *testing.T) {
	photos := newMemoryPhotoStore()
	svc := newTestProfileService(t, WithPhotoStore(photos))
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)

	// the profile is edited while the object upload is in flight
	photos.onPut = func() {
		_, err := svc.UpdateProfile(ctx, created.ID, &types.UpdateProfileRequest{Email: strPtr("new@b.com")})
		require.NoError(t, err)
	}

	uploaded, err := svc.UploadProfilePhoto(ctx, created.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.NotNil(t, uploaded.ProfilePhoto)
	assert.Equal(t, "new@b.com", uploaded.Email)

	stored, err := svc.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@b.com", stored.Email)
	assert.Equal(t, uploaded.ProfilePhoto, stored.ProfilePhoto)
	assert.Equal(t, "slim", stored.BodyType)
}

func TestUploadProfilePhotoRejects(t *testing.T) {
	photos := newMemoryPhotoStore()
	svc := newTestProfileService(t, WithPhotoStore(photos))
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.UploadProfilePhoto(ctx, created.ID, strings.NewReader("plain text, not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedPhotoType)

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxPhotoSize)...)
	_, err = svc.UploadProfilePhoto(ctx, created.ID, bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrPhotoTooLarge)

	_, err = svc.UploadProfilePhoto(ctx, created.ID, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = svc.UploadProfilePhoto(ctx, 999, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrProfileNotFound)

	photos.putErr = errors.New("s3 down")
	_, err = svc.UploadProfilePhoto(ctx, created.ID, bytes.NewReader(pngHeader))
	assert.Error(t, err)

	assert.Zero(t, photos.count())
}

func TestUploadProfilePhotoDisabled(t *testing.T) {
	svc := newTestProfileService(t)
	_, err := svc.UploadProfilePhoto(context.Background(), 1, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrPhotosDisabled)
}

func TestRemoveProfilePhoto(t *testing.T) {
	photos := newMemoryPhotoStore()
	svc := newTestProfileService(t, WithPhotoStore(photos))
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)
	_, err = svc.UploadProfilePhoto(ctx, created.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)

	removed, err := svc.RemoveProfilePhoto(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, removed.ProfilePhoto)
	assert.Zero(t, photos.count())

	// removing again is a no-op
	again, err := svc.RemoveProfilePhoto(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, again.ProfilePhoto)
}

func TestPhotoURL(t *testing.T) {
	photos := newMemoryPhotoStore()
	svc := newTestProfileService(t, WithPhotoStore(photos))
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.PhotoURL(ctx, created.ID, time.Minute)
	assert.ErrorIs(t, err, ErrNoPhoto)

	uploaded, err := svc.UploadProfilePhoto(ctx, created.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)

	url, err := svc.PhotoURL(ctx, created.ID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, *uploaded.ProfilePhoto+"?expires=60", url)

	external, err := svc.CreateProfile(ctx, &types.CreateProfileRequest{
		Email: "x@y.com", BodyType: "slim", SkinTone: "tan", ProfilePhoto: strPtr("https://elsewhere.example.com/me.jpg"),
	})
	require.NoError(t, err)
	url, err = svc.PhotoURL(ctx, external.ID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://elsewhere.example.com/me.jpg", url)
}
