package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/internal/middleware"
	"github.com/pageza/fitcheck/backend/internal/service"
	"github.com/pageza/fitcheck/backend/internal/types"
)

const (
	// DefaultPhotoURLTTL is how long presigned photo links stay valid
	DefaultPhotoURLTTL = 15 * time.Minute

	// multipart overhead allowed on top of the photo itself
	uploadOverhead = 1 << 20
)

// ProfileHandler serves the /profiles resource
type ProfileHandler struct {
	profiles    service.IProfileService
	photoURLTTL time.Duration
	log         logrus.FieldLogger
}

func NewProfileHandler(profiles service.IProfileService, logger logrus.FieldLogger) *ProfileHandler {
	return &ProfileHandler{
		profiles:    profiles,
		photoURLTTL: DefaultPhotoURLTTL,
		log:         logging.Component(logger, "api"),
	}
}

func (h *ProfileHandler) RegisterRoutes(router *gin.RouterGroup) {
	profiles := router.Group("/profiles")
	{
		profiles.POST("", h.CreateProfile)
		profiles.GET("", h.ListProfiles)
		profiles.GET("/:id", h.GetProfile)
		profiles.PATCH("/:id", h.UpdateProfile)
		profiles.DELETE("/:id", h.DeleteProfile)
		profiles.PUT("/:id/photo", h.UploadPhoto)
		profiles.DELETE("/:id/photo", h.RemovePhoto)
		profiles.GET("/:id/photo/url", h.PhotoURL)
	}
}

func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	var req types.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	profile, err := h.profiles.CreateProfile(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Location", "/api/v1/profiles/"+strconv.FormatUint(uint64(profile.ID), 10))
	c.JSON(http.StatusCreated, profile)
}

func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	var filter types.ProfileFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	filter.Normalize()

	profiles, total, err := h.profiles.ListProfiles(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, types.ProfileList{
		Profiles: profiles,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile applies a partial update. An id in the body is ignored.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	var req types.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	if err := h.profiles.DeleteProfile(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UploadPhoto accepts a multipart upload in the "photo" field
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	if c.Request.ContentLength > service.MaxPhotoSize+uploadOverhead {
		respondError(c, h.log, service.ErrPhotoTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxPhotoSize+uploadOverhead)
	header, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.log, service.ErrPhotoTooLarge)
			return
		}
		badRequest(c, "multipart field \"photo\" is required")
		return
	}
	if header.Size > service.MaxPhotoSize {
		respondError(c, h.log, service.ErrPhotoTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer file.Close()

	profile, err := h.profiles.UploadProfilePhoto(c.Request.Context(), id, file)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) RemovePhoto(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	profile, err := h.profiles.RemoveProfilePhoto(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) PhotoURL(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	url, err := h.profiles.PhotoURL(c.Request.Context(), id, h.photoURLTTL)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, types.PhotoURLResponse{
		URL:       url,
		ExpiresIn: int(h.photoURLTTL.Seconds()),
	})
}

// profileID parses the :id path parameter, writing a 400 when it is not a
// positive integer. Ids past the range of the SERIAL column cannot exist and get a 404.
func profileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if errors.Is(err, strconv.ErrRange) || (err == nil && id > math.MaxInt32) {
		c.JSON(http.StatusNotFound, middleware.ErrorResponse{Error: service.ErrProfileNotFound.Error()})
		return 0, false
	}
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid profile id"})
		return 0, false
	}
	return uint(id), true
}
