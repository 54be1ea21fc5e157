package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Default and maximum page sizes for profile listings
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// CreateProfileRequest represents the request body for creating a profile
type CreateProfileRequest struct {
	Email        string  `json:"email" validate:"required,email,max=255"`
	ProfilePhoto *string `json:"profile_photo,omitempty" validate:"omitnil,max=1024"`
	BodyType     string  `json:"body_type" validate:"required,max=50"`
	SkinTone     string  `json:"skin_tone" validate:"required,max=50"`
}

// Normalize trims surrounding whitespace so blank values count as missing
func (r *CreateProfileRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.BodyType = strings.TrimSpace(r.BodyType)
	r.SkinTone = strings.TrimSpace(r.SkinTone)
	if r.ProfilePhoto != nil {
		photo := strings.TrimSpace(*r.ProfilePhoto)
		if photo == "" {
			r.ProfilePhoto = nil
		} else {
			r.ProfilePhoto = &photo
		}
	}
}

// UpdateProfileRequest represents a partial update of a profile.
// Nil fields are left untouched. ProfilePhoto distinguishes an absent key
// (unchanged) from an explicit null (cleared).
type UpdateProfileRequest struct {
	Email        *string        `json:"email,omitempty"`
	ProfilePhoto OptionalString `json:"profile_photo"`
	BodyType     *string        `json:"body_type,omitempty"`
	SkinTone     *string        `json:"skin_tone,omitempty"`
}

// Empty reports whether the request changes nothing
func (r *UpdateProfileRequest) Empty() bool {
	return r.Email == nil && r.BodyType == nil && r.SkinTone == nil && !r.ProfilePhoto.Set
}

// OptionalString is a JSON string field that records whether it was present
type OptionalString struct {
	Set   bool
	Value *string
}

// NewOptionalString returns a present field holding value; nil means explicit null
func NewOptionalString(value *string) OptionalString {
	return OptionalString{Set: true, Value: value}
}

// UnmarshalJSON is only invoked when the key is present, including for null
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// MarshalJSON writes the value or null
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// ProfileFilter narrows a profile listing
type ProfileFilter struct {
	Email  string `form:"email"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// Normalize applies paging defaults and bounds
func (f *ProfileFilter) Normalize() {
	f.Email = strings.TrimSpace(f.Email)
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ProfileList is a page of profiles
type ProfileList struct {
	Profiles interface{} `json:"profiles"`
	Total    int64       `json:"total"`
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
}

// PhotoURLResponse carries a temporary download link for a profile photo
type PhotoURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}
