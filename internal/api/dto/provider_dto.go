package dto

import (
	"strconv"
	"time"

	"github.com/spec-kit/provider-directory/internal/domain"
)

// ProviderPayload carries provider fields for create/update. Pointers
// distinguish "absent" from "blank" so PATCH stays partial.
type ProviderPayload struct {
	NPI          *string `json:"npi"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Specialty    *string `json:"specialty"`
	Credentials  *string `json:"credentials"`
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	Zip          *string `json:"zip"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
}

// ProviderRequest accepts the payload nested under "provider" or flat.
type ProviderRequest struct {
	ProviderPayload
	Provider *ProviderPayload `json:"provider"`
}

// Payload resolves whichever nesting the client used.
func (r ProviderRequest) Payload() ProviderPayload {
	if r.Provider != nil {
		return *r.Provider
	}
	return r.ProviderPayload
}

// ProviderAttributes is the serialized attribute set for a provider.
type ProviderAttributes struct {
	ID              int64     `json:"id"`
	NPI             string    `json:"npi"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Specialty       string    `json:"specialty"`
	Credentials     string    `json:"credentials"`
	AddressLine1    string    `json:"address_line1"`
	AddressLine2    *string   `json:"address_line2"`
	City            string    `json:"city"`
	State           string    `json:"state"`
	Zip             string    `json:"zip"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Active          bool      `json:"active"`
	FullName        string    `json:"full_name"`
	FullAddress     string    `json:"full_address"`
	ProfileImageURL *string   `json:"profile_image_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProviderResource wraps attributes in the id/type envelope the UI consumes.
type ProviderResource struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Attributes ProviderAttributes `json:"attributes"`
}

// PaginationMeta carries server-side pagination state.
type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalCount  int64 `json:"total_count"`
}

// NewProviderResource serializes a provider record.
func NewProviderResource(provider *domain.Provider, hasImage bool) ProviderResource {
	var imageURL *string
	if hasImage {
		url := "/api/v1/profile_images/" + strconv.FormatInt(provider.ID, 10)
		imageURL = &url
	}
	return ProviderResource{
		ID:   strconv.FormatInt(provider.ID, 10),
		Type: "provider",
		Attributes: ProviderAttributes{
			ID:              provider.ID,
			NPI:             provider.NPI,
			FirstName:       provider.FirstName,
			LastName:        provider.LastName,
			Specialty:       provider.Specialty,
			Credentials:     provider.Credentials,
			AddressLine1:    provider.AddressLine1,
			AddressLine2:    provider.AddressLine2,
			City:            provider.City,
			State:           provider.State,
			Zip:             provider.Zip,
			Phone:           provider.Phone,
			Email:           provider.Email,
			Active:          provider.Active,
			FullName:        provider.FullName(),
			FullAddress:     provider.FullAddress(),
			ProfileImageURL: imageURL,
			CreatedAt:       provider.CreatedAt,
			UpdatedAt:       provider.UpdatedAt,
		},
	}
}
