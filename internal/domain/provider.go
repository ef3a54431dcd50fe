package domain

import (
	"strings"
	"time"
)

// Provider is the aggregate for directory listings.
type Provider struct {
	ID           int64
	NPI          string
	FirstName    string
	LastName     string
	Specialty    string
	Credentials  string
	AddressLine1 string
	AddressLine2 *string
	City         string
	State        string
	Zip          string
	Phone        string
	Email        string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (p *Provider) FullName() string {
	return p.FirstName + " " + p.LastName
}

// FullAddress renders the mailing address on one line.
func (p *Provider) FullAddress() string {
	parts := []string{p.AddressLine1}
	if p.AddressLine2 != nil && strings.TrimSpace(*p.AddressLine2) != "" {
		parts = append(parts, *p.AddressLine2)
	}
	parts = append(parts, p.City+", "+p.State+" "+p.Zip)
	return strings.Join(parts, ", ")
}
