package models

// Organization is the white-label branding attached to a room. The
// coordinator is parameterized by this object; branded and unbranded
// rooms run the exact same game logic.
type Organization struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	LogoURL      string `json:"logoUrl,omitempty"`
	PrimaryColor string `json:"primaryColor,omitempty"`
}

// Topic is a named catalog of rankable items. Topics with an empty
// OrganizationID belong to the global catalog.
type Topic struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OrganizationID string `json:"organizationId,omitempty"`
}
