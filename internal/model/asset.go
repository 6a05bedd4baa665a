package model

import "time"

// Asset is a physical asset tracked by an organization.
type Asset struct {
	ID           string     `json:"asset_id"`
	OrgID        string     `json:"org_id"`
	AssetTypeID  string     `json:"asset_type_id"`
	Name         string     `json:"name"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Description  string     `json:"description,omitempty"`
	ImageMime    string     `json:"image_mime,omitempty"`
	GroupID      *string    `json:"group_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// AssetType carries the rule deciding who may hold assets of the type.
type AssetType struct {
	ID             string    `json:"asset_type_id"`
	OrgID          string    `json:"org_id"`
	Name           string    `json:"name"`
	AssignmentType string    `json:"assignment_type"`
	CreatedAt      time.Time `json:"created_at"`
}

// Assignment types.
const (
	AssignmentTypeUser       = "User"
	AssignmentTypeDepartment = "Department"
)

// ValidAssignmentType reports whether t is a recognized assignment type.
func ValidAssignmentType(t string) bool {
	return t == AssignmentTypeUser || t == AssignmentTypeDepartment
}
