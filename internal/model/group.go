package model

import "time"

// GroupHeader is a named asset group within an organization.
type GroupHeader struct {
	ID          string     `json:"assetgroup_h_id"`
	OrgID       string     `json:"org_id"`
	Name        string     `json:"text"`
	CreatedBy   string     `json:"created_by"`
	CreatedOn   time.Time  `json:"created_on"`
	ChangedBy   *string    `json:"changed_by,omitempty"`
	ChangedOn   *time.Time `json:"changed_on,omitempty"`
	MemberCount int        `json:"asset_count"`
}

// GroupMember links one asset to a group. Asset fields are joined on read.
type GroupMember struct {
	ID        string `json:"assetgroup_d_id"`
	GroupID   string `json:"assetgroup_h_id"`
	AssetID   string `json:"asset_id"`
	AssetName string `json:"asset_name,omitempty"`
	SerialNo  string `json:"serial_number,omitempty"`
	TypeID    string `json:"asset_type_id,omitempty"`
}

// Group is a header together with its members.
type Group struct {
	GroupHeader
	Members []GroupMember `json:"members"`
}
