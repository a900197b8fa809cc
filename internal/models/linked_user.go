package models

import (
	"time"
)

// LinkedUser binds one local ledger installation to a remote aggregator
// user. One row per install identity; created lazily, upserted on repeat.
type LinkedUser struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	InstallIdentity string    `gorm:"uniqueIndex" json:"install_identity"`
	RemoteUserID    string    `json:"remote_user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LinkedConnection is one linked bank connection under a LinkedUser. The
// table is provisioned for future multi-connection tracking; the sync
// pipeline does not populate it.
type LinkedConnection struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	LinkedUserID  uint       `json:"linked_user_id"`
	LinkedUser    LinkedUser `json:"-" gorm:"foreignKey:LinkedUserID;constraint:OnDelete:CASCADE"`
	ConnectionID  string     `json:"connection_id"`
	InstitutionID string     `json:"institution_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
