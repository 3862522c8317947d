// Package db provides database models and utilities for Slipway.
package db

import (
	"time"

	"github.com/google/uuid"
)

type BaseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OwnerModel struct {
	BaseModel
	Name      string     `gorm:"not null;unique;check:name <> ''"`
	DeletedAt *time.Time // soft delete; queries filter on IS NULL explicitly

	Projects []ProjectModel `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

func (OwnerModel) TableName() string {
	return "owners"
}

type UserModel struct {
	BaseModel
	Username     string `gorm:"not null;unique;check:username <> ''"`
	Name         string
	PasswordHash string `gorm:"not null"`
	Permissions  string // space-joined permission set
}

func (UserModel) TableName() string {
	return "users"
}

type MembershipModel struct {
	BaseModel
	UserID  uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_memberships_user_owner"`
	OwnerID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_memberships_user_owner"`

	User  UserModel  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Owner OwnerModel `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

func (MembershipModel) TableName() string {
	return "memberships"
}

type ProjectModel struct {
	BaseModel
	OwnerID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_projects_owner_name"`
	Name    string    `gorm:"not null;uniqueIndex:idx_projects_owner_name;check:name <> ''"`
	Env     string    `gorm:"type:text"` // fernet-encrypted JSON object

	Owner  OwnerModel    `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Builds []BuildModel  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Tokens []TokenModel  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Routes []DomainModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (ProjectModel) TableName() string {
	return "projects"
}

type TokenModel struct {
	BaseModel
	ProjectID uuid.UUID `gorm:"type:char(36);not null;index"`
	TokenHash string    `gorm:"not null;check:token_hash <> ''"` // argon2id encoded hash, never plaintext

	Project ProjectModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (TokenModel) TableName() string {
	return "api_tokens"
}

type BuildModel struct {
	BaseModel
	ProjectID  uuid.UUID `gorm:"type:char(36);not null;index"`
	Status     string    `gorm:"not null;check:status <> ''"` // pending, building, successful, failed
	Commit     string    // bare repo HEAD at dequeue time, may be empty
	Log        string    `gorm:"type:text"`
	FinishedAt *time.Time

	Project ProjectModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (BuildModel) TableName() string {
	return "builds"
}

// DomainModel rows are the reverse-proxy routing table.
type DomainModel struct {
	BaseModel
	ProjectID   uuid.UUID `gorm:"type:char(36);not null;index"`
	Name        string    `gorm:"not null;unique;check:name <> ''"`
	Port        int       `gorm:"not null"`
	ContainerIP string    `gorm:"not null"`

	Project ProjectModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (DomainModel) TableName() string {
	return "domains"
}
