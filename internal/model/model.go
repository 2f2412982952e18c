// Package model defines domain entities used by services and repositories.
package model

import (
	"strings"
	"time"
)

// RoleAdministrator is the role allowed to read other users' answers and credentials.
const (
	RoleAdministrator = "ADMINISTRATOR"
	RoleLocalManager  = "LOCAL_MANAGER"
)

// FormStatus is the publication state of a form.
type FormStatus string

const (
	FormDraft     FormStatus = "DRAFT"
	FormPublished FormStatus = "PUBLISHED"
	FormClosed    FormStatus = "CLOSED"
)

// FieldType is the input kind of a field.
type FieldType string

const (
	FieldShortText        FieldType = "SHORT_TEXT"
	FieldLongText         FieldType = "LONG_TEXT"
	FieldSingleChoiceList FieldType = "SINGLE_CHOICE_LIST"
	FieldSingleChoice     FieldType = "SINGLE_CHOICE"
	FieldMultipleChoice   FieldType = "MULTIPLE_CHOICE"
	FieldDate             FieldType = "DATE"
	FieldNumber           FieldType = "NUMBER"
	FieldEmail            FieldType = "EMAIL"
)

// IsChoice reports whether the field type owns options.
func (t FieldType) IsChoice() bool {
	switch t {
	case FieldSingleChoiceList, FieldSingleChoice, FieldMultipleChoice:
		return true
	}
	return false
}

// AnswerStatus is the lifecycle state of an answer.
type AnswerStatus string

const (
	AnswerDraft     AnswerStatus = "DRAFT"
	AnswerCompleted AnswerStatus = "COMPLETED"
)

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// Principal is the authenticated caller as resolved by the auth middleware.
type Principal struct {
	UserID   int64
	Username string
	Role     string
}

// IsAdmin reports whether the principal carries the ADMINISTRATOR role, ignoring case.
func (p Principal) IsAdmin() bool { return strings.EqualFold(p.Role, RoleAdministrator) }

// Role is an access level assignable to users.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// User represents an account stored on the server.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"` // unique
	Email         string    `json:"email"`    // unique
	RoleID        *int64    `json:"roleId"`
	RoleName      string    `json:"roleName,omitempty"`
	PasswordHash  string    `json:"passwordHash,omitempty"`  // bcrypt; exposed only on credential export
	OfflineDigest string    `json:"offlineDigest,omitempty"` // hex MD5 for on-device login
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Public returns a copy of the user without credential material.
func (u User) Public() User {
	u.PasswordHash = ""
	u.OfflineDigest = ""
	return u
}

// NewUser is a user creation intent with a plaintext password.
type NewUser struct {
	Username string `json:"username" validate:"notblank,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required"`
	RoleID   *int64 `json:"roleId"`
}

// UserUpdate overwrites a user's profile. An empty Password keeps both stored verifiers.
type UserUpdate struct {
	Username string `json:"username" validate:"notblank,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password,omitempty"`
	RoleID   *int64 `json:"roleId"`
}

// SyncUser is the credential-free user row shipped in a sync pull.
type SyncUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Form is a form header.
type Form struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title" validate:"notblank,max=200"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Status      FormStatus `json:"status" validate:"omitempty,formstatus"`
	StartDate   *string    `json:"startDate" validate:"omitempty,isodate"` // YYYY-MM-DD
	EndDate     *string    `json:"endDate" validate:"omitempty,isodate"`   // YYYY-MM-DD
	CreatorID   int64      `json:"creatorId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Sections []Section `json:"sections,omitempty"` // filled by the tree read
}

// FormSummary is a listing row.
type FormSummary struct {
	Form
	TotalFields int `json:"totalFields"`
}

// Section groups fields inside a form.
type Section struct {
	ID          int64     `json:"id"`
	FormID      int64     `json:"formId"`
	Title       string    `json:"title" validate:"notblank,max=200"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Fields []Field `json:"fields"`
}

// Field is a typed input inside a section.
type Field struct {
	ID           int64     `json:"id"`
	SectionID    int64     `json:"sectionId"`
	Type         FieldType `json:"type" validate:"fieldtype"`
	Label        string    `json:"label" validate:"notblank,max=200"`
	Placeholder  string    `json:"placeholder,omitempty"`
	DefaultValue string    `json:"defaultValue,omitempty"`
	Help         string    `json:"help,omitempty"`
	Order        int       `json:"order"`
	Required     bool      `json:"required"`
	Active       bool      `json:"active"`
	MinLength    *int      `json:"minLength"`
	MaxLength    *int      `json:"maxLength"`
	Pattern      string    `json:"pattern,omitempty"`
	MinValue     *float64  `json:"minValue"`
	MaxValue     *float64  `json:"maxValue"`
	HasOther     bool      `json:"hasOther"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Options []Option `json:"options"`
}

// Option is a selectable choice of a choice-type field.
type Option struct {
	ID      int64  `json:"id"`
	FieldID int64  `json:"fieldId"`
	Text    string `json:"text" validate:"notblank,max=200"`
	Value   string `json:"value"`
	Order   int    `json:"order"`
}

// Answer is the header of one user's submission against a form.
type Answer struct {
	ID            int64        `json:"id"`
	FormID        int64        `json:"formId"`
	UserID        int64        `json:"userId"`
	Status        AnswerStatus `json:"status"`
	StartedAt     time.Time    `json:"startedAt"`
	LastUpdatedAt time.Time    `json:"lastUpdatedAt"`
	SubmittedAt   *time.Time   `json:"submittedAt"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	FormTitle string `json:"formTitle,omitempty"` // set by per-user listings
	Username  string `json:"username,omitempty"`  // set by per-form admin listing
}

// RawValue is a submitted value for one field.
type RawValue struct {
	FieldID int64  `json:"fieldId"`
	Value   string `json:"value"`
	IsOther bool   `json:"isOther,omitempty"` // free-text escape of a has-other field
}

// SaveAnswer is the input of an answer save.
type SaveAnswer struct {
	FormID   int64
	UserID   int64
	AnswerID *int64 // nil creates a new answer
	Values   []RawValue
	Status   AnswerStatus
}

// StoredValue is the column split of a value as written to storage. Exactly one pointer is non-nil.
type StoredValue struct {
	FieldID int64
	Text    *string
	Number  *float64
	Date    *time.Time
	Other   *string
}

// AnswerValue is a value resolved to its human-readable representation.
type AnswerValue struct {
	ID         int64     `json:"id"`
	FieldID    int64     `json:"fieldId"`
	Value      string    `json:"value"`
	FieldLabel string    `json:"fieldLabel"`
	FieldType  FieldType `json:"fieldType"`
}

// AnswerWithValues is the answer read model.
type AnswerWithValues struct {
	Answer
	Values []AnswerValue `json:"values"`
}

// DashboardFilter narrows the answer dashboard. Nil fields do not filter.
type DashboardFilter struct {
	UserID *int64     // set for non-administrators
	FormID *int64
	From   *time.Time // created on or after this day
	To     *time.Time // created on or before this day
}

// DashboardTotals are the counts over every matching answer.
type DashboardTotals struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Draft     int `json:"draft"`
	Forms     int `json:"forms"`
	Users     int `json:"users"`
}

// FormAnswerStats are the counts of one form.
type FormAnswerStats struct {
	FormID    int64  `json:"formId"`
	FormTitle string `json:"formTitle"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Draft     int    `json:"draft"`
}

// Dashboard aggregates answers for the overview screen.
type Dashboard struct {
	Totals  DashboardTotals   `json:"totals"`
	ByForm  []FormAnswerStats `json:"byForm"`
	Answers []Answer          `json:"answers"`
}

// Product is a catalog row synchronized with offline clients.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"` // sync watermark
}

// ProductInput is a product create/update intent. In a push, a negative ID marks a client-created row.
type ProductInput struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name" validate:"notblank,max=30"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int64   `json:"quantity" validate:"gte=0"`
}

// Page describes a requested page.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the row offset of the page.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Pagination is the page metadata returned with listings.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes page metadata for a total row count.
func NewPagination(p Page, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

// FormFilter restricts form listings. Without a status, the viewer sees published forms and their own.
type FormFilter struct {
	Status   *FormStatus
	ViewerID int64
}
