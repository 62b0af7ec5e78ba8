package models

import (
	"encoding/json"
	"time"
)

// Domain models matching the database schema in db/migrations/0001_init.sql

// Profile roles. Role is set once at signup and never changes.
const (
	RoleHunter = "HUNTER"
	RoleSignal = "SIGNAL"
)

// Listing statuses.
const (
	ListingActive  = "active"
	ListingPaused  = "paused"
	ListingDeleted = "deleted"
)

// Listing types.
const (
	ListingTypeAccess = "access"
	ListingTypePitch  = "pitch"
)

// Bid statuses. Accepted and rejected are terminal.
const (
	BidPending  = "pending"
	BidAccepted = "accepted"
	BidRejected = "rejected"
)

// Meeting statuses.
const (
	MeetingPending   = "pending"
	MeetingScheduled = "scheduled"
	MeetingCompleted = "completed"
	MeetingCancelled = "cancelled"
)

// MinListingPrice is the floor for any listing price.
const MinListingPrice = 50

type Profile struct {
	ID           string          `json:"id" db:"id"`
	Role         string          `json:"role" db:"role"`
	FullName     string          `json:"full_name" db:"full_name"`
	Email        string          `json:"email" db:"email"`
	PasswordHash string          `json:"-" db:"password_hash"`
	Company      string          `json:"company,omitempty" db:"company"`
	Verified     bool            `json:"verified" db:"verified"`
	Metadata     ProfileMetadata `json:"metadata" db:"metadata"`
	Created      int64           `json:"created" db:"created"`
	Updated      int64           `json:"updated" db:"updated"`
}

// ProfileMetadata is the typed form of the per-profile field bag. Shapes
// differ by role: Signals carry job/pricing fields, Hunters carry targeting
// fields; unused fields stay empty.
type ProfileMetadata struct {
	JobTitle         string   `json:"job_title,omitempty"`
	TechStack        []string `json:"tech_stack,omitempty"`
	Interests        []string `json:"interests,omitempty"`
	Context          string   `json:"context,omitempty"`
	BuyingStage      string   `json:"buying_stage,omitempty"`
	SuggestedPrice   int      `json:"suggested_price,omitempty"`
	ProfileCompleted bool     `json:"profile_completed,omitempty"`
}

type Listing struct {
	ID          string   `json:"id" db:"id"`
	UserID      string   `json:"user_id" db:"user_id"`
	Type        string   `json:"type" db:"type"`
	Title       string   `json:"title" db:"title"`
	Description string   `json:"description,omitempty" db:"description"`
	Price       int      `json:"price" db:"price"`
	Tags        []string `json:"tags,omitempty" db:"tags"`
	Status      string   `json:"status" db:"status"`
	Created     int64    `json:"created" db:"created"`
	Updated     int64    `json:"updated" db:"updated"`
}

type Bid struct {
	ID            string `json:"id" db:"id"`
	ListingID     string `json:"listing_id" db:"listing_id"`
	BidderID      string `json:"bidder_id" db:"bidder_id"`
	OwnerID       string `json:"owner_id" db:"owner_id"`
	Amount        int    `json:"amount" db:"amount"`
	Message       string `json:"message,omitempty" db:"message"`
	PreferredTime string `json:"preferred_time,omitempty" db:"preferred_time"`
	Status        string `json:"status" db:"status"`
	CreatedAt     int64  `json:"created_at" db:"created_at"`
}

type Meeting struct {
	ID          string  `json:"id" db:"id"`
	BidID       string  `json:"bid_id" db:"bid_id"`
	HostID      string  `json:"host_id" db:"host_id"`
	GuestID     string  `json:"guest_id" db:"guest_id"`
	Status      string  `json:"status" db:"status"`
	ScheduledAt *int64  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	MeetingLink *string `json:"meeting_link,omitempty" db:"meeting_link"`
	Notes       *string `json:"notes,omitempty" db:"notes"`
	CreatedAt   int64   `json:"created_at" db:"created_at"`
}

// Schema is a versioned JSON schema used to validate extraction output.
type Schema struct {
	ID          int64  `json:"id" db:"id"`
	Version     string `json:"version" db:"version"`
	Description string `json:"description,omitempty" db:"description"`
	SchemaJSON  string `json:"schema_json" db:"schema_json"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

// Template is a versioned prompt template for the extraction engine.
type Template struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Version     string  `json:"version" db:"version"`
	TemplateTxt string  `json:"template_text" db:"template_text"`
	SchemaVer   *string `json:"schema_version,omitempty" db:"schema_version"`
	Metadata    *string `json:"metadata,omitempty" db:"metadata"`
	Created     int64   `json:"created" db:"created"`
	Updated     int64   `json:"updated" db:"updated"`
}

type BackgroundJob struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}
