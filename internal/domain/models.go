// Package domain defines the persistence models for user accounts, lookup
// kind configuration, and lookup requests. These types are mapped with GORM
// and form the core data layer of the lookup bot.
package domain

import (
	"time"
)

// User is a chat account holding a prepaid credit balance.
//
// Fields:
//   - ID: stable external identifier (chat/account id); primary key.
//   - CreditsTotal: credits granted so far (raised only by administrative top-ups).
//   - CreditsUsed: credits consumed by successful chargeable lookups.
//   - LastLookupAt: time of the most recent charge, nil until the first one.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//
// CreditsUsed may exceed CreditsTotal after a concurrent race; Available
// clamps the derived balance at zero.
type User struct {
	ID           string     `json:"id"             gorm:"type:varchar(64);primaryKey"`
	CreditsTotal int64      `json:"credits_total"  gorm:"not null;default:0"`
	CreditsUsed  int64      `json:"credits_used"   gorm:"not null;default:0"`
	LastLookupAt *time.Time `json:"last_lookup_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Available returns max(CreditsTotal - CreditsUsed, 0).
func (u User) Available() int64 {
	if d := u.CreditsTotal - u.CreditsUsed; d > 0 {
		return d
	}
	return 0
}

// KindConfig holds the price and availability of one lookup kind.
// TimeoutSeconds overrides the global polling deadline when > 0.
type KindConfig struct {
	Kind           Kind      `json:"kind"            gorm:"primaryKey;autoIncrement:false"`
	Price          int64     `json:"price"           gorm:"not null;check:price >= 0"`
	Enabled        bool      `json:"enabled"         gorm:"not null;default:true"`
	TimeoutSeconds int       `json:"timeout_seconds" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for KindConfig.
func (KindConfig) TableName() string { return "lookup_kinds" }

// Timeout returns the configured deadline, or def when unset.
func (k KindConfig) Timeout(def time.Duration) time.Duration {
	if k.TimeoutSeconds > 0 {
		return time.Duration(k.TimeoutSeconds) * time.Second
	}
	return def
}

// Lookup is the audit row for one lookup attempt.
//
// Fields:
//   - ID: locally generated sequence id.
//   - UserID: owning user (FK to users).
//   - Kind: lookup kind code.
//   - Params: input parameters as JSON text.
//   - Price: credits captured from KindConfig at creation time.
//   - State: pending, success, error or no_data (enforced by DB constraint).
//   - RawPayload: terminal remote payload, when one was observed.
//   - ErrorDetail: internal failure detail; never shown to end users.
//   - CreatedAt / ResolvedAt: creation and terminal-transition timestamps.
type Lookup struct {
	ID          uint       `json:"id"           gorm:"primaryKey;autoIncrement"`
	UserID      string     `json:"user_id"      gorm:"type:varchar(64);not null;index:idx_user_lookups,priority:1"`
	Kind        Kind       `json:"kind"         gorm:"not null"`
	Params      string     `json:"params"       gorm:"type:text;not null"`
	Price       int64      `json:"price"        gorm:"not null"`
	State       State      `json:"state"        gorm:"type:varchar(16);not null;index;check:state IN ('pending','success','error','no_data')"`
	RawPayload  string     `json:"raw_payload,omitempty"  gorm:"type:text"`
	ErrorDetail string     `json:"error_detail,omitempty" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at"   gorm:"index:idx_user_lookups,priority:2"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`

	// User owns the lookup; lookups are retained as an audit trail.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Lookup.
func (Lookup) TableName() string { return "lookups" }
