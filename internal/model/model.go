package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Locale       string    `json:"locale"`
	Persona      string    `json:"persona,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AppointmentType struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active"`
	SortOrder       int       `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (t *AppointmentType) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

type Booking struct {
	ID                string    `json:"id"`
	AppointmentTypeID string    `json:"appointment_type_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone,omitempty"`
	Company           string    `json:"company,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Locale            string    `json:"locale"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CanTransition reports whether an admin may move a booking from one status to another.
func CanTransition(from, to string) bool {
	switch from {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingCancelled
	}
	return false
}

type AnalyticsEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	SessionID  string          `json:"session_id,omitempty"`
	VisitorID  string          `json:"visitor_id,omitempty"`
	Path       string          `json:"path"`
	Referrer   string          `json:"referrer,omitempty"`
	Locale     string          `json:"locale,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type AnalyticsSession struct {
	ID          string    `json:"id"`
	VisitorID   string    `json:"visitor_id"`
	LandingPath string    `json:"landing_path"`
	Referrer    string    `json:"referrer,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Locale      string    `json:"locale,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	EventCount  int       `json:"event_count"`
}

type CountByKey struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type AnalyticsSummary struct {
	From           time.Time    `json:"from"`
	To             time.Time    `json:"to"`
	TotalEvents    int64        `json:"total_events"`
	Sessions       int64        `json:"sessions"`
	UniqueVisitors int64        `json:"unique_visitors"`
	ByType         []CountByKey `json:"by_type"`
	TopPaths       []CountByKey `json:"top_paths"`
}

type LandingPage struct {
	ID              string          `json:"id"`
	Locale          string          `json:"locale"`
	Slug            string          `json:"slug"`
	Persona         string          `json:"persona,omitempty"`
	Title           string          `json:"title"`
	MetaTitle       string          `json:"meta_title"`
	MetaDescription string          `json:"meta_description"`
	Body            json.RawMessage `json:"body,omitempty"`
	Published       bool            `json:"published"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type BlogPost struct {
	ID          string     `json:"id"`
	Locale      string     `json:"locale"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt"`
	Body        string     `json:"body"`
	CoverURL    string     `json:"cover_url,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type MediaAsset struct {
	ID          string    `json:"id"`
	StorageKey  string    `json:"storage_key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	AltText     string    `json:"alt_text,omitempty"`
	UploadedBy  string    `json:"uploaded_by"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const DataSourceShopify = "shopify"

type DataSource struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	ShopDomain   string     `json:"shop_domain"`
	AccessToken  string     `json:"-"`
	Scopes       string     `json:"scopes"`
	Status       string     `json:"status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	ItemCount    int        `json:"item_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type ShopProduct struct {
	DataSourceID string          `json:"data_source_id"`
	ExternalID   string          `json:"external_id"`
	Title        string          `json:"title"`
	Handle       string          `json:"handle"`
	Price        decimal.Decimal `json:"price"`
	Status       string          `json:"status"`
	SyncedAt     time.Time       `json:"synced_at"`
}

type SyncResult struct {
	Total    int       `json:"total"`
	Success  int       `json:"success"`
	Failed   int       `json:"failed"`
	Errors   []string  `json:"errors,omitempty"`
	SyncedAt time.Time `json:"synced_at"`
}

type OpsStats struct {
	Profiles       int64            `json:"profiles"`
	Admins         int64            `json:"admins"`
	BookingsStatus map[string]int64 `json:"bookings_by_status"`
	EventsLast24h  int64            `json:"events_last_24h"`
}
