package model

import (
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credential is a stored third-party integration grant.
// AppID is set when the grant belongs to a specific external app integration.
type Credential struct {
	ID     string
	UserID string
	Type   string
	AppID  *string
	Key    []byte
}

var ErrNoAccessToken = errors.New("credential key has no access token")

// Token decodes the key blob written by the connect flow.
func (c *Credential) Token() (*oauth2.Token, error) {
	if len(c.Key) == 0 {
		return nil, ErrNoAccessToken
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(c.Key, tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	return tok, nil
}

// App returns the app id or "" when the credential is not app scoped.
func (c *Credential) App() string {
	if c.AppID == nil {
		return ""
	}
	return *c.AppID
}

type ApiKey struct {
	ID         string
	UserID     string
	AppID      *string
	HashedKey  string
	Note       string
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

type Webhook struct {
	ID            string
	UserID        string
	AppID         *string
	SubscriberURL string
	EventTriggers []string
	Active        bool
	CreatedAt     time.Time
}

type BookingStatus string

const (
	BookingAccepted  BookingStatus = "ACCEPTED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingPending   BookingStatus = "PENDING"
	BookingRejected  BookingStatus = "REJECTED"
)

type Booking struct {
	ID              string
	UserID          string
	Title           string
	StartTime       time.Time
	EndTime         time.Time
	Paid            bool
	Status          BookingStatus
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Payment struct {
	ID        string
	BookingID *string
	Amount    int64
	Currency  string
	Success   bool
	CreatedAt time.Time
}

// BookingReference points a booking at an external calendar/video record.
type BookingReference struct {
	ID        string
	BookingID string
	Type      string
	UID       string
}
