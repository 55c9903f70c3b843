package merchpilot

import (
	"context"
	"encoding/base64"
	"errors"
	"time"
)

// ConnectionStatus enumerates the possible states of a platform connection.
type ConnectionStatus string

const (
	ConnDisconnected ConnectionStatus = "disconnected"
	ConnConnecting   ConnectionStatus = "connecting"
	ConnConnected    ConnectionStatus = "connected"
	ConnRefreshing   ConnectionStatus = "refreshing"
	ConnFailed       ConnectionStatus = "failed"
	ConnError        ConnectionStatus = "connection_error"
)

// ErrPlatformNotFound is returned when a merchant has no record for the
// named platform.
var ErrPlatformNotFound = errors.New("platform not found")

// PlatformConnection is the persisted record of a merchant's link to one
// delivery platform. The orchestration core only requests updates to it;
// the persistence layer owns the schema.
type PlatformConnection struct {
	ID                int64            `json:"id"`
	MerchantID        int64            `json:"merchantId"`
	Name              string           `json:"name"`
	IsConnected       bool             `json:"isConnected"`
	Status            ConnectionStatus `json:"status"`
	Username          string           `json:"-"`
	EncryptedPassword string           `json:"-"`
	LastSync          *time.Time       `json:"lastSync,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// PlatformUpdate is a partial update: nil fields are left untouched.
// LastSync uses an explicit clear flag so "set", "clear" and "leave alone"
// are all expressible.
type PlatformUpdate struct {
	IsConnected      *bool
	Status           *ConnectionStatus
	Username         *string
	Password         *string // stored obfuscated, cleared when set to ""
	LastSync         *time.Time
	ClearLastSync    bool
	ClearCredentials bool
}

// PlatformStore is the persistence boundary for platform connections.
type PlatformStore interface {
	GetPlatform(ctx context.Context, merchantID int64, name string) (*PlatformConnection, error)
	GetPlatformsByMerchant(ctx context.Context, merchantID int64) ([]PlatformConnection, error)
	CreatePlatform(ctx context.Context, conn *PlatformConnection) (*PlatformConnection, error)
	UpdatePlatform(ctx context.Context, id int64, update PlatformUpdate) error
}

// obfuscatePassword makes stored credentials non-obvious at rest. This is
// reversible on purpose: refresh flows replay the original password into
// the login instruction.
func obfuscatePassword(password string) string {
	return base64.StdEncoding.EncodeToString([]byte(password))
}

func revealPassword(stored string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
