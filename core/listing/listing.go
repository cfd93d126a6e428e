// Package listing holds the marketplace directory: what villagers publish
// and what browsers see.
package listing

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Visibility controls how a listing's contact number may leave the system.
type Visibility string

const (
	// VisibilityHidden keeps the contact number inside the system; only a
	// routing token is ever rendered.
	VisibilityHidden Visibility = "HIDDEN"
	// VisibilityGatewayRouted exposes a routing token the gateway operator
	// can bridge to the real number.
	VisibilityGatewayRouted Visibility = "GATEWAY_ROUTED"
	// VisibilityPublic exposes the raw contact number to browsers.
	VisibilityPublic Visibility = "PUBLIC"
)

// Transport subcategories. Legacy rows predating the split carry the bare
// parent category and surface under Pickups when browsing.
const (
	CategoryTransport        = "Transport"
	CategoryTransportRiders  = "Transport - Riders"
	CategoryTransportPickups = "Transport - Pickups"
	CategoryTransportLorries = "Transport - Lorries"
)

// Listing is one published directory entry.
type Listing struct {
	ID            string     `json:"id" db:"id"`
	Village       string     `json:"village" db:"village"`
	Category      string     `json:"category" db:"category"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	ContactNumber string     `json:"contact_number" db:"contact_number"`
	Visibility    Visibility `json:"visibility" db:"visibility"`
	RoutingToken  string     `json:"routing_token" db:"routing_token"`
	OwnerCallerID string     `json:"owner_caller_id" db:"owner_caller_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// NewID returns a fresh ULID string, used for listing IDs and routing tokens.
func NewID() string {
	return ulid.Make().String()
}

// NormalizePhone strips the leading plus and interior whitespace so stored
// numbers compare and route consistently.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "+")
	return strings.ReplaceAll(trimmed, " ", "")
}

// CategoryMatches reports whether a stored category belongs under the
// requested browse category, honouring the legacy bare Transport rows.
func CategoryMatches(stored, requested string) bool {
	if stored == requested {
		return true
	}
	return stored == CategoryTransport && requested == CategoryTransportPickups
}
