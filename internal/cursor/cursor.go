package cursor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Version is bumped whenever the payload layout changes.
const Version = 1

// ErrInvalidCursor is returned for tokens that cannot be decoded.
var ErrInvalidCursor = errors.New("invalid scroll cursor")

// Mode tells which executor issued a cursor.
type Mode string

const (
	ModeList   Mode = "list"
	ModeSearch Mode = "search"
)

// Position is a result's place in a descending ordering: by Primary, then
// Secondary, then ID. It is position based, so a cursor survives index changes.
type Position struct {
	Primary   float64 `json:"p"`
	Secondary int64   `json:"s"`
	ID        uint32  `json:"i"`
}

// Before reports whether p sorts ahead of other.
func (p Position) Before(other Position) bool {
	if p.Primary != other.Primary {
		return p.Primary > other.Primary
	}
	if p.Secondary != other.Secondary {
		return p.Secondary > other.Secondary
	}
	return p.ID > other.ID
}

// Cursor carries everything needed to continue a query on any node.
type Cursor struct {
	Version    int             `json:"v"`
	Mode       Mode            `json:"m"`
	Generation uint64          `json:"g"`
	SortOrder  string          `json:"o,omitempty"`
	Query      json.RawMessage `json:"q"`
	After      Position        `json:"a"`
}

// Encode serializes c as URL-safe base64 JSON.
func Encode(c Cursor) (string, error) {
	c.Version = Version
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode scroll cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a token produced by Encode and checks it was issued for mode.
func Decode(token string, mode Mode) (*Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", ErrInvalidCursor)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: malformed payload", ErrInvalidCursor)
	}
	if c.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidCursor, c.Version)
	}
	if c.Mode != mode {
		return nil, fmt.Errorf("%w: issued by %s, not %s", ErrInvalidCursor, c.Mode, mode)
	}
	if len(c.Query) == 0 {
		return nil, fmt.Errorf("%w: missing query", ErrInvalidCursor)
	}
	return &c, nil
}
