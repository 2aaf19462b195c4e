package canvas

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidComponentID indicates that a component identifier is empty or exceeds storage bounds.
	ErrInvalidComponentID = errors.New("canvas: invalid component id")
	// ErrInvalidPageID indicates that a page identifier is empty or exceeds storage bounds.
	ErrInvalidPageID = errors.New("canvas: invalid page id")
	// ErrInvalidRoomCode indicates that a room code is empty or exceeds storage bounds.
	ErrInvalidRoomCode = errors.New("canvas: invalid room code")
)

func validateIdentifier(rawInput string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", sentinel)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", sentinel, maxIdentifierLength)
	}
	return trimmed, nil
}

// ComponentID represents a validated component identifier.
type ComponentID string

// NewComponentID validates raw input and returns a ComponentID.
func NewComponentID(rawInput string) (ComponentID, error) {
	value, err := validateIdentifier(rawInput, ErrInvalidComponentID)
	if err != nil {
		return "", err
	}
	return ComponentID(value), nil
}

// String returns the underlying string identifier.
func (id ComponentID) String() string {
	return string(id)
}

// PageID represents a validated page identifier.
type PageID string

// NewPageID validates raw input and returns a PageID.
func NewPageID(rawInput string) (PageID, error) {
	value, err := validateIdentifier(rawInput, ErrInvalidPageID)
	if err != nil {
		return "", err
	}
	return PageID(value), nil
}

// String returns the underlying string identifier.
func (id PageID) String() string {
	return string(id)
}

// RoomCode identifies a collaboration room.
type RoomCode string

// NewRoomCode validates raw input and returns a RoomCode.
func NewRoomCode(rawInput string) (RoomCode, error) {
	value, err := validateIdentifier(rawInput, ErrInvalidRoomCode)
	if err != nil {
		return "", err
	}
	return RoomCode(value), nil
}

// String returns the underlying room code.
func (code RoomCode) String() string {
	return string(code)
}

// IDProvider issues fresh identifiers for pages and components.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
