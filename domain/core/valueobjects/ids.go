package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// ListID is a value object representing a unique todo list identifier
// Value objects are immutable and have no identity beyond their value
type ListID struct {
	value string
}

// NewListID creates a new random ListID
func NewListID() ListID {
	return ListID{value: uuid.New().String()}
}

// NewListIDFromString creates a ListID from an existing string
func NewListIDFromString(id string) (ListID, error) {
	if id == "" {
		return ListID{}, errors.New("list ID cannot be empty")
	}
	if !isValidUUID(id) {
		return ListID{}, errors.New("list ID must be a valid UUID")
	}
	return ListID{value: id}, nil
}

// String returns the string representation of the ListID
func (id ListID) String() string {
	return id.value
}

// Equals checks if two ListIDs are equal
func (id ListID) Equals(other ListID) bool {
	return id.value == other.value
}

// IsZero checks if the ListID is the zero value
func (id ListID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ListID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ListID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ListID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// ItemID is a value object representing a unique todo item identifier
type ItemID struct {
	value string
}

// NewItemID creates a new random ItemID
func NewItemID() ItemID {
	return ItemID{value: uuid.New().String()}
}

// NewItemIDFromString creates an ItemID from an existing string
func NewItemIDFromString(id string) (ItemID, error) {
	if id == "" {
		return ItemID{}, errors.New("item ID cannot be empty")
	}
	if !isValidUUID(id) {
		return ItemID{}, errors.New("item ID must be a valid UUID")
	}
	return ItemID{value: id}, nil
}

// String returns the string representation of the ItemID
func (id ItemID) String() string {
	return id.value
}

// Equals checks if two ItemIDs are equal
func (id ItemID) Equals(other ItemID) bool {
	return id.value == other.value
}

// IsZero checks if the ItemID is the zero value
func (id ItemID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ItemID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ItemID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ItemID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
