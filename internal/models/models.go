package models

import (
	"time"
)

// Model is a database-backed record with a UUID, timestamps and validation.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Criteria filters a [Repository.List] call. Keys are repository specific; an empty map lists
// everything.
type Criteria = map[string]any

// Appender is the write half of a repository, enough for code that only records history.
type Appender[T Model] interface {
	Create(model T) error
}

// Repository is CRUD access to one model type.
type Repository[T Model] interface {
	Appender[T]
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error // soft delete where the table supports it
	List(criteria Criteria) ([]T, error)
}
