package services

import "errors"

// ErrInvalidCategory is returned when a write references a category
// that is missing or inactive. Handlers surface it as a client error,
// not a foreign-key violation.
var ErrInvalidCategory = errors.New("category missing or inactive")

// ErrCategoryCycle is returned when a category update would make the
// category its own ancestor.
var ErrCategoryCycle = errors.New("category cycle")

// ErrNotOwner is returned when a seller mutates a product owned by
// someone else.
var ErrNotOwner = errors.New("not the owning seller")

// ErrStorageUnavailable is returned when no object-storage backend is
// configured for image uploads.
var ErrStorageUnavailable = errors.New("object storage unavailable")
