package repository

import "github.com/givers/learnerfund/internal/docstore"

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = docstore.ErrNotFound

// ErrAlreadyClaimed is returned when a pool learner was taken by someone else
// between the pool query and the transfer.
var ErrAlreadyClaimed = docstore.ErrConflict

// ErrInvalidData is returned when a document cannot be encoded for storage.
var ErrInvalidData = docstore.ErrInvalidData
