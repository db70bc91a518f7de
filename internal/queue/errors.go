package queue

import "errors"

var (
	ErrEmptyPhone   = errors.New("phone must not be empty")
	ErrEmptyMessage = errors.New("message must not be empty")
	ErrBatchSize    = errors.New("batch size must be > 0")
	ErrNotFound     = errors.New("queue item not found")
)
