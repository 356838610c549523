package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrOfferResolved is returned by the acceptance commit when the offer
	// has already reached a terminal state.
	ErrOfferResolved = errors.New("offer already resolved")

	// ErrOfferExpired is returned by the acceptance commit when the offer
	// is past its expiry.
	ErrOfferExpired = errors.New("offer expired")

	// ErrCourierEngaged is returned by the acceptance commit when the
	// courier already holds an assigned job.
	ErrCourierEngaged = errors.New("courier already holds an assigned job")
)
