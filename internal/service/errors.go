package service

import "errors"

var (
	// ErrNoCouriersAvailable is returned when a search round yields no
	// candidates. It drives escalation and is not surfaced to the job
	// creator as a failure.
	ErrNoCouriersAvailable = errors.New("no couriers available")

	// ErrOfferAlreadyResolved is returned when an accept or decline loses
	// the race to another resolution of the same offer or job.
	ErrOfferAlreadyResolved = errors.New("offer already resolved")

	// ErrOfferExpired is returned when a courier acts on an offer past its
	// expiry.
	ErrOfferExpired = errors.New("offer expired")

	// ErrOfferNotOwned is returned when a courier acts on an offer that
	// was not addressed to them.
	ErrOfferNotOwned = errors.New("offer not addressed to this courier")

	// ErrCourierHasActiveJob is returned when a courier already holds an
	// assigned job.
	ErrCourierHasActiveJob = errors.New("courier already has an active job")

	// ErrAssignmentExhausted is returned internally when every escalation
	// step has been consumed; it converts to a manual-assignment signal.
	ErrAssignmentExhausted = errors.New("automatic assignment exhausted")

	// ErrAssignmentInProgress is returned when another round is already
	// running for the job.
	ErrAssignmentInProgress = errors.New("assignment already in progress for job")

	// ErrJobNotOpen is returned when assignment is requested for a job in
	// a terminal or assigned state.
	ErrJobNotOpen = errors.New("job not open for assignment")

	// ErrInvalidCoordinates is returned when a latitude/longitude pair is
	// outside the valid range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrInvalidJobID is returned when job ID is empty.
	ErrInvalidJobID = errors.New("invalid job id")

	// ErrInvalidCourierID is returned when courier ID is empty.
	ErrInvalidCourierID = errors.New("invalid courier id")

	// ErrInvalidOfferID is returned when offer ID is empty.
	ErrInvalidOfferID = errors.New("invalid offer id")

	// ErrInvalidShiftState is returned when a shift state value is not
	// one of ACTIVE, PAUSED, ENDED.
	ErrInvalidShiftState = errors.New("invalid shift state")

	// ErrInvalidFee is returned when a job's fee components are negative.
	ErrInvalidFee = errors.New("invalid fee")

	// ErrInvalidCourierName is returned when a registration carries an
	// empty name.
	ErrInvalidCourierName = errors.New("invalid courier name")

	// ErrCourierExists is returned when a registration reuses a phone
	// number already on file.
	ErrCourierExists = errors.New("courier with this phone already exists")
)
