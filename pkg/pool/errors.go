package pool

import "github.com/ajitpratap0/reclaim/pkg/reclaimerrors"

// Sentinel errors. Errors returned by this package carry extra details and
// match these through errors.Is.
var (
	// ErrInvalidCapacity is returned by constructors given a capacity <= 0.
	ErrInvalidCapacity = reclaimerrors.New(reclaimerrors.ErrorTypeValidation, "capacity must be positive")
	// ErrLeaseReleased is raised when a released Lease is read.
	ErrLeaseReleased = reclaimerrors.New(reclaimerrors.ErrorTypeState, "lease already released")
	// ErrCreateFailed wraps an error returned by a policy's Create.
	ErrCreateFailed = reclaimerrors.New(reclaimerrors.ErrorTypePolicy, "create failed")
)

func invalidCapacity(name, which string, value int) error {
	return reclaimerrors.New(reclaimerrors.ErrorTypeValidation, ErrInvalidCapacity.Message).
		WithDetail("pool", name).
		WithDetail(which, value)
}

func createFailed(name string, cause error) error {
	return reclaimerrors.Wrap(cause, reclaimerrors.ErrorTypePolicy, ErrCreateFailed.Message).
		WithDetail("pool", name)
}

func leaseReleased() error {
	return reclaimerrors.New(reclaimerrors.ErrorTypeState, ErrLeaseReleased.Message)
}
