package relay

import (
	"errors"
	"fmt"
)

// ErrAuthentication and ErrMessaging are the sentinel errors sessions use
// when classifying delivery failures. Authentication failures are a subset of
// messaging failures that additionally signal "every further recipient will
// fail with these credentials".
var (
	ErrAuthentication = errors.New("relay authentication failed")
	ErrMessaging      = errors.New("relay messaging error")
)

// WrapAuthentication annotates an error as a credentials rejection.
func WrapAuthentication(err error) error {
	if err == nil {
		return ErrAuthentication
	}
	return fmt.Errorf("%w: %v", ErrAuthentication, err)
}

// WrapMessaging annotates an error as a relay-level delivery failure.
func WrapMessaging(err error) error {
	if err == nil {
		return ErrMessaging
	}
	return fmt.Errorf("%w: %v", ErrMessaging, err)
}
