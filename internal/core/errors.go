package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNilStatus is returned when a component receives no Status to work on.
	ErrNilStatus = errors.New("status is required")
	// ErrEmptySubject is returned when resolution is asked for an empty subject.
	ErrEmptySubject = errors.New("subject is required")
)

// ContractError reports a caller bug detected at a component boundary.
type ContractError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// NewContractError builds a ContractError wrapping a sentinel.
func NewContractError(op string, err error) error {
	return &ContractError{Op: op, Reason: "contract violation", Err: err}
}
