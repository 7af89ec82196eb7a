// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import "errors"

// ErrCommitConflict marks a commit failure caused by a concurrent group
// change (e.g. a rebalance in progress). Commits failing with it are
// retried exactly once per flush.
var ErrCommitConflict = errors.New("queue: commit conflict")

// errPublishRejected is reported when a dead-letter publisher declines a
// message without returning an error of its own.
var errPublishRejected = errors.New("queue: dead-letter publisher rejected message")

// ValidationError marks a message as invalid input. Validation failures
// are never retried: the message is routed directly to the dead letter
// sink on the first attempt.
type ValidationError struct {
	Err error
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return "queue: invalid message: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e ValidationError) Unwrap() error {
	return e.Err
}

// PermanentError marks a message payload as structurally unprocessable.
// Like validation failures it short circuits the retry loop, but it is
// counted separately since it usually signals a producer side defect.
type PermanentError struct {
	Err error
}

// Error implements the error interface.
func (e PermanentError) Error() string {
	return "queue: unprocessable message: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e PermanentError) Unwrap() error {
	return e.Err
}

type errorClass int

const (
	classTransient errorClass = iota
	classValidation
	classPermanent
)

func classify(err error) errorClass {
	var verr ValidationError
	if errors.As(err, &verr) {
		return classValidation
	}

	var perr PermanentError
	if errors.As(err, &perr) {
		return classPermanent
	}

	return classTransient
}
