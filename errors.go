package keel

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	// CodeInvalidFactory indicates a factory function is invalid or nil
	CodeInvalidFactory = "INVALID_FACTORY"

	// CodeInvalidDescriptor indicates a descriptor failed validation
	CodeInvalidDescriptor = "INVALID_DESCRIPTOR"

	// CodeServiceNotFound indicates no instance is registered under a name
	CodeServiceNotFound = "SERVICE_NOT_FOUND"

	// CodeServiceNotRegistered indicates the core was asked for a service it never registered
	CodeServiceNotRegistered = "SERVICE_NOT_REGISTERED"

	// CodeMissingDependency indicates a required dependency resolved to nothing
	CodeMissingDependency = "MISSING_DEPENDENCY"

	// CodeEmptyInstanceList indicates a multi-entry name produced no usable instance
	CodeEmptyInstanceList = "EMPTY_INSTANCE_LIST"

	// CodeServiceError indicates an error occurred during service operation
	CodeServiceError = "SERVICE_ERROR"

	// CodeCircularDependency indicates a circular dependency was detected
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"

	// CodeTypeMismatch indicates a value could not be assigned to its target type
	CodeTypeMismatch = "TYPE_MISMATCH"

	// CodeContainerClosed indicates an operation on a closed container
	CodeContainerClosed = "CONTAINER_CLOSED"

	// CodeAlreadyInitialized indicates the core was bootstrapped twice
	CodeAlreadyInitialized = "ALREADY_INITIALIZED"

	// CodeInvalidArgument indicates a required bootstrap argument was missing
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// CodeBootstrapFailed indicates the core is unusable after a failed bootstrap
	CodeBootstrapFailed = "BOOTSTRAP_FAILED"

	// CodeNotInitialized indicates a core operation that needs a completed bootstrap
	CodeNotInitialized = "NOT_INITIALIZED"

	// CodeEngineUnbound indicates an Engine used without a container
	CodeEngineUnbound = "ENGINE_UNBOUND"
)

// Error is the coded error returned throughout keel. Two errors match under
// errors.Is when their codes are equal, so the sentinels below can be used
// for checks.
type Error = errs.Error

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// ErrInvalidFactory is returned when a nil factory is provided.
var ErrInvalidFactory = errs.NewError(CodeInvalidFactory, "factory cannot be nil", nil)

// ErrInvalidDescriptorSentinel is a sentinel error for descriptor validation failures.
var ErrInvalidDescriptorSentinel = errs.NewError(CodeInvalidDescriptor, "invalid descriptor", nil)

// ErrServiceNotFoundSentinel is a sentinel error for a missing instance.
var ErrServiceNotFoundSentinel = errs.NewError(CodeServiceNotFound, "service not found", nil)

// ErrServiceNotRegisteredSentinel is a sentinel error for services the core never registered.
var ErrServiceNotRegisteredSentinel = errs.NewError(CodeServiceNotRegistered, "service not registered", nil)

// ErrMissingDependencySentinel is a sentinel error for dependencies that resolved to nothing.
var ErrMissingDependencySentinel = errs.NewError(CodeMissingDependency, "missing dependency", nil)

// ErrEmptyInstanceListSentinel is a sentinel error for multi-entry names without instances.
var ErrEmptyInstanceListSentinel = errs.NewError(CodeEmptyInstanceList, "empty instance list", nil)

// ErrServiceErrorSentinel is a sentinel error for failed factories and hooks.
var ErrServiceErrorSentinel = errs.NewError(CodeServiceError, "service error", nil)

// ErrCircularDependencySentinel is a sentinel error for circular dependency (for error checking).
var ErrCircularDependencySentinel = errs.NewError(CodeCircularDependency, "circular dependency", nil)

// ErrTypeMismatchSentinel is a sentinel error for type mismatch during resolution.
var ErrTypeMismatchSentinel = errs.NewError(CodeTypeMismatch, "type mismatch", nil)

// ErrContainerClosed is returned by every operation on a closed container.
var ErrContainerClosed = errs.NewError(CodeContainerClosed, "container is closed", nil)

// ErrAlreadyInitialized is returned when Bootstrap is called twice.
var ErrAlreadyInitialized = errs.NewError(CodeAlreadyInitialized, "core container already initialized", nil)

// ErrInvalidArgumentSentinel is a sentinel error for missing bootstrap arguments.
var ErrInvalidArgumentSentinel = errs.NewError(CodeInvalidArgument, "invalid argument", nil)

// ErrBootstrapFailedSentinel is a sentinel error for a core whose bootstrap failed.
var ErrBootstrapFailedSentinel = errs.NewError(CodeBootstrapFailed, "bootstrap failed", nil)

// ErrNotInitialized is returned by core operations that need a completed bootstrap.
var ErrNotInitialized = errs.NewError(CodeNotInitialized, "core container is not initialized", nil)

// ErrEngineUnbound is returned by an Engine that has no container to install into.
var ErrEngineUnbound = errs.NewError(CodeEngineUnbound, "engine is not bound to a container", nil)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

// ErrInvalidDescriptor creates an error for a descriptor that failed validation
func ErrInvalidDescriptor(serviceName, reason string) *errs.Error {
	return errs.NewError(
		CodeInvalidDescriptor,
		fmt.Sprintf("invalid descriptor for '%s': %s", serviceName, reason),
		nil,
	).WithContext("service", serviceName).(*errs.Error)
}

// ErrServiceNotFound creates an error for a name with no registered instance
func ErrServiceNotFound(serviceName string) *errs.Error {
	return errs.NewError(
		CodeServiceNotFound,
		fmt.Sprintf("missing instance: service '%s' not found", serviceName),
		nil,
	).WithContext("service", serviceName).(*errs.Error)
}

// ErrServiceNotRegistered creates the core-level error for a name that was never registered
func ErrServiceNotRegistered(serviceName string) *errs.Error {
	return errs.NewError(
		CodeServiceNotRegistered,
		fmt.Sprintf("%s is not registered", serviceName),
		nil,
	).WithContext("service", serviceName).(*errs.Error)
}

// ErrMissingDependency creates an error for a dependency that resolved to nothing
func ErrMissingDependency(serviceName, field, key string) *errs.Error {
	return errs.NewError(
		CodeMissingDependency,
		fmt.Sprintf("dependency '%s' for field '%s' of '%s' cannot be null", key, field, serviceName),
		nil,
	).WithContext("service", serviceName).
		WithContext("field", field).
		WithContext("dependency", key).(*errs.Error)
}

// ErrEmptyInstanceList creates an error for a multi-entry name that produced no instance
func ErrEmptyInstanceList(serviceName string) *errs.Error {
	return errs.NewError(
		CodeEmptyInstanceList,
		fmt.Sprintf("empty instance list for '%s'", serviceName),
		nil,
	).WithContext("service", serviceName).(*errs.Error)
}

// NewServiceError creates an error for service operations
func NewServiceError(serviceName, operation string, cause error) *errs.Error {
	return errs.NewError(
		CodeServiceError,
		fmt.Sprintf("service '%s' error during %s", serviceName, operation),
		cause,
	).WithContext("service", serviceName).
		WithContext("operation", operation).(*errs.Error)
}

// ErrCircularDependency creates an error for circular dependency detection.
// The chain lists the resolution stack followed by the offending name.
func ErrCircularDependency(chain []string) *errs.Error {
	cycle := append([]string(nil), chain...)

	return errs.NewError(
		CodeCircularDependency,
		"circular dependency detected: "+strings.Join(cycle, " -> "),
		nil,
	).WithContext("cycle", cycle).(*errs.Error)
}

// ErrTypeMismatch creates an error for type mismatch during resolution
func ErrTypeMismatch(serviceName string, actual any) *errs.Error {
	return errs.NewError(
		CodeTypeMismatch,
		fmt.Sprintf("service '%s' type mismatch: got %T", serviceName, actual),
		nil,
	).WithContext("service", serviceName).
		WithContext("actual_type", fmt.Sprintf("%T", actual)).(*errs.Error)
}

// ErrFieldMismatch creates an error for a resolved value that does not fit its field
func ErrFieldMismatch(serviceName, field string, want reflect.Type, actual any) *errs.Error {
	return errs.NewError(
		CodeTypeMismatch,
		fmt.Sprintf("service '%s' field '%s' of type %s cannot hold %T", serviceName, field, want, actual),
		nil,
	).WithContext("service", serviceName).
		WithContext("field", field).
		WithContext("actual_type", fmt.Sprintf("%T", actual)).(*errs.Error)
}

// ErrInvalidArgument creates an error for a missing bootstrap argument
func ErrInvalidArgument(argument string) *errs.Error {
	return errs.NewError(
		CodeInvalidArgument,
		fmt.Sprintf("missing required dependency: %s", argument),
		nil,
	).WithContext("argument", argument).(*errs.Error)
}

// ErrBootstrapFailed creates the error returned by a core whose bootstrap already failed
func ErrBootstrapFailed(cause error) *errs.Error {
	return errs.NewError(CodeBootstrapFailed, "core bootstrap previously failed", cause)
}

// CycleOf returns the dependency chain carried by a circular dependency error.
func CycleOf(err error) ([]string, bool) {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return nil, false
		}

		if e.Code == CodeCircularDependency {
			cycle, ok := e.Ctx["cycle"].([]string)

			return cycle, ok
		}

		err = e.Err
	}

	return nil, false
}
