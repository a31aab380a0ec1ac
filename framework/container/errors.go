package container

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is:
//
//	if errors.Is(err, container.ErrProviderNotFound) { ... }
var (
	ErrInvalidProvider    = errors.New("invalid provider definition")
	ErrInvalidClass       = errors.New("invalid class")
	ErrInvalidConstructor = errors.New("invalid constructor arity")
	ErrCyclicAlias        = errors.New("cyclic alias")
	ErrProviderNotFound   = errors.New("provider not found")
	ErrServiceNotCreated  = errors.New("service not created")
)

// Error is the structured error returned by the container.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Token is the token the error is about, when there is one.
	Token Token
	// Cycle holds the alias path for ErrCyclicAlias, first node repeated last.
	Cycle []Token
	// Cause is the failure a factory returned, for ErrServiceNotCreated.
	Cause error

	msg string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func errInvalidProvider(p any) *Error {
	return &Error{
		Kind: ErrInvalidProvider,
		msg: fmt.Sprintf("An invalid provider definition has been detected; "+
			"only instances of Provider are allowed, got: [%s].", describeProvider(p)),
	}
}

func errInvalidClass(class any) *Error {
	return &Error{
		Kind: ErrInvalidClass,
		msg:  fmt.Sprintf("Unable to instantiate class (%s is not constructable).", Stringify(class)),
	}
}

func errInvalidConstructor(class any) *Error {
	return &Error{
		Kind: ErrInvalidConstructor,
		msg: fmt.Sprintf("An invalid class, \"%s\", was provided; "+
			"expected a default (no-argument) constructor.", Stringify(class)),
	}
}

func errProviderNotFound(token Token) *Error {
	return &Error{
		Kind:  ErrProviderNotFound,
		Token: token,
		msg: fmt.Sprintf("No provider for \"%s\" was found; "+
			"are you certain you provided it during configuration?", Stringify(token)),
	}
}

func errServiceNotCreated(token Token, cause error) *Error {
	return &Error{
		Kind:  ErrServiceNotCreated,
		Token: token,
		Cause: cause,
		msg:   fmt.Sprintf("Service for \"%s\" could not be created. Reason: %s", Stringify(token), cause.Error()),
	}
}

// errCyclicAlias reports path, which starts and ends on the same token.
func errCyclicAlias(path []Token) *Error {
	parts := make([]string, len(path))
	for i, t := range path {
		parts[i] = Stringify(t)
	}
	return &Error{
		Kind:  ErrCyclicAlias,
		Token: path[0],
		Cycle: path,
		msg:   "A cycle has been detected within the aliases definitions:\n " + strings.Join(parts, " -> ") + "\n",
	}
}
