// Copyright © 2018 One Concern

// Package status declares error constants returned by
// content providers, indexers and the index facade.
//
// NOTE: such constants are located in a separate package to avoid
// creating undue cyclical dependencies between pkg/provider and its
// implementations.
package status

import (
	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
)

var (
	// ErrNotFound indicates that the requested content or key is absent
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an attempt to add a key which is already present
	ErrAlreadyExists = errors.New("already exists")

	// ErrCorruptedContent indicates that retrieved bytes do not match their identifier,
	// or that a tree node cannot be decoded
	ErrCorruptedContent = errors.New("corrupted content")

	// ErrUnexpectedContent indicates that a backend holds a different payload under an identifier
	ErrUnexpectedContent = errors.New("unexpected content")

	// ErrUnwriteNotSupported indicates that the provider cannot remove content
	ErrUnwriteNotSupported = errors.New("unwrite not supported")

	// ErrInvalid indicates a malformed key or argument. It matches identifier.ErrInvalidIdentifier.
	ErrInvalid = errors.New("invalid argument").Including(identifier.ErrInvalidIdentifier)

	// ErrIO indicates a transport or storage failure. Such errors may be retried.
	ErrIO = errors.New("i/o error")

	// ErrConfiguration indicates a malformed provider configuration
	ErrConfiguration = errors.New("configuration error")
)
