package domain

import "errors"

var (
	// ErrSectionNotFound is returned when an operation names a section id
	// absent from the document.
	ErrSectionNotFound = errors.New("section not found")

	// ErrBlockNotFound is returned when an operation names a block id absent
	// from its section.
	ErrBlockNotFound = errors.New("block not found")

	// ErrUnknownKind is returned for a block kind outside the catalog.
	ErrUnknownKind = errors.New("unknown block kind")

	// ErrInvalidPayloadKind is returned when a commit would attach a payload
	// whose kind differs from the target block's kind.
	ErrInvalidPayloadKind = errors.New("payload kind does not match block kind")

	// ErrTopicNotFound and ErrSubTopicNotFound mark stale tree node ids.
	ErrTopicNotFound    = errors.New("topic not found")
	ErrSubTopicNotFound = errors.New("subtopic not found")

	// ErrMutationInFlight is returned when a tree node already has a pending
	// remote call; mutations on one node are serialized by the caller.
	ErrMutationInFlight = errors.New("mutation already in flight for this node")

	// ErrSaveInFlight is returned when a document save is already running.
	ErrSaveInFlight = errors.New("save already in flight")
)
