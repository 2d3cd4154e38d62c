package canvas

import "errors"

var (
	// ErrDuplicateID means an item id collided with an existing one. With
	// generated ids this is a programming error.
	ErrDuplicateID = errors.New("duplicate item id")
	// ErrNotFound means the targeted item is not in the sequence. The
	// sequence is left unchanged.
	ErrNotFound = errors.New("item not found")
	// ErrNotSelected means a gesture needs the target item to be selected.
	ErrNotSelected = errors.New("item is not selected")
	// ErrKindMismatch means a patch carried fields of the other variant.
	ErrKindMismatch   = errors.New("attribute does not apply to item kind")
	ErrInvalidColor   = errors.New("invalid color")
	ErrUnknownFont    = errors.New("unknown font family")
	ErrInvalidPatch   = errors.New("invalid item attributes")
	ErrInvalidCommand = errors.New("invalid command")
	// ErrUnsupportedImage means uploaded bytes are not a decodable image.
	ErrUnsupportedImage = errors.New("unsupported image")
)
