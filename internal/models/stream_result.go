package models

// StreamResult carries one item of a paged Bazarr listing, or the error that ended the listing
type StreamResult[T any] struct {
	Value T
	Err   error
}
