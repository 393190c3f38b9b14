// Package client drives the editing protocol from the client side and calls
// the registration service.
//
// # Requests
//
// Every command goes through one request/reply primitive. A share notice
// (-6) that precedes the real status is passed to the notice handler and the
// next status is read. A contention status (-8) repeats the identical
// request up to MaxRetries times before ErrContention is returned.
//
// # Selection
//
// show and edit first resolve the document name on the server. When several
// documents share the name the Chooser picks one by author; the choice is
// remembered across contention retries.
//
// # Errors
//
// Negative statuses are returned as *StatusError; use Code to extract them.
// Transport problems surface as ErrUnavailable or as the underlying error.
package client
