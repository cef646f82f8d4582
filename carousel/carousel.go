// Package carousel reconstructs the state of a remote, uncontrolled image
// carousel from rendered-DOM snapshots and drives it with synthetic gestures.
//
// Nothing here talks to rod directly: components read HTML snapshots through
// the Page interface and gesture through the Gesturer interface, which keeps
// the whole package testable against canned markup.
package carousel

import "context"

// Page provides read access to the live DOM as a rendered HTML snapshot.
// Implemented by browser.Session.
type Page interface {
	HTML(ctx context.Context) (string, error)
}

// Gesturer issues one synthetic pointer tap at viewport screen fractions.
// Implemented by browser.Session.
type Gesturer interface {
	Tap(ctx context.Context, xFrac, yFrac float64) error
}
