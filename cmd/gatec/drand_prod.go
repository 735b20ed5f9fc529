//go:build !testmode

package main

import (
	"gate/internal/timeauth"
)

// newDefaultDrandAuthority creates a DrandAuthority for production use.
func newDefaultDrandAuthority() *timeauth.DrandAuthority {
	return timeauth.NewDrandAuthority()
}
