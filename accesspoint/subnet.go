package accesspoint

import (
	"github.com/picolight/provd/radio"
)

// Subnet prepares the local network side of the portal: a static address on
// the AP interface and an address-leasing service for connecting clients.
// Both are conveniences; the portal works with manually configured clients
// when they fail.
type Subnet interface {
	Configure(identity radio.APIdentity) error
	Release() error
}

// NoopSubnet is used when no subnet management is wanted, such as with the
// mock radio.
type NoopSubnet struct{}

// Compile time check for interface compatibility
var _ Subnet = (*NoopSubnet)(nil)

func (NoopSubnet) Configure(identity radio.APIdentity) error {
	return nil
}

func (NoopSubnet) Release() error {
	return nil
}
