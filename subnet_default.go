//go:build !linux

package main

import (
	"github.com/picolight/provd/accesspoint"
)

// Address assignment and leasing only works on Linux. Elsewhere clients
// configure themselves manually, which is fine for development.
func newLeaseSubnet(ifname string) accesspoint.Subnet {
	return accesspoint.NoopSubnet{}
}
