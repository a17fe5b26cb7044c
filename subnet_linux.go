package main

import (
	"github.com/picolight/provd/accesspoint"
	log "github.com/sirupsen/logrus"
)

func newLeaseSubnet(ifname string) accesspoint.Subnet {
	return accesspoint.NewLeaseSubnet(&accesspoint.LeaseSubnetConfig{
		Interface: ifname,
		Logger:    log.New().WithField("system", "subnet"),
	})
}
