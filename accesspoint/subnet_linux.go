package accesspoint

import (
	"net"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/server4"
	"github.com/picolight/provd/radio"
	"github.com/vishvananda/netlink"
)

// leasePoolOffset is where handed out addresses start within the /24,
// leaving room below for the device itself.
const leasePoolOffset = 10

type LeaseSubnetConfig struct {
	Interface string
	Logger    Logger
}

// LeaseSubnet assigns the AP identity's address to the wireless interface
// and hands out addresses from a flat in-memory pool to portal clients.
type LeaseSubnet struct {
	log    Logger
	ifname string

	mtx    sync.Mutex
	addr   *netlink.Addr
	server *server4.Server
	leases map[string]net.IP
	nextIP uint8
}

// Compile time check for interface compatibility
var _ Subnet = (*LeaseSubnet)(nil)

func NewLeaseSubnet(config *LeaseSubnetConfig) *LeaseSubnet {
	s := &LeaseSubnet{
		ifname: config.Interface,
	}

	if config.Logger != nil {
		s.log = config.Logger
	} else {
		s.log = noopLogger{}
	}

	return s
}

func (s *LeaseSubnet) Configure(identity radio.APIdentity) error {
	link, err := netlink.LinkByName(s.ifname)
	if err != nil {
		return errors.Errorf("could not find link %v: %v", s.ifname, err)
	}

	addr, err := netlink.ParseAddr(identity.IP + "/24")
	if err != nil {
		return errors.Errorf("could not parse address %v: %v", identity.IP, err)
	}

	err = netlink.AddrAdd(link, addr)
	if err != nil {
		s.log.Warnf("Could not assign %v to %v: %v", addr, s.ifname, err)
	} else {
		s.log.Infof("Assigned %v to %v", addr, s.ifname)
	}

	serverIP := net.ParseIP(identity.IP).To4()
	if serverIP == nil {
		return errors.Errorf("not an IPv4 address: %v", identity.IP)
	}

	s.mtx.Lock()
	s.addr = addr
	s.leases = make(map[string]net.IP)
	s.nextIP = leasePoolOffset
	s.mtx.Unlock()

	laddr := &net.UDPAddr{IP: net.IPv4zero, Port: dhcpv4.ServerPort}

	server, err := server4.NewServer(s.ifname, laddr, s.handle(serverIP))
	if err != nil {
		return errors.Errorf("could not create lease server: %v", err)
	}

	s.mtx.Lock()
	s.server = server
	s.mtx.Unlock()

	go func() {
		err := server.Serve()
		if err != nil {
			s.log.Debugf("Lease server finished: %v", err)
		}
	}()

	s.log.Infof("Lease server started on %v (pool starts at .%v)", s.ifname, leasePoolOffset)

	return nil
}

func (s *LeaseSubnet) Release() error {
	s.mtx.Lock()
	server := s.server
	addr := s.addr
	s.server = nil
	s.addr = nil
	s.mtx.Unlock()

	if server != nil {
		err := server.Close()
		if err != nil {
			s.log.Warnf("Could not close lease server: %v", err)
		}
	}

	if addr != nil {
		link, err := netlink.LinkByName(s.ifname)
		if err != nil {
			return errors.Errorf("could not find link %v: %v", s.ifname, err)
		}

		err = netlink.AddrDel(link, addr)
		if err != nil {
			return errors.Errorf("could not remove %v from %v: %v", addr, s.ifname, err)
		}
	}

	return nil
}

func (s *LeaseSubnet) handle(serverIP net.IP) server4.Handler {
	return func(conn net.PacketConn, peer net.Addr, m *dhcpv4.DHCPv4) {
		var messageType dhcpv4.MessageType

		switch m.MessageType() {
		case dhcpv4.MessageTypeDiscover:
			messageType = dhcpv4.MessageTypeOffer
		case dhcpv4.MessageTypeRequest:
			messageType = dhcpv4.MessageTypeAck
		default:
			return
		}

		ip := s.lease(serverIP, m.ClientHWAddr)
		if ip == nil {
			s.log.Warnf("Lease pool exhausted, ignoring %v", m.ClientHWAddr)
			return
		}

		reply, err := dhcpv4.NewReplyFromRequest(m,
			dhcpv4.WithMessageType(messageType),
			dhcpv4.WithYourIP(ip),
			dhcpv4.WithServerIP(serverIP),
			dhcpv4.WithNetmask(net.CIDRMask(24, 32)),
			dhcpv4.WithRouter(serverIP),
			dhcpv4.WithDNS(serverIP),
			dhcpv4.WithLeaseTime(uint32(time.Hour/time.Second)),
			dhcpv4.WithOption(dhcpv4.OptServerIdentifier(serverIP)),
		)
		if err != nil {
			s.log.Warnf("Could not build reply: %v", err)
			return
		}

		_, err = conn.WriteTo(reply.ToBytes(), peer)
		if err != nil {
			s.log.Warnf("Could not send reply: %v", err)
		}
	}
}

func (s *LeaseSubnet) lease(serverIP net.IP, mac net.HardwareAddr) net.IP {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if ip, ok := s.leases[mac.String()]; ok {
		return ip
	}

	if s.nextIP == 255 {
		return nil
	}

	ip := net.IPv4(serverIP[0], serverIP[1], serverIP[2], s.nextIP)
	s.nextIP++
	s.leases[mac.String()] = ip

	return ip
}
