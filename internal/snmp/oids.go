package snmp

// Well-known MIB-II objects walked during router assembly
const (
	// OIDSysName is sysName.0
	OIDSysName = "1.3.6.1.2.1.1.5.0"
	// OIDIfTable is the interfaces table (ifIndex=1, ifDescr=2, ifPhysAddress=6)
	OIDIfTable = "1.3.6.1.2.1.2.2"
	// OIDIPAddrTable is the IPv4 address table (addr=1, ifIndex=2, netmask=3)
	OIDIPAddrTable = "1.3.6.1.2.1.4.20"
	// OIDIPCidrRouteTable is the CIDR routing table (nextHop=4)
	OIDIPCidrRouteTable = "1.3.6.1.2.1.4.24.4"
	// OIDIPNetToMediaTable is the ARP cache (ifIndex=1, physAddress=2, netAddress=3, type=4)
	OIDIPNetToMediaTable = "1.3.6.1.2.1.4.22"
)

// Column ids of the tables above
const (
	ColIfIndex       uint32 = 1
	ColIfDescr       uint32 = 2
	ColIfPhysAddress uint32 = 6

	ColIPAdEntAddr    uint32 = 1
	ColIPAdEntIfIndex uint32 = 2
	ColIPAdEntNetMask uint32 = 3

	ColIPCidrRouteNextHop uint32 = 4

	ColNetToMediaIfIndex     uint32 = 1
	ColNetToMediaPhysAddress uint32 = 2
	ColNetToMediaNetAddress  uint32 = 3
)
