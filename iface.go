package p4utils

//
// Interface naming
//

import (
	"fmt"
	"sync/atomic"
)

// ifaceID is the unique ID of each emulated interface.
var ifaceID = &atomic.Int64{}

// newIfaceName constructs a new, unique interface name.
func newIfaceName() string {
	return fmt.Sprintf("eth%d", ifaceID.Add(1))
}

// HostIfaceName returns the canonical name of a host's switch-facing
// interface. Hosts are renamed to this scheme during provisioning
// because emulator teardown depends on interface names being globally
// unique across all hosts.
func HostIfaceName(host string) string {
	return fmt.Sprintf("%s-eth0", host)
}
