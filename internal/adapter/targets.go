package adapter

import (
	"fmt"
	"net"
	"strings"
)

// virtualPrefixes name interfaces created by container runtimes
var virtualPrefixes = []string{"veth", "docker", "br-", "cni", "flannel", "virbr"}

// interfaceAddrs is the part of a network interface target detection needs
type interfaceAddrs struct {
	name  string
	flags net.Flags
	addrs []net.Addr
}

// LocalTargets returns the private IPv4 networks this host is attached to,
// for use as scan targets when none are configured. Networks wider than a
// /24 are narrowed to the /24 around the host's own address.
func LocalTargets() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	list := make([]interfaceAddrs, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		list = append(list, interfaceAddrs{name: iface.Name, flags: iface.Flags, addrs: addrs})
	}
	return localTargets(list), nil
}

func localTargets(ifaces []interfaceAddrs) []string {
	var targets []string
	seen := make(map[string]bool)

	for _, iface := range ifaces {
		if iface.flags&net.FlagLoopback != 0 || iface.flags&net.FlagUp == 0 || isVirtual(iface.name) {
			continue
		}

		for _, addr := range iface.addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || !ip4.IsPrivate() {
				continue
			}

			mask := ipnet.Mask
			if ones, _ := mask.Size(); ones < 24 {
				mask = net.CIDRMask(24, 32)
			}
			ones, _ := mask.Size()
			target := fmt.Sprintf("%s/%d", ip4.Mask(mask), ones)

			if !seen[target] {
				seen[target] = true
				targets = append(targets, target)
			}
		}
	}
	return targets
}

func isVirtual(name string) bool {
	for _, prefix := range virtualPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
