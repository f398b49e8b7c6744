// Package adapter implements the network discovery collaborators that feed
// scan cycles.
//
// A scanner answers one question: which hardware addresses are on the
// network right now. Each implementation satisfies service.Scanner.
//
// # Scanners
//
// NmapScanner runs an nmap ping sweep (-sn) over the configured targets.
// With raw socket privileges nmap resolves the hardware address of every
// host on the local segment and reports reverse DNS names.
//
// SweepScanner needs neither nmap nor root. It dials a few TCP ports on
// every address so the kernel resolves their hardware addresses, then
// reads the ARP table.
//
// LocalTargets derives scan targets from the private IPv4 networks of the
// host's own interfaces.
package adapter
