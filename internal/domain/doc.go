// Package domain defines the core types for the macwatch device inventory.
//
// This package contains the value types shared by the registry ingestor,
// the repositories and the services. It has no database or network
// dependencies.
//
// # Addresses
//
// MAC is a 48-bit hardware address in integer form. ParseMAC and
// MAC.Format convert between the integer and its hexadecimal
// presentation; every comparison, range test and storage column uses the
// integer.
//
// # Registry Assignments
//
// AssignmentClass describes the three IEEE block sizes (MA-L, MA-M,
// MA-S). An Assignment couples a class with the MacRange it covers and
// the Organization it was assigned to. Ranges of different classes nest;
// the resolver reports all of them.
//
// # Devices and Timelines
//
// Device is a known hardware address with its last hostname and an
// optional operator-chosen name. Timestamp marks one completed scan
// cycle. A device is present at a timestamp only if the scan recorded a
// sighting for it; HistoryPoint and DeviceHistory hold the dense
// reconstruction of that sparse record.
//
// # Errors
//
// Error kinds (ErrInvalidFormat, ErrUnknownReference, ...) are sentinel
// values matched with errors.Is.
package domain
