// Package repository defines the data access interfaces for macwatch.
//
// Two independent stores exist. RangeStore holds registry organizations
// and their assigned MAC ranges; InventoryStore (DeviceStore plus
// TimelineStore) holds devices, scan timestamps and presence rows. They
// share no foreign keys and may live in different database files.
//
// # SQLite Implementation
//
// The sqlite subpackage implements both stores on SQLite in WAL mode.
// Schemas are versioned with embedded migrations, one migration table per
// store. Every logical operation runs in a single transaction: an
// organization and its range, or a device and its presence row, are
// written together or not at all. Readers see a consistent snapshot while
// a scan is being written.
//
// # Errors
//
// Persistence failures are wrapped with domain.ErrStorageUnavailable.
// Lookups that find nothing return nil or an empty slice, not an error.
package repository
