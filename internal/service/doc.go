// Package service implements business logic for macwatch.
//
// Services coordinate between the command line, the HTTP handlers and the
// repository layer, applying validation and publishing events.
//
// # Services
//
// Resolver maps a MAC address to the organizations whose registry
// assignments contain it.
//
// Timeline reconstructs dense per-device presence series from the sparse
// presence rows, aligned to the global sequence of scan timestamps.
//
// Inventory runs scan cycles through a Scanner, records them as a unit and
// manages operator-assigned device names.
//
// RegistrySync ingests the configured registry feed files.
//
// # Event System
//
// Services publish events via EventBus for real-time updates to connected
// clients via Server-Sent Events (SSE): scan_completed, device_discovered,
// device_renamed and registry_ingested.
package service
