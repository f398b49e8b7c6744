// Package handler implements the macwatch HTTP API.
//
// # Endpoints
//
//	GET    /api/resolve/{mac}            organizations owning an address
//	GET    /api/devices                  every device, with organizations
//	GET    /api/devices/{ref}            one device by MAC or name
//	GET    /api/devices/{ref}/history    presence timeline of one device
//	PUT    /api/devices/{mac}/name       set the operator name
//	DELETE /api/devices/{mac}/name       clear the operator name
//	GET    /api/history                  timelines of every device
//	GET    /api/export                   timelines as a JSON or YAML download
//	POST   /api/scan                     run one scan cycle
//	POST   /api/registry/ingest          re-ingest the registry feed files
//
// History endpoints accept optional from and to query parameters in
// RFC 3339; both bounds are inclusive.
//
// # Response Format
//
// Success responses return JSON data. Error responses return JSON with an
// {error, details} structure; the status follows the error kind: 400 for
// malformed input, 404 for device lookups and renames of unknown devices,
// 503 for storage failures or a missing scanner. History of an unknown
// device is an empty array, not an error.
//
// Middleware provides panic recovery, request logging and Prometheus
// request metrics.
package handler
