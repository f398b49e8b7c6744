// Package registry turns IEEE registration authority assignment lists
// into stored organization ranges.
//
// One feed file exists per assignment class (MA-L, MA-M, MA-S), in the
// CSV layout published by the IEEE:
//
//	Registry,Assignment,Organization Name,Organization Address
//	MA-L,0050C2,Acme Corp,1 Road City US
//
// The Ingestor parses a feed, skips malformed rows without aborting and
// upserts the rest through a repository.RangeStore. The Fetcher downloads
// the current feeds.
package registry
