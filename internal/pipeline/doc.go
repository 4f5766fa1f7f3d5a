// Package pipeline orchestrates one crack run over a game directory.
//
// A run scans the tree once, then (when an unpacker is configured) strips the
// DRM wrapper from every executable in the first half of the progress range.
// The second half is split evenly across the discovered steam_api libraries;
// each library walks nine substeps: dependency validation, metadata
// directory, interface signatures, remote lookups, library replacement,
// companion placement, overlay assets, emulator config and the backup
// archive. Libraries are processed sequentially and every step is awaited
// before the next starts.
//
// Only two failures are absorbed: a tree with no libraries (informational
// result, no writes) and a non-zero exit from the unpack tool (warning, next
// executable). Everything else aborts the run and is returned as one error.
//
// When a ledger is attached every backup and placed file is recorded, which
// is what Restore replays.
package pipeline
