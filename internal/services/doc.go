// Package services defines shared utilities consumed by the pipeline steps and
// the external integrations they drive.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, step names, and target paths for
//     logging and ledger correlation.
//   - Structured error markers plus the Wrap helper that classify failures
//     (fatal vs absorbed) before they cross into orchestration.
//   - Subpackages wrapping the external collaborators: the Steamless CLI and
//     the Steam metadata endpoints.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform across steps.
package services
