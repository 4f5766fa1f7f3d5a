// Package preflight provides readiness checks for the filesystem paths,
// cached dependencies and remote services autocrack depends on.
//
// These checks run in two contexts:
//   - The apply command calls RunAll before touching a game directory.
//     Any failed check aborts the run before the first file is modified.
//   - The CLI "autocrack doctor" command renders every check, plus
//     CheckSteamWebAPI when a key is configured, as a table.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
