// Package steamless mediates access to the Steamless CLI that strips the
// SteamStub DRM wrapper from executables.
//
// It fixes the argument contract, captures the tool's output into debug logs,
// classifies exit failures as recoverable, and reconciles the
// "<exe>.unpacked.exe" artifact back into place using the same .svrn backup
// naming as library replacement.
package steamless
