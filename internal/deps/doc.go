// Package deps manages the local dependency cache: the emulator libraries,
// overlay assets and the Steamless unpacker. It reports cache and binary
// availability for doctor output, resolves cache paths for the pipeline, and
// implements setup (bounded parallel download plus Steamless extraction).
package deps
