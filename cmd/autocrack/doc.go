// Command autocrack applies the Goldberg Steam emulator to installed games:
// it unpacks Steam DRM wrappers with Steamless, swaps the steam_api libraries
// for the emulator's, generates the emulator's settings and keeps a history of
// every file it touched so the game can be restored.
package main
