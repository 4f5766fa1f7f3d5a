// Package steamapi fetches the remote metadata the emulator settings are built
// from: DLC names from the store API, depots and supported languages from
// steamcmd.net app info, and the achievement/stat schema (plus icons) from the
// Steam Web API.
//
// Lookups that find no data degrade to empty results (english for languages);
// transport failures and malformed responses are returned as errors carrying
// the services markers.
package steamapi
