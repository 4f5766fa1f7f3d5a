package signature

// DefaultCatalog lists the Steam interface version strings the emulator needs
// to know about. Order matters: the manifest lists matches pattern by pattern.
var DefaultCatalog = []string{
	`STEAMAPPS_INTERFACE_VERSION\d+`,
	`STEAMAPPLIST_INTERFACE_VERSION\d+`,
	`STEAMAPPTICKET_INTERFACE_VERSION\d+`,
	`SteamClient\d+`,
	`STEAMCONTROLLER_INTERFACE_VERSION`,
	`SteamController\d+`,
	`SteamFriends\d+`,
	`SteamGameServerStats\d+`,
	`SteamGameCoordinator\d+`,
	`SteamGameServer\d+`,
	`STEAMHTMLSURFACE_INTERFACE_VERSION_\d+`,
	`STEAMHTTP_INTERFACE_VERSION\d+`,
	`SteamInput\d+`,
	`STEAMINVENTORY_INTERFACE_V\d+`,
	`SteamMatchMakingServers\d+`,
	`SteamMatchMaking\d+`,
	`SteamMatchGameSearch\d+`,
	`SteamParties\d+`,
	`STEAMMUSIC_INTERFACE_VERSION\d+`,
	`STEAMMUSICREMOTE_INTERFACE_VERSION\d+`,
	`SteamNetworkingMessages\d+`,
	`SteamNetworkingSockets\d+`,
	`SteamNetworkingUtils\d+`,
	`SteamNetworking\d+`,
	`STEAMPARENTALSETTINGS_INTERFACE_VERSION\d+`,
	`STEAMREMOTEPLAY_INTERFACE_VERSION\d+`,
	`STEAMREMOTESTORAGE_INTERFACE_VERSION\d+`,
	`STEAMSCREENSHOTS_INTERFACE_VERSION\d+`,
	`STEAMTIMELINE_INTERFACE_V\d+`,
	`STEAMUGC_INTERFACE_VERSION\d+`,
	`SteamUser\d+`,
	`STEAMUSERSTATS_INTERFACE_VERSION\d+`,
	`SteamUtils\d+`,
	`STEAMVIDEO_INTERFACE_V\d+`,
	`STEAMUNIFIEDMESSAGES_INTERFACE_VERSION\d+`,
	`SteamMasterServerUpdater\d+`,
}
