// Package registrar registers the discord-<appID> URI scheme with the host
// OS so that join/spectate invites (discord-<appID>://...) launch this
// application. It is the URI-scheme registrar external collaborator spec.md
// describes: neither the connection engine nor the client façade calls it.
// The host application (cmd/discordrpcd) calls [Register] once at startup
// and passes the result to discord.ClientOptions.URISchemeRegistered, which
// gates join/spectate subscription.
package registrar

// Register associates the discord-<appID> URI scheme with executable on the
// host OS. steamAppID is optional; when non-empty the registration launches
// the app through Steam instead of invoking executable directly. Returns
// true if registration succeeded, false if the platform doesn't support it
// or the write failed. A client constructed with URISchemeRegistered false
// rejects Subscribe with discord.ErrURISchemeNotRegistered.
func Register(appID, steamAppID, executable string) (bool, error) {
	return register(appID, steamAppID, executable)
}
