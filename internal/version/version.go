package version

// Version is the current akb version, overridable at build time via
// -ldflags "-X akb/internal/version.Version=...".
var Version = "0.3.0"
