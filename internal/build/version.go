package build

// Version is overridden at link time with -ldflags "-X .../internal/build.Version=...".
var Version = "v0.0.0-dev"
