package loom

// Version is the loom release version, stamped at build time via
// -ldflags "-X github.com/jward/loom.Version=...".
var Version = "0.1.0-dev"
