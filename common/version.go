package common

// Version is the build version, overridden at link time via
// -ldflags "-X github.com/ruteri/arch-demo-provisioner/common.Version=...".
var Version = "dev"
