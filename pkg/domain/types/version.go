package types

// Version is the dockrel build version, overridden with -ldflags at release time.
var Version = "dev"
