package types

// Version is the canonical project version.
// Reported by the CLI and stamped on published notifications.
const Version = "0.3.0"
