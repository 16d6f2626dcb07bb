package model

import "time"

// Shared defaults used by the refresh core, the terminal host and the CLI.
const (
	DefaultAnimationDuration = 300 * time.Millisecond
	DefaultAffordanceHeight  = 3.0 // rows
	DefaultItemsPerRefresh   = 5
	DefaultFeedLimit         = 200
	DefaultSkin              = "default"
)
