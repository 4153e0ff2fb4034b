// Package publish implements the one-shot publish workflow:
//
//	Unconfigured -> Configured -> Connecting -> Connected -> Publishing -> Published -> Closed
//
// Any failure while configuring, connecting or publishing moves the run to
// Failed and ends it. Once a session exists it is closed on every path.
// Publisher.Run blocks on each step; Publisher.RunCallback continues from the
// connector's completion callback. Both issue the same sequence of network
// operations for the same configuration.
package publish
