// Package core implements the cooperative actor runtime of coact.
//
// Actors are independent units of computation that own private state and
// communicate only by messages. A System owns every actor it spawns and
// delivers messages in rounds: each call to ProcessMessages pops at most one
// message from every eligible actor's mailbox and runs its Behavior. The
// embedding process decides when rounds happen (see package bootstrap for a
// ready-made dispatcher).
//
// A System is not safe for concurrent use. Behaviors run inside a round and
// may call back into the System freely; other goroutines must serialize
// their access externally.
package core
