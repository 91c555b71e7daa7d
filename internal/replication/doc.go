// Package replication implements the replica side of primary/replica
// replication.
//
// A replica connects to its primary and negotiates a full resync:
//
//	PING                          -> +PONG
//	REPLCONF listening-port <n>   -> +OK
//	REPLCONF capa psync2          -> +OK
//	PSYNC ? -1                    -> +FULLRESYNC <run-id> 0
//
// after which the primary sends a snapshot image. Commands arriving after
// the snapshot are read and discarded.
//
// The primary side needs no state of its own: PING, REPLCONF and PSYNC are
// ordinary commands of the server, which replies to PSYNC with the image
// returned by EmptySnapshot.
package replication
