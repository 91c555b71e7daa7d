package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Role is the replication role of a server process.
type Role struct {
	// PrimaryAddr is the "host:port" of the primary. Empty means this
	// process is itself a primary.
	PrimaryAddr string
}

// PrimaryRole returns the role of a standalone primary.
func PrimaryRole() Role {
	return Role{}
}

// ReplicaRole returns the role of a replica of the primary at addr.
func ReplicaRole(addr string) Role {
	return Role{PrimaryAddr: addr}
}

// IsReplica reports whether the role is a replica.
func (r Role) IsReplica() bool {
	return r.PrimaryAddr != ""
}

// Name returns the role as reported by INFO: "master" or "slave".
func (r Role) Name() string {
	if r.IsReplica() {
		return "slave"
	}
	return "master"
}

// String implements fmt.Stringer.
func (r Role) String() string {
	if r.IsReplica() {
		return "replica of " + r.PrimaryAddr
	}
	return "primary"
}

// ParseReplicaOf parses a "<host> <port>" replica-of value into a dialable
// "host:port" address.
func ParseReplicaOf(s string) (string, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return "", fmt.Errorf("replicaof %q: expected \"<host> <port>\"", s)
	}

	port, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil || port == 0 {
		return "", fmt.Errorf("replicaof %q: invalid port %q", s, fields[1])
	}

	return net.JoinHostPort(fields[0], strconv.FormatUint(port, 10)), nil
}
