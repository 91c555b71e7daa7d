// Package localserver serves the protocol on a Unix domain socket.
//
// Local clients on the same host can reach the server without a TCP port.
// Access is controlled by the socket file permissions. A stale socket file
// left by a previous process is replaced on start and the file is removed
// on shutdown. Connections are handed to a ConnServer, normally the
// protocol server, which runs the same connection loop as for TCP clients.
package localserver
