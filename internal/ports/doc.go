// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the USTS core and the outside world. They
// say what the server needs from sockets, files and stores without saying how
// those needs are met.
//
// # Port Interfaces
//
//   - [FileSink]: appends reassembled messages to a local data file
//   - [StoreSink]: writes reassembled messages to a document store
//   - [PacketWriter]: sends response datagrams back to a sender
//   - [Metrics]: records protocol and pipeline counters
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with the
// filesystem, Redis and UDP sockets.
package ports
