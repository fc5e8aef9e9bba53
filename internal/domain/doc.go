// Package domain contains the core entities and value objects of USTS.
//
// It has no dependencies on sockets, files, stores or logging and holds only
// the data model of the fragmentation protocol.
//
// # Entities
//
//   - [Fragment]: one bounded slice of a message, tagged with its id, index and total
//   - [ReassembledMessage]: a message rebuilt from a complete fragment set
//   - [Outcome]: the structured result of one persistence sink
package domain
