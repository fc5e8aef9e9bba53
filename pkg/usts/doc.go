// Package usts provides an embeddable USTS server and client.
//
// USTS moves text messages of any length over UDP. The client splits a
// message into fragments of the form
//
//	messageId:partIndex:totalParts:payload
//
// and the server reassembles them, appends the message to a data file,
// stores it as a document in Redis and reports every step back to the client
// as a human-readable status line.
//
// # Server
//
//	srv, err := usts.NewServer(usts.ServerConfig{
//	    Port:     12345,
//	    DataDir:  "/var/lib/usts",
//	    StoreURL: "redis://localhost:6379/0",
//	}, usts.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop()
//
// # Client
//
//	c := usts.NewClient(usts.ClientConfig{Server: "192.168.1.10:12345"})
//	res, err := c.Send(ctx, "hello world")
//
// Send blocks until the server reports the end of processing. A lost
// acknowledgment blocks it until ctx is cancelled unless
// ClientConfig.AckTimeout is set.
//
// # Lifecycle States
//
// A server moves through Stopped, Starting, Listening, Stopping and back to
// Stopped. A failed bind or a shutdown that outlives its timeout leaves it
// Crashed; it can be started again from there.
package usts
