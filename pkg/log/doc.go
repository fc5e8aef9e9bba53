// Package log provides the structured logging abstraction used by the USTS
// server and client.
//
// Components depend on the [Logger] interface only. The zerolog adapter is
// the production implementation; the no-op logger is meant for tests and for
// embedding the server in a program that does its own logging.
//
//	logger, closer, err := log.NewZerologLogger(log.Options{
//	    Level:   "info",
//	    File:    "/var/lib/usts/server.log",
//	})
//	defer closer.Close()
//
//	logger.Info("listening", log.String("addr", ":12345"))
//
// Use [Logger.With] to scope a logger to one message exchange:
//
//	mlog := logger.With(log.String("message_id", id))
package log
