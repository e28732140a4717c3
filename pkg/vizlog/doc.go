// Package vizlog is a structured-logging client: named, independently
// configurable loggers emit leveled, tagged records carrying a renderable
// view of arbitrary values, multiplexed over one shared event channel to a
// remote collector.
//
// Typical use:
//
//	conn, err := vizlog.Connect("http://localhost:4000")
//	if err != nil {
//		// handle: the collector is unreachable
//	}
//	defer conn.Close()
//
//	log := vizlog.GetLogger("train").Level(vizlog.LevelDebug).Tags("experiment-7")
//	log.Info("epoch done", metrics)
//
// Logging calls never fail and never block on the network: without an active
// session records are silently dropped (observable via Client.Dropped and
// Client.OnDrop). Closing the connection performs a two-phase handshake so
// the collector drains every in-flight record before the transport goes
// away.
package vizlog
