// Package shutdown coordinates graceful process termination.
//
// Components register named hooks with OnShutdown. Wait blocks until
// SIGINT/SIGTERM arrives or the context is cancelled, then runs the hooks in
// reverse registration order under a shared timeout:
//
//	h := shutdown.NewHandler(10*time.Second, shutdown.WithLogger(log))
//	h.OnShutdown("redis", srv.Shutdown)
//	if err := h.Wait(ctx); err != nil { ... }
package shutdown
