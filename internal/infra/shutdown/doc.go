// Package shutdown coordinates graceful process shutdown.
//
// A Handler turns SIGINT/SIGTERM into context cancellation and then runs
// registered hooks in reverse order under a deadline:
//
//	h := shutdown.NewHandler(10*time.Second, logger)
//	ctx := h.Context(context.Background())
//	h.OnShutdown("transport", func(context.Context) error { return tr.Close() })
//	go session.Run(ctx)
//	err := h.Wait(ctx)
package shutdown
