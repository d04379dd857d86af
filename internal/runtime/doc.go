// Package runtime wires config, the shared store, logging and metrics into a
// single bee process. It exposes Open/Close, a health check and constructors
// for the process loop and the report operations.
//
// Example:
//
//	cfg := config.Default()
//	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger})
//	if err != nil { /* store unreachable or bad config */ }
//	defer rt.Close()
//	loop, _ := rt.NewLoop(identity.ProcessToken(rng), rng)
//	_ = loop.Run(ctx)
package runtime
