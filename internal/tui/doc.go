// Package tui renders live progress of a validation run.
//
// The view is read-only. It consumes validation events until the run
// completes, then quits on its own. Users can abort with 'q' or Ctrl+C.
//
// Usage:
//
//	events := validation.NewEventEmitter(256)
//	orch := validation.New(required, validation.WithEvents(events))
//	go func() {
//	    defer events.Close()
//	    orch.RunForTier(ctx, tier, suite, changed)
//	}()
//	model, err := tui.Run(ctx, "checkout", events.Events())
package tui
