// Package server serves Reflow applications over HTTP and WebSocket.
//
// Pages registered with HandlePage render server-side with a fresh state
// store per request; the store's final state is embedded in the document as
// a hydration snapshot. The /live endpoint upgrades to WebSocket and runs a
// Session: an isolated store, a live element tree, and a renderer keeping
// the two in sync. Tree mutations stream to the client as patch frames and
// client events route back to the element that registered the listener.
//
// Each session runs two goroutines: ReadLoop decodes inbound frames and
// processes them to completion (one inbound frame yields at most one
// outbound patch batch), and WriteLoop drains the send queue with
// keepalive pings. A session whose send queue fills is closed as a slow
// consumer.
//
// Example:
//
//	reg := view.NewRegistry()
//	reg.Register("Counter", counterComponent)
//
//	srv := server.New(nil, reg,
//	    server.WithRootView(map[string]any{"Counter": map[string]any{}}),
//	)
//	srv.HandlePage("/", func(r *http.Request, s *state.Store) render.Page {
//	    s.Set("counter.value", 0)
//	    return render.Page{Title: "Counter", Body: map[string]any{"Counter": map[string]any{}}}
//	})
//	srv.ListenAndServe(ctx)
package server
