// Package buffer provides the line buffer owned by an editor session.
//
// A Buffer is an ordered sequence of lines. Each line owns its raw text plus
// two visual flags: whether it heads a collapsed fold and whether it is
// highlighted. Indentation depth and fold visibility are derived from the
// text on demand and never cached across edits.
//
// Basic usage:
//
//	buf := buffer.NewFromString("sources:\n    osm:\n        type: MVT")
//
//	// Collapse the block under line 0
//	buf.SetCollapsed(0, true)
//	buf.FoldState(1) // buffer.Folded
//
//	// Observe edits
//	unsubscribe := buf.OnMutate(func(c buffer.Change) {
//	    log.Println("revision", c.Revision)
//	})
//	defer unsubscribe()
//
// Positions:
//
// Point addresses a line and a byte column within that line, both 0-based.
// A Selection is always normalized so that From <= To.
//
// Thread Safety:
//
// All Buffer methods are safe for concurrent use. Subscribers are invoked
// after the buffer lock is released, on the goroutine that made the change.
package buffer
