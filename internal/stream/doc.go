// Package stream coordinates parallel, cancelable model response streams for a
// single question and reveals their text one rune at a time.
//
// A Controller owns every session of the current generation together with the
// cancel handle and reveal ticker of each model. All of them are mutated only by
// the controller's loop goroutine; transports and tickers talk to it through a
// single inbox of tagged Events, and readers use Snapshot.
package stream
