// Package batch runs a callback over a list of items one at a time.
//
// A failing item does not stop the run: its error is recorded in the
// Result and processing moves on. Progress callbacks let the CLI report
// "[i/n]" lines as multi-client report runs advance.
package batch
