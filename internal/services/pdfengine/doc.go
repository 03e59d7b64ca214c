// Package pdfengine produces the PDF representations bindery works with:
// per-item compressed PDFs for the optimizer and merged bundles for the
// planner and syncer. The Gateway interface keeps callers independent of
// pdfcpu so tests can substitute a deterministic fake.
package pdfengine
