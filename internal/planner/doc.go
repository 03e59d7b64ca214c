// Package planner partitions the book's ordered item sequence into
// size-bounded chunks. Planning is greedy with verified backtrack: item
// sizes accumulate into a running estimate, and once the estimate nears the
// effective limit the batch is handed to the encoding gateway for an exact
// size. The pass is a pure function of items, settings, and title, so
// repeated runs over unchanged state produce identical boundaries and
// fingerprints.
package planner
