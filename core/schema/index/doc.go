// Package index reads and writes index statements of the form
//
//	CREATE [UNIQUE] INDEX `name` ON `table` (`col`, ...) [WHERE predicate]
//
// Index identity is the name token, not the statement text: two statements with the same
// name describe the same index even when their columns, uniqueness or filter differ.
// Upsert relies on that to replace a redeclared index in place instead of duplicating it.
// Statements without a quoted name fall back to exact text comparison.
package index
