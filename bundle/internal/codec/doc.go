// Package codec encodes and decodes bundle data sections.
//
// A data section is the concatenation of every entry's content in path
// order. [Writer] stores that stream under one of the compression modes and
// [Open] returns a [Section] that reads the decoded stream back at arbitrary
// offsets, whatever the mode.
package codec
