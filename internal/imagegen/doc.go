// Package imagegen writes the synthetic textures the benchmark bundles are
// built from.
//
// Image i is a pure function of seed i: regenerating the set reproduces the
// same pixels, which keeps bundle sizes and load costs comparable between
// runs. Random noise is deliberately hard to compress, so the three bundle
// compression modes mostly differ in decode work rather than size.
package imagegen
