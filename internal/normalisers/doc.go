// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract text
// segments from a specific MIME type.
//
// This package holds the pieces shared by all formats: the closed
// extension-to-MIME dispatch table, the priority registry, and the
// document builder. Format packages register with the Registry at startup.
package normalisers
