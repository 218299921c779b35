// Package html provides a Normaliser implementation for HTML pages.
// It parses the page with goquery, drops navigation chrome and scripts,
// and keeps the visible text one line per text node.
package html
