// Package translate translates and detects the language of message text
// through the public Google Translate endpoint.
package translate
