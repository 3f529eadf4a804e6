// Package textutil provides filename sanitization for storage keys.
package textutil
