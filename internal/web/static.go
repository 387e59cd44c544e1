package web

import _ "embed"

//go:embed static/default.png
var placeholder []byte

// Placeholder is the picture served for users without an uploaded avatar.
func Placeholder() []byte {
	return placeholder
}
