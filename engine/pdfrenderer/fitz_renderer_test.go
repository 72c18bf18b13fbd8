//go:build cgo

package pdfrenderer

import "testing"

func TestConvertWithFitz(t *testing.T) {
	convertWithEngine(t, LoadFitz)
}
