package ustar

import (
	"bytes"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
)

func FuzzReader(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		ff := fuzz.NewConsumer(data)
		tarBytes, err := ff.TarBytes()
		if err != nil {
			return
		}
		tr, err := NewReader(bytes.NewReader(tarBytes))
		if err != nil {
			return
		}
		for !tr.Done() {
			_, _ = tr.Kind()
			if _, err := tr.Next(); err != nil {
				return
			}
		}
	})
}

func FuzzHeader(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		var h Header
		copy(h[:], data)
		_ = h.Name()
		_, _ = h.Kind()
		if size, err := h.Size(); err == nil && size < 0 {
			t.Fatalf("negative size %d", size)
		}
	})
}
