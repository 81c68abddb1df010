package lib

import "testing"
import "unsafe"

func TestMemcpy(t *testing.T) {
	src := []byte("span-granularity-header")
	dst := make([]byte, len(src))
	n := Memcpy(unsafe.Pointer(&dst[0]), unsafe.Pointer(&src[0]), len(src))
	if n != len(src) {
		t.Fatalf("expected %v bytes copied, got %v", len(src), n)
	}
	if string(dst) != string(src) {
		t.Fatalf("expected %q, got %q", src, dst)
	}
}
