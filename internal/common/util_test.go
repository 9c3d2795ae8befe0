package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestSentinels_MatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("%w: handle too short", ErrorInvalidArgument)
	if !errors.Is(err, ErrorInvalidArgument) {
		t.Fatalf("wrapped error must match sentinel")
	}
	if errors.Is(err, ErrorConflict) {
		t.Fatalf("wrapped error must not match another sentinel")
	}
}
