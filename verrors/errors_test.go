package verrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(PhaseLoad, KindTamper).
		Module("weather").
		Detail("hash mismatch for %s", "/data/modules/weather").
		Build()

	got := err.Error()
	if !strings.HasPrefix(got, "[load] tamper") {
		t.Errorf("missing phase/kind prefix: %q", got)
	}
	if !strings.Contains(got, "module weather") {
		t.Errorf("missing module id: %q", got)
	}
	if !strings.Contains(got, "hash mismatch for /data/modules/weather") {
		t.Errorf("missing detail: %q", got)
	}
}

func TestErrorCauseChain(t *testing.T) {
	root := fmt.Errorf("open manifest.json: no such file")
	err := IO(PhaseLoad, "reading manifest", root)

	if !strings.Contains(err.Error(), "caused by: open manifest.json") {
		t.Errorf("cause not formatted: %q", err.Error())
	}
	if !errors.Is(err, root) {
		t.Error("errors.Is should unwrap to the root cause")
	}
}

func TestIsMatchesPhaseAndKind(t *testing.T) {
	err := Tamper("/data/modules/weather")

	if !errors.Is(err, New(PhaseLoad, KindTamper).Build()) {
		t.Error("same phase+kind should match")
	}
	if errors.Is(err, New(PhaseLoad, KindMalformed).Build()) {
		t.Error("different kind should not match")
	}
	if errors.Is(err, New(PhaseRuntime, KindTamper).Build()) {
		t.Error("different phase should not match")
	}
}

func TestDeniedGuestMessage(t *testing.T) {
	err := Denied("subscribe", "subscribe '%s' not declared in manifest", "anything")

	msg := err.GuestMessage()
	if !strings.Contains(msg, "subscribe 'anything' not declared") {
		t.Errorf("guest message missing denial text: %q", msg)
	}
	if strings.Contains(msg, "[capability]") {
		t.Errorf("guest message should not leak host formatting: %q", msg)
	}
}

func TestGuestMessageFallsBackToDetail(t *testing.T) {
	err := NotImplemented("driver call routing")
	if got := err.GuestMessage(); !strings.Contains(got, "driver call routing not yet implemented") {
		t.Errorf("unexpected guest message: %q", got)
	}
}

func TestAsExtractsStructuredError(t *testing.T) {
	wrapped := fmt.Errorf("loading module: %w", Incompatible("clock", 3, 1))

	var verr *Error
	if !errors.As(wrapped, &verr) {
		t.Fatal("errors.As failed")
	}
	if verr.Kind != KindIncompatible || verr.ModuleID != "clock" {
		t.Errorf("unexpected fields: %+v", verr)
	}
}
