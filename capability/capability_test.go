package capability

import (
	"errors"
	"strings"
	"testing"

	"github.com/burakkaraceylan/vessel/manifest"
	"github.com/burakkaraceylan/vessel/verrors"
)

var denied = verrors.New(verrors.PhaseCapability, verrors.KindDenied).Build()

func TestCheckSubscribe(t *testing.T) {
	v := New(&manifest.Permissions{Subscribe: []string{"system.window.*", "media.playback"}})

	cases := []struct {
		pattern string
		allowed bool
	}{
		{"system.window.focus_changed", true},
		{"system.window.*", true}, // declared ceiling itself
		{"media.playback", true},
		{"system.cpu.load", false},
		{"media.playback.extra", false},
		{"", false},
	}
	for _, tc := range cases {
		err := v.CheckSubscribe(tc.pattern)
		if tc.allowed && err != nil {
			t.Errorf("CheckSubscribe(%q): unexpected denial: %v", tc.pattern, err)
		}
		if !tc.allowed && !errors.Is(err, denied) {
			t.Errorf("CheckSubscribe(%q): want denial, got %v", tc.pattern, err)
		}
	}
}

func TestCheckSubscribeDenialText(t *testing.T) {
	v := New(&manifest.Permissions{})

	err := v.CheckSubscribe("anything")
	if err == nil {
		t.Fatal("empty declaration must deny everything")
	}
	var verr *verrors.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected structured error, got %T", err)
	}
	if !strings.Contains(verr.GuestMessage(), "subscribe 'anything' not declared") {
		t.Errorf("denial text: %q", verr.GuestMessage())
	}
}

func TestCheckCall(t *testing.T) {
	v := New(&manifest.Permissions{Call: []string{"discord.voice.set_mute@1"}})

	if err := v.CheckCall("discord", "voice.set_mute", 1); err != nil {
		t.Errorf("declared triple denied: %v", err)
	}
	if err := v.CheckCall("discord", "voice.set_mute", 2); !errors.Is(err, denied) {
		t.Error("different version must be denied")
	}
	if err := v.CheckCall("discord", "voice.set_deaf", 1); !errors.Is(err, denied) {
		t.Error("undeclared name must be denied")
	}
	if err := v.CheckCall("media", "voice.set_mute", 1); !errors.Is(err, denied) {
		t.Error("undeclared module must be denied")
	}
}

func TestFlagChecksDenyByDefault(t *testing.T) {
	v := New(&manifest.Permissions{})

	checks := map[string]func() error{
		"http":      v.CheckNetworkHTTP,
		"websocket": v.CheckNetworkWebsocket,
		"tcp":       v.CheckNetworkTCP,
		"storage":   v.CheckStorage,
		"timers":    v.CheckTimers,
	}
	for name, check := range checks {
		if err := check(); !errors.Is(err, denied) {
			t.Errorf("%s: want denial, got %v", name, err)
		}
	}
}

func TestFlagChecksGranted(t *testing.T) {
	v := New(&manifest.Permissions{
		Network: manifest.NetworkPermissions{HTTP: true, Websocket: true, TCP: true},
		Storage: true,
		Timers:  true,
	})

	for name, check := range map[string]func() error{
		"http":      v.CheckNetworkHTTP,
		"websocket": v.CheckNetworkWebsocket,
		"tcp":       v.CheckNetworkTCP,
		"storage":   v.CheckStorage,
		"timers":    v.CheckTimers,
	} {
		if err := check(); err != nil {
			t.Errorf("%s: unexpected denial: %v", name, err)
		}
	}
}

func TestInvalidDeclaredPatternIsSkipped(t *testing.T) {
	v := New(&manifest.Permissions{Subscribe: []string{"[", "media.*"}})

	if err := v.CheckSubscribe("media.playback"); err != nil {
		t.Errorf("valid pattern should survive an invalid sibling: %v", err)
	}
	if err := v.CheckSubscribe("[anything"); !errors.Is(err, denied) {
		t.Error("the invalid pattern must not grant anything")
	}
}
