// Package capability enforces the permissions a module declared in its
// manifest. A Validator is built once at load time and answers pure queries;
// it has no mutable state and is safe to share. Anything not explicitly
// declared is denied.
package capability

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/burakkaraceylan/vessel/manifest"
	"github.com/burakkaraceylan/vessel/verrors"
)

// Validator is the immutable permission oracle derived from a manifest.
type Validator struct {
	subscribePatterns []glob.Glob
	allowedCalls      map[string]struct{}
	networkHTTP       bool
	networkWebsocket  bool
	networkTCP        bool
	storage           bool
	timers            bool
}

// New compiles a Validator from manifest permissions. Declared subscribe
// patterns that fail to compile are skipped; the module simply cannot receive
// what it mis-declared.
func New(perms *manifest.Permissions) *Validator {
	v := &Validator{
		allowedCalls:     make(map[string]struct{}, len(perms.Call)),
		networkHTTP:      perms.Network.HTTP,
		networkWebsocket: perms.Network.Websocket,
		networkTCP:       perms.Network.TCP,
		storage:          perms.Storage,
		timers:           perms.Timers,
	}
	for _, p := range perms.Subscribe {
		if g, err := glob.Compile(p); err == nil {
			v.subscribePatterns = append(v.subscribePatterns, g)
		}
	}
	// Allowed calls are stored as "module.name@version", e.g.
	// "discord.voice.set_mute@1".
	for _, c := range perms.Call {
		v.allowedCalls[c] = struct{}{}
	}
	return v
}

// CheckSubscribe permits a subscription iff some declared pattern matches the
// requested pattern. Declared patterns form the ceiling: guests may narrow but
// not widen.
func (v *Validator) CheckSubscribe(pattern string) error {
	for _, p := range v.subscribePatterns {
		if p.Match(pattern) {
			return nil
		}
	}
	return verrors.Denied("subscribe", "subscribe '%s' not declared in manifest", pattern)
}

// CheckCall permits a driver call iff the exact module.name@version triple is
// in the allowlist.
func (v *Validator) CheckCall(module, name string, version uint32) error {
	key := fmt.Sprintf("%s.%s@%d", module, name, version)
	if _, ok := v.allowedCalls[key]; !ok {
		return verrors.Denied("call", "call '%s' not declared in manifest", key)
	}
	return nil
}

func (v *Validator) CheckNetworkHTTP() error {
	if !v.networkHTTP {
		return verrors.Denied("network.http", "network.http not declared")
	}
	return nil
}

func (v *Validator) CheckNetworkWebsocket() error {
	if !v.networkWebsocket {
		return verrors.Denied("network.websocket", "network.websocket not declared")
	}
	return nil
}

func (v *Validator) CheckNetworkTCP() error {
	if !v.networkTCP {
		return verrors.Denied("network.tcp", "network.tcp not declared")
	}
	return nil
}

func (v *Validator) CheckStorage() error {
	if !v.storage {
		return verrors.Denied("storage", "storage not declared")
	}
	return nil
}

func (v *Validator) CheckTimers() error {
	if !v.timers {
		return verrors.Denied("timers", "timers not declared")
	}
	return nil
}
