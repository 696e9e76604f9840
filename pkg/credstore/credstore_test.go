package credstore

import (
	"net/netip"
	"testing"
)

func TestAddPassword_ReplacesPriorEntries(t *testing.T) {
	c := New()
	c.AddPassword("alice", "first")
	c.AddPassword("alice", "second")

	if len(c.Passwords) != 1 {
		t.Fatalf("len(Passwords) = %d, want 1", len(c.Passwords))
	}

	u, ok := c.LookupPassword(EncodeBasicCredential("alice", "second"))
	if !ok || u != "alice" {
		t.Errorf("lookup new credential = (%q, %v), want (alice, true)", u, ok)
	}
	if _, ok := c.LookupPassword(EncodeBasicCredential("alice", "first")); ok {
		t.Error("stale credential still resolves after replacement")
	}
}

func TestAddPassword_DoesNotTouchOtherUsers(t *testing.T) {
	c := New()
	c.AddPassword("alice", "pw-a")
	c.AddPassword("bob", "pw-b")
	c.AddPassword("alice", "pw-a2")

	if _, ok := c.LookupPassword(EncodeBasicCredential("bob", "pw-b")); !ok {
		t.Error("bob's credential removed by alice's replacement")
	}
}

func TestRemovePasswordByUser(t *testing.T) {
	c := New()
	c.AddPassword("alice", "pw")
	c.RemovePasswordByUser("alice")

	if len(c.Passwords) != 0 {
		t.Errorf("len(Passwords) = %d, want 0", len(c.Passwords))
	}

	// Removing again is a no-op.
	c.RemovePasswordByUser("alice")
}

func TestEncodeBasicCredential(t *testing.T) {
	// base64url("bob:s3cret")
	got := EncodeBasicCredential("bob", "s3cret")
	want := "Ym9iOnMzY3JldA=="
	if got != want {
		t.Errorf("EncodeBasicCredential = %q, want %q", got, want)
	}
}

func TestTokens(t *testing.T) {
	c := New()
	c.AddToken("tok123", "carol")

	u, ok := c.LookupToken("tok123")
	if !ok || u != "carol" {
		t.Fatalf("LookupToken = (%q, %v), want (carol, true)", u, ok)
	}

	// Removing an absent token never errors.
	c.RemoveToken("missing")

	c.RemoveToken("tok123")
	if _, ok := c.LookupToken("tok123"); ok {
		t.Error("token still resolves after removal")
	}

	c.AddToken("a", "x")
	c.AddToken("b", "y")
	c.ClearTokens()
	if len(c.Tokens) != 0 {
		t.Errorf("len(Tokens) = %d after clear, want 0", len(c.Tokens))
	}
}

func TestAddCommand_ReplaceByName(t *testing.T) {
	c := New()
	c.AddCommand("alice", UserCommand{Name: "deploy", Command: "deploy.sh", Path: "/old"})
	c.AddCommand("alice", UserCommand{Name: "notify", Command: "notify.sh"})
	c.AddCommand("alice", UserCommand{Name: "deploy", Command: "deploy-v2.sh", Path: "/new"})

	cmds := c.Commands["alice"]
	if len(cmds) != 2 {
		t.Fatalf("len(commands) = %d, want 2", len(cmds))
	}

	var deploys int
	for _, cmd := range cmds {
		if cmd.Name == "deploy" {
			deploys++
			if cmd.Command != "deploy-v2.sh" || cmd.Path != "/new" {
				t.Errorf("replaced command kept old values: %+v", cmd)
			}
		}
	}
	if deploys != 1 {
		t.Errorf("commands named deploy = %d, want 1", deploys)
	}
}

func TestAddCommand_UnnamedAppends(t *testing.T) {
	c := New()
	c.AddCommand("alice", UserCommand{Command: "one"})
	c.AddCommand("alice", UserCommand{Command: "two"})

	cmds := c.Commands["alice"]
	if len(cmds) != 2 {
		t.Fatalf("len(commands) = %d, want 2", len(cmds))
	}
	if cmds[0].Command != "one" || cmds[1].Command != "two" {
		t.Errorf("insertion order not preserved: %+v", cmds)
	}
}

func TestRemoveCommandByIndex(t *testing.T) {
	c := New()
	c.AddCommand("alice", UserCommand{Command: "one"})
	c.AddCommand("alice", UserCommand{Command: "two"})

	// Out of range is a no-op.
	c.RemoveCommandByIndex("alice", 5)
	c.RemoveCommandByIndex("alice", -1)
	if len(c.Commands["alice"]) != 2 {
		t.Fatalf("out-of-range removal changed the list")
	}

	c.RemoveCommandByIndex("alice", 0)
	cmds := c.Commands["alice"]
	if len(cmds) != 1 || cmds[0].Command != "two" {
		t.Errorf("commands after removal = %+v, want [two]", cmds)
	}
}

func TestClearCommands(t *testing.T) {
	c := New()
	c.AddCommand("alice", UserCommand{Command: "a"})
	c.AddCommand("bob", UserCommand{Command: "b"})

	c.ClearCommands("alice")
	if _, ok := c.Commands["alice"]; ok {
		t.Error("alice's commands survived ClearCommands")
	}
	if _, ok := c.Commands["bob"]; !ok {
		t.Error("bob's commands removed by alice's clear")
	}

	c.ClearAllCommands()
	if len(c.Commands) != 0 {
		t.Errorf("len(Commands) = %d after clear all, want 0", len(c.Commands))
	}
}

func TestAddIPBinding(t *testing.T) {
	c := New()
	ip := netip.MustParseAddr("203.0.113.5")

	if !c.AddIPBinding(ip, "") {
		t.Error("adding a new IP should report a change")
	}
	if !c.AllowedIP(ip) {
		t.Fatal("IP not allowed after binding")
	}

	// Bare re-add of an existing IP changes nothing.
	if c.AddIPBinding(ip, "") {
		t.Error("re-adding an existing bare IP reported a change")
	}

	if !c.AddIPBinding(ip, "alice") {
		t.Error("appending a new user should report a change")
	}
	if c.AddIPBinding(ip, "alice") {
		t.Error("duplicate user append reported a change")
	}
	if got := c.IPs[ip]; len(got) != 1 || got[0] != "alice" {
		t.Errorf("IPs[%v] = %v, want [alice]", ip, got)
	}
}

func TestRemoveIPBinding(t *testing.T) {
	c := New()
	ip := netip.MustParseAddr("198.51.100.1")
	c.AddIPBinding(ip, "alice")
	c.RemoveIPBinding(ip)

	if c.AllowedIP(ip) {
		t.Error("IP still allowed after removal")
	}
}

func TestClone_IsDeep(t *testing.T) {
	c := New()
	ip := netip.MustParseAddr("203.0.113.5")
	c.AddIPBinding(ip, "alice")
	c.AddPassword("alice", "pw")
	c.AddToken("tok", "alice")
	c.AddCommand("alice", UserCommand{Command: "run"})

	snap := c.Clone()
	c.AddIPBinding(ip, "bob")
	c.AddToken("tok2", "bob")
	c.Commands["alice"][0].Command = "changed"

	if len(snap.IPs[ip]) != 1 {
		t.Error("snapshot IP user list aliased the original")
	}
	if _, ok := snap.Tokens["tok2"]; ok {
		t.Error("snapshot tokens aliased the original")
	}
	if snap.Commands["alice"][0].Command != "run" {
		t.Error("snapshot commands aliased the original")
	}
}
