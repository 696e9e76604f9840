package credstore

import (
	"encoding/base64"
	"net/netip"
)

// Credentials is the aggregate of all authentication state: the IP
// allowlist, encoded basic-auth credentials, bypass tokens, and per-user
// post-authentication commands. It carries no lock of its own; see Store.
type Credentials struct {
	// IPs maps an allowed client IP to the users known to authenticate
	// from it. The key alone authorizes the IP; the user list exists so
	// operators can see who earned the entry.
	IPs map[netip.Addr][]Username `json:"ips"`

	// Passwords maps an encoded "username:password" credential to its
	// user. At most one entry exists per user.
	Passwords map[string]Username `json:"passwords"`

	// Tokens maps an opaque bypass token to its user.
	Tokens map[string]Username `json:"tokens"`

	// Commands maps a user to their post-auth commands in execution order.
	Commands map[Username][]UserCommand `json:"commands"`
}

// New returns an empty Credentials aggregate with all maps initialized.
func New() *Credentials {
	return &Credentials{
		IPs:       make(map[netip.Addr][]Username),
		Passwords: make(map[string]Username),
		Tokens:    make(map[string]Username),
		Commands:  make(map[Username][]UserCommand),
	}
}

// Normalize initializes any nil maps. Called after deserialization so a
// partially populated document behaves like an empty one.
func (c *Credentials) Normalize() {
	if c.IPs == nil {
		c.IPs = make(map[netip.Addr][]Username)
	}
	if c.Passwords == nil {
		c.Passwords = make(map[string]Username)
	}
	if c.Tokens == nil {
		c.Tokens = make(map[string]Username)
	}
	if c.Commands == nil {
		c.Commands = make(map[Username][]UserCommand)
	}
}

// EncodeBasicCredential derives the stored credential key from a username
// and password. This is the URL-safe base64 of "username:password" - the
// same value a client sends in a basic-auth header. It is reversible and
// offers no protection if the persisted store leaks; it is kept for
// compatibility with existing store files.
func EncodeBasicCredential(username, password string) string {
	return base64.URLEncoding.EncodeToString([]byte(username + ":" + password))
}

// AddPassword replaces the user's basic-auth credential. Any prior entries
// bound to the user are removed first so a stale encoded credential cannot
// keep authorizing.
func (c *Credentials) AddPassword(username Username, password string) {
	c.RemovePasswordByUser(username)
	c.Passwords[EncodeBasicCredential(username.String(), password)] = username
}

// RemovePasswordByUser removes every credential entry bound to the user.
func (c *Credentials) RemovePasswordByUser(username Username) {
	for encoded, u := range c.Passwords {
		if u == username {
			delete(c.Passwords, encoded)
		}
	}
}

// LookupPassword resolves an encoded credential to its user.
func (c *Credentials) LookupPassword(encoded string) (Username, bool) {
	u, ok := c.Passwords[encoded]
	return u, ok
}

// AddToken binds a bypass token to a user, replacing any existing binding
// for the same token.
func (c *Credentials) AddToken(token string, username Username) {
	c.Tokens[token] = username
}

// RemoveToken deletes a token binding. Removing an absent token is a no-op.
func (c *Credentials) RemoveToken(token string) {
	delete(c.Tokens, token)
}

// ClearTokens removes all bypass tokens.
func (c *Credentials) ClearTokens() {
	c.Tokens = make(map[string]Username)
}

// LookupToken resolves a bypass token to its user.
func (c *Credentials) LookupToken(token string) (Username, bool) {
	u, ok := c.Tokens[token]
	return u, ok
}

// AddCommand appends a command to the user's list. If the command carries a
// name, any existing command with that name is removed first, so re-adding
// under the same name replaces rather than accumulates.
func (c *Credentials) AddCommand(username Username, cmd UserCommand) {
	if cmd.Name != "" {
		c.RemoveCommandByName(username, cmd.Name)
	}
	c.Commands[username] = append(c.Commands[username], cmd)
}

// RemoveCommandByName removes every command for the user whose name matches.
func (c *Credentials) RemoveCommandByName(username Username, name string) {
	cmds := c.Commands[username]
	kept := cmds[:0]
	for _, cmd := range cmds {
		if cmd.Name != name {
			kept = append(kept, cmd)
		}
	}
	if len(kept) == 0 {
		delete(c.Commands, username)
		return
	}
	c.Commands[username] = kept
}

// RemoveCommandByIndex removes the command at the given position. An
// out-of-range index is a no-op.
func (c *Credentials) RemoveCommandByIndex(username Username, index int) {
	cmds := c.Commands[username]
	if index < 0 || index >= len(cmds) {
		return
	}
	cmds = append(cmds[:index], cmds[index+1:]...)
	if len(cmds) == 0 {
		delete(c.Commands, username)
		return
	}
	c.Commands[username] = cmds
}

// ClearCommands removes all commands for one user.
func (c *Credentials) ClearCommands(username Username) {
	delete(c.Commands, username)
}

// ClearAllCommands removes every user's commands.
func (c *Credentials) ClearAllCommands() {
	c.Commands = make(map[Username][]UserCommand)
}

// CommandsFor returns a copy of the user's command list, safe to use after
// the store lock is released.
func (c *Credentials) CommandsFor(username Username) []UserCommand {
	cmds := c.Commands[username]
	if len(cmds) == 0 {
		return nil
	}
	out := make([]UserCommand, len(cmds))
	copy(out, cmds)
	return out
}

// AddIPBinding ensures the IP exists in the allowlist and, when a username
// is given, appends it to the IP's user list unless already present.
// Returns true if the aggregate changed.
func (c *Credentials) AddIPBinding(ip netip.Addr, username Username) bool {
	users, exists := c.IPs[ip]
	if !exists {
		c.IPs[ip] = nil
	}
	changed := !exists
	if username == "" {
		return changed
	}
	for _, u := range users {
		if u == username {
			return changed
		}
	}
	c.IPs[ip] = append(users, username)
	return true
}

// RemoveIPBinding deletes the IP and all users bound to it.
func (c *Credentials) RemoveIPBinding(ip netip.Addr) {
	delete(c.IPs, ip)
}

// AllowedIP reports whether the IP is present in the allowlist.
func (c *Credentials) AllowedIP(ip netip.Addr) bool {
	_, ok := c.IPs[ip]
	return ok
}

// Clone returns a deep copy. Snapshots handed to persistence or command
// execution must not alias the locked aggregate.
func (c *Credentials) Clone() *Credentials {
	out := New()
	for ip, users := range c.IPs {
		if users == nil {
			out.IPs[ip] = nil
			continue
		}
		cp := make([]Username, len(users))
		copy(cp, users)
		out.IPs[ip] = cp
	}
	for k, v := range c.Passwords {
		out.Passwords[k] = v
	}
	for k, v := range c.Tokens {
		out.Tokens[k] = v
	}
	for u, cmds := range c.Commands {
		cp := make([]UserCommand, len(cmds))
		copy(cp, cmds)
		out.Commands[u] = cp
	}
	return out
}
