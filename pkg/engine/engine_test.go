package engine

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/torwart-dev/torwart/pkg/credstore"
)

// recordingRunner captures command invocations instead of starting
// processes.
type recordingRunner struct {
	user credstore.Username
	cmds []credstore.UserCommand
	runs int
}

func (r *recordingRunner) Run(_ context.Context, user credstore.Username, cmds []credstore.UserCommand) {
	r.user = user
	r.cmds = cmds
	r.runs++
}

// fakePersister counts saves and can be told to fail.
type fakePersister struct {
	saves int
	last  *credstore.Credentials
	err   error
}

func (p *fakePersister) Load(context.Context) (*credstore.Credentials, error) {
	return credstore.New(), nil
}

func (p *fakePersister) Save(_ context.Context, creds *credstore.Credentials) error {
	p.saves++
	p.last = creds
	return p.err
}

func newTestEngine(creds *credstore.Credentials) (*Engine, *fakePersister, *recordingRunner) {
	pers := &fakePersister{}
	run := &recordingRunner{}
	return New(credstore.NewStore(creds), pers, run, nil), pers, run
}

func TestEvaluate_Precedence(t *testing.T) {
	ip := netip.MustParseAddr("203.0.113.5")

	creds := credstore.New()
	creds.AddIPBinding(ip, "")
	creds.AddPassword("alice", "pw")
	creds.AddToken("tok", "carol")

	basic := "Basic " + credstore.EncodeBasicCredential("alice", "pw")

	tests := []struct {
		name     string
		sig      Signals
		method   Method
		user     credstore.Username
	}{
		{
			name:   "allowlisted ip beats a valid query token",
			sig:    Signals{ClientIP: ip, QueryToken: "tok"},
			method: ClientIP,
		},
		{
			name:   "allowlisted ip beats basic auth",
			sig:    Signals{ClientIP: ip, BasicAuthHeader: basic},
			method: ClientIP,
		},
		{
			name:   "basic auth beats query token",
			sig:    Signals{BasicAuthHeader: basic, QueryToken: "tok"},
			method: BasicAuth,
			user:   "alice",
		},
		{
			name:   "query token beats header token",
			sig:    Signals{QueryToken: "tok", HeaderToken: "tok"},
			method: BypassTokenQuery,
			user:   "carol",
		},
		{
			name:   "header token beats path token",
			sig:    Signals{HeaderToken: "tok", PathTail: "auth/tok"},
			method: BypassTokenHeader,
			user:   "carol",
		},
		{
			name:   "path token matches alone",
			sig:    Signals{PathTail: "some/auth/tok"},
			method: BypassTokenPath,
			user:   "carol",
		},
		{
			name:   "unknown ip falls through to basic auth",
			sig:    Signals{ClientIP: netip.MustParseAddr("198.51.100.9"), BasicAuthHeader: basic},
			method: BasicAuth,
			user:   "alice",
		},
		{
			name:   "nothing matches",
			sig:    Signals{BasicAuthHeader: "Basic bm9wZQ==", QueryToken: "wrong"},
			method: Unauthenticated,
		},
		{
			name:   "invalid query token does not fall through to header token",
			sig:    Signals{QueryToken: "wrong", HeaderToken: "tok"},
			method: BypassTokenHeader,
			user:   "carol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(creds, tt.sig)
			if got.Method != tt.method {
				t.Errorf("Method = %v, want %v", got.Method, tt.method)
			}
			if got.User != tt.user {
				t.Errorf("User = %q, want %q", got.User, tt.user)
			}
		})
	}
}

func TestEvaluate_PathTailTrailingSlash(t *testing.T) {
	creds := credstore.New()
	creds.AddToken("tok123", "carol")

	got := Evaluate(creds, Signals{PathTail: "auth/tok123/"})
	if got.Method != BypassTokenPath || got.User != "carol" {
		t.Errorf("verdict = %+v, want BypassTokenPath for carol", got)
	}
}

func TestAuthorize_LearnStep(t *testing.T) {
	ip := netip.MustParseAddr("203.0.113.5")

	creds := credstore.New()
	creds.AddPassword("alice", "pw")
	e, pers, _ := newTestEngine(creds)
	ctx := context.Background()

	sig := Signals{
		ClientIP:        ip,
		BasicAuthHeader: "Basic " + credstore.EncodeBasicCredential("alice", "pw"),
	}
	got := e.Authorize(ctx, sig)
	if got.Method != BasicAuth || got.User != "alice" {
		t.Fatalf("verdict = %+v, want BasicAuth for alice", got)
	}
	if pers.saves != 1 {
		t.Errorf("saves = %d, want 1", pers.saves)
	}
	if users := pers.last.IPs[ip]; len(users) != 1 || users[0] != "alice" {
		t.Errorf("persisted IPs[%v] = %v, want [alice]", ip, users)
	}

	// A later request from the same IP with no credentials authorizes via
	// the allowlist alone.
	got = e.Authorize(ctx, Signals{ClientIP: ip})
	if got.Method != ClientIP {
		t.Errorf("Method = %v, want ClientIP", got.Method)
	}
	if got.User != "" {
		t.Errorf("User = %q, want unbound", got.User)
	}
}

func TestAuthorize_IPOnlyVerdictMutatesNothing(t *testing.T) {
	ip := netip.MustParseAddr("203.0.113.5")

	creds := credstore.New()
	creds.AddIPBinding(ip, "")
	e, pers, run := newTestEngine(creds)

	got := e.Authorize(context.Background(), Signals{ClientIP: ip})
	if got.Method != ClientIP {
		t.Fatalf("Method = %v, want ClientIP", got.Method)
	}
	if pers.saves != 0 {
		t.Errorf("saves = %d, want 0 (no new information learned)", pers.saves)
	}
	if run.runs != 0 {
		t.Errorf("runner invoked %d times, want 0", run.runs)
	}
}

func TestAuthorize_BasicAuthWithoutIP(t *testing.T) {
	creds := credstore.New()
	creds.AddPassword("bob", "s3cret")
	e, pers, _ := newTestEngine(creds)

	got := e.Authorize(context.Background(), Signals{
		BasicAuthHeader: "Basic " + credstore.EncodeBasicCredential("bob", "s3cret"),
	})
	if got.Method != BasicAuth || got.User != "bob" {
		t.Fatalf("verdict = %+v, want BasicAuth for bob", got)
	}
	if pers.saves != 0 {
		t.Errorf("saves = %d, want 0 (no client IP supplied)", pers.saves)
	}
	if got := len(e.store.Snapshot().IPs); got != 0 {
		t.Errorf("len(IPs) = %d, want 0", got)
	}
}

func TestAuthorize_PathTokenEndToEnd(t *testing.T) {
	creds := credstore.New()
	creds.AddToken("tok123", "carol")
	e, _, _ := newTestEngine(creds)

	got := e.Authorize(context.Background(), Signals{PathTail: "some/app/auth/tok123"})
	if got.Method != BypassTokenPath || got.User != "carol" {
		t.Errorf("verdict = %+v, want BypassTokenPath for carol", got)
	}
}

func TestAuthorize_RunsCommandsOnIdentity(t *testing.T) {
	creds := credstore.New()
	creds.AddToken("tok", "carol")
	creds.AddCommand("carol", credstore.UserCommand{Name: "deploy", Command: "deploy.sh"})
	creds.AddCommand("carol", credstore.UserCommand{Command: "notify.sh"})
	e, _, run := newTestEngine(creds)

	e.Authorize(context.Background(), Signals{QueryToken: "tok"})

	if run.runs != 1 {
		t.Fatalf("runner invoked %d times, want 1", run.runs)
	}
	if run.user != "carol" {
		t.Errorf("runner user = %q, want carol", run.user)
	}
	if len(run.cmds) != 2 || run.cmds[0].Name != "deploy" {
		t.Errorf("runner cmds = %+v, want carol's two commands in order", run.cmds)
	}
}

func TestAuthorize_CommandsRunDespitePersistFailure(t *testing.T) {
	ip := netip.MustParseAddr("203.0.113.5")

	creds := credstore.New()
	creds.AddToken("tok", "carol")
	creds.AddCommand("carol", credstore.UserCommand{Command: "notify.sh"})
	e, pers, run := newTestEngine(creds)
	pers.err = errors.New("disk full")

	got := e.Authorize(context.Background(), Signals{ClientIP: ip, QueryToken: "tok"})

	if got.Method != BypassTokenQuery {
		t.Fatalf("Method = %v, want BypassTokenQuery", got.Method)
	}
	if run.runs != 1 {
		t.Errorf("runner invoked %d times despite persist failure, want 1", run.runs)
	}
	// The in-memory mutation stands even though the write failed.
	if users := e.store.Snapshot().IPs[ip]; len(users) != 1 || users[0] != "carol" {
		t.Errorf("IPs[%v] = %v, want [carol]", ip, users)
	}
}

func TestAuthorize_Unauthenticated(t *testing.T) {
	e, pers, run := newTestEngine(credstore.New())

	got := e.Authorize(context.Background(), Signals{
		BasicAuthHeader: "Basic d3Jvbmc=",
		QueryToken:      "nope",
		HeaderToken:     "nope",
		PathTail:        "auth/nope",
	})

	if got.Authenticated() {
		t.Fatalf("verdict = %+v, want unauthenticated", got)
	}
	if pers.saves != 0 || run.runs != 0 {
		t.Error("unauthenticated verdict triggered side effects")
	}
}
