package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/xtding233/outcome-engine/internal/catalog"
	"github.com/xtding233/outcome-engine/internal/engine"
	"github.com/xtding233/outcome-engine/internal/game"
	"github.com/xtding233/outcome-engine/internal/kv"
	"github.com/xtding233/outcome-engine/internal/session"
	"github.com/xtding233/outcome-engine/internal/variants"
)

func dial(t *testing.T) *Client {
	t.Helper()
	opts := variants.Options{RNG: engine.Locked(engine.NewSeededRNG(3))}
	c := catalog.New(game.NewLoader("../../configs"), []string{"dice", "bull", "wheel"}, opts, zerolog.Nop())
	if err := c.Reload(); err != nil {
		t.Fatal(err)
	}
	reg := session.NewRegistry(c, kv.NewMemory(), zerolog.Nop())
	now := time.Date(2024, 2, 10, 20, 0, 0, 0, time.UTC)
	reg.Now = func() time.Time { return now }

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(&Service{Variants: c, Sessions: reg, Logger: zerolog.Nop()})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestListVariants(t *testing.T) {
	cl := dial(t)
	out, err := cl.Call(context.Background(), "ListVariants", nil)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(out.GetFields()["variants"].GetListValue().GetValues()); n != 5 {
		t.Fatalf("variants %d", n)
	}
}

func TestPlayAndLock(t *testing.T) {
	ctx := context.Background()
	cl := dial(t)
	req := map[string]any{"player": "alice", "variant": "wheel"}

	out, err := cl.Call(ctx, "Play", req)
	if err != nil {
		t.Fatal(err)
	}
	if !out.GetFields()["terminal"].GetBoolValue() {
		t.Fatalf("play result %v", out)
	}

	_, err = cl.Call(ctx, "Play", req)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("second play: %v", err)
	}

	cd, err := cl.Call(ctx, "Cooldown", map[string]any{"player": "alice", "variant": "wheel", "lang": "zh"})
	if err != nil {
		t.Fatal(err)
	}
	if got := cd.GetFields()["countdown"].GetStringValue(); got != "剩余 24小时 0分 0秒" {
		t.Fatalf("countdown %q", got)
	}

	if _, err := cl.Call(ctx, "ResetCooldown", req); err != nil {
		t.Fatal(err)
	}
	if _, err := cl.Call(ctx, "Play", req); err != nil {
		t.Fatalf("play after reset: %v", err)
	}

	h, err := cl.Call(ctx, "History", map[string]any{"player": "alice", "variant": "wheel", "n": 1})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(h.GetFields()["entries"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("history entries %d", n)
	}
}

func TestStagedDraw(t *testing.T) {
	ctx := context.Background()
	cl := dial(t)
	req := map[string]any{"player": "bob", "variant": "bull"}

	drawn, err := cl.Call(ctx, "Draw", req)
	if err != nil {
		t.Fatal(err)
	}
	id := drawn.GetFields()["id"].GetStringValue()
	if _, err := cl.Call(ctx, "Draw", req); status.Code(err) != codes.Aborted {
		t.Fatalf("second draw: %v", err)
	}

	done, err := cl.Call(ctx, "Commit", map[string]any{"player": "bob", "variant": "bull", "id": id})
	if err != nil {
		t.Fatal(err)
	}
	if done.GetFields()["id"].GetStringValue() != id {
		t.Fatalf("commit returned a different draw")
	}

	if _, err := cl.Call(ctx, "Abandon", req); status.Code(err) != codes.Aborted {
		t.Fatalf("abandon without a draw: %v", err)
	}
}

func TestErrorCodes(t *testing.T) {
	ctx := context.Background()
	cl := dial(t)
	cases := []struct {
		method string
		req    map[string]any
		want   codes.Code
	}{
		{"Play", map[string]any{"player": "x", "variant": "poker"}, codes.NotFound},
		{"Play", map[string]any{"variant": "dice"}, codes.InvalidArgument},
		{"Draw", map[string]any{"player": "x", "variant": "wheel", "tier": "heart_of_africa"}, codes.InvalidArgument},
		{"Commit", map[string]any{"player": "x", "variant": "dice", "id": "nope"}, codes.InvalidArgument},
		{"History", map[string]any{"player": "x", "variant": "dice", "n": 1.5}, codes.InvalidArgument},
		{"Simulate", map[string]any{"variant": "wheel"}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		if _, err := cl.Call(ctx, tc.method, tc.req); status.Code(err) != tc.want {
			t.Errorf("%s %v: got %v want %v", tc.method, tc.req, err, tc.want)
		}
	}
}

func TestSimulate(t *testing.T) {
	cl := dial(t)
	out, err := cl.Call(context.Background(), "Simulate", map[string]any{"variant": "dice-festival", "trials": 3000, "seed": "42"})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.GetFields()["trials"].GetNumberValue(); got != 3000 {
		t.Fatalf("trials %v", got)
	}
	tiers := out.GetFields()["tiers"].GetStructValue().GetFields()
	if _, ok := tiers["*"]; !ok {
		t.Fatalf("ordinary rounds missing from tiers: %v", tiers)
	}
}
