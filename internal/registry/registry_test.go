package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
)

func playerIdentity(id string) Identity {
	return Identity{Kind: enums.ActorKindPlayer, ID: id}
}

func TestRegisterAndLookup(t *testing.T) {
	reg := New()
	identity := playerIdentity("tg-1001")

	if evicted := reg.Register(identity, "conn-a"); evicted != nil {
		t.Fatalf("first register should not evict, got %+v", evicted)
	}

	connID, ok := reg.Lookup(identity)
	if !ok || connID != "conn-a" {
		t.Fatalf("Lookup = %q, %v", connID, ok)
	}

	got, ok := reg.LookupActor("conn-a")
	if !ok || got != identity {
		t.Fatalf("LookupActor = %+v, %v", got, ok)
	}
}

func TestRegisterEvictsPriorConnection(t *testing.T) {
	reg := New()
	identity := playerIdentity("tg-1001")

	reg.Register(identity, "conn-a")
	evicted := reg.Register(identity, "conn-b")

	if evicted == nil || evicted.ID != "conn-a" {
		t.Fatalf("expected conn-a evicted, got %+v", evicted)
	}
	if connID, _ := reg.Lookup(identity); connID != "conn-b" {
		t.Fatalf("identity should map to conn-b, got %q", connID)
	}
	if _, ok := reg.LookupActor("conn-a"); ok {
		t.Fatal("evicted connection should be unbound")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected exactly one connection, got %d", reg.Len())
	}
}

func TestRegisterSameConnectionIsIdempotent(t *testing.T) {
	reg := New()
	identity := playerIdentity("tg-1001")

	reg.Register(identity, "conn-a")
	if evicted := reg.Register(identity, "conn-a"); evicted != nil {
		t.Fatalf("re-registering the same connection must not evict, got %+v", evicted)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one connection, got %d", reg.Len())
	}
}

func TestRegisterReleasesConnectionsPriorIdentity(t *testing.T) {
	reg := New()
	first := playerIdentity("tg-1001")
	second := playerIdentity("tg-2002")

	reg.Register(first, "conn-a")

	// The same socket registers again as a different actor. The old identity
	// must be unbound, not left pointing at a connection it no longer owns.
	if evicted := reg.Register(second, "conn-a"); evicted != nil {
		t.Fatalf("rebinding the same connection must not evict, got %+v", evicted)
	}
	if _, ok := reg.Lookup(first); ok {
		t.Fatal("prior identity should be unbound after its connection rebinds")
	}
	if connID, ok := reg.Lookup(second); !ok || connID != "conn-a" {
		t.Fatalf("Lookup(second) = %q, %v; want conn-a", connID, ok)
	}
	if got, _ := reg.LookupActor("conn-a"); got != second {
		t.Fatalf("LookupActor = %+v; want %+v", got, second)
	}

	// A fresh login by the first identity must not touch conn-a, which now
	// belongs to the second identity.
	if evicted := reg.Register(first, "conn-b"); evicted != nil {
		t.Fatalf("first identity holds no connection, got eviction %+v", evicted)
	}
	if connID, _ := reg.Lookup(second); connID != "conn-a" {
		t.Fatalf("second identity lost its connection, Lookup = %q", connID)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected two live connections, got %d", reg.Len())
	}
}

func TestRemoveUnknownConnectionIsNoop(t *testing.T) {
	reg := New()
	reg.Remove("ghost")

	reg.Register(playerIdentity("tg-1"), "conn-a")
	reg.Remove("conn-a")
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
	if _, ok := reg.Lookup(playerIdentity("tg-1")); ok {
		t.Fatal("identity should be unbound after remove")
	}
}

func TestRemoveStaleConnectionKeepsCurrentBinding(t *testing.T) {
	reg := New()
	identity := playerIdentity("tg-1001")

	reg.Register(identity, "conn-a")
	reg.Register(identity, "conn-b")

	// Removing the evicted connection id must not unbind the replacement.
	reg.Remove("conn-a")
	if connID, ok := reg.Lookup(identity); !ok || connID != "conn-b" {
		t.Fatalf("Lookup = %q, %v; want conn-b", connID, ok)
	}
}

func TestConcurrentDuplicateRegistrations(t *testing.T) {
	reg := New()
	identity := Identity{Kind: enums.ActorKindCashier, ID: "c-1"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			reg.Register(identity, fmt.Sprintf("conn-%d", n))
		}(i)
	}
	wg.Wait()

	if reg.Len() != 1 {
		t.Fatalf("identity must hold at most one connection, got %d", reg.Len())
	}
	connID, ok := reg.Lookup(identity)
	if !ok {
		t.Fatal("identity should still be connected")
	}
	if got, _ := reg.LookupActor(connID); got != identity {
		t.Fatalf("winning connection maps to %+v", got)
	}
}

func TestCountByKind(t *testing.T) {
	reg := New()
	reg.Register(playerIdentity("p1"), "c1")
	reg.Register(playerIdentity("p2"), "c2")
	reg.Register(Identity{Kind: enums.ActorKindCashier, ID: "s1"}, "c3")
	reg.Register(Identity{Kind: enums.ActorKindAdmin, ID: "a1"}, "c4")

	counts := reg.CountByKind()
	if counts[enums.ActorKindPlayer] != 2 || counts[enums.ActorKindCashier] != 1 || counts[enums.ActorKindAdmin] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
