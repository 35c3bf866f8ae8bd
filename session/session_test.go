// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/testutil"
	"github.com/danielhkuo/campus-mess/voting"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	m := NewManager(db, remote.NewSQLStore(db, "sqlite"), 30*time.Minute)
	clock := &fakeClock{t: time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)}
	m.now = clock.now
	t.Cleanup(m.Close)
	return m, clock
}

func TestGet_CreatesAndReuses(t *testing.T) {
	ctx := context.Background()
	m, clock := newManager(t)
	device := uuid.NewString()

	st, created, err := m.Get(ctx, "", device)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !created || st.ID == "" || st.DeviceID != device {
		t.Fatalf("unexpected new session: created=%v id=%q device=%q", created, st.ID, st.DeviceID)
	}

	clock.advance(10 * time.Minute)
	again, created, err := m.Get(ctx, st.ID, device)
	if err != nil {
		t.Fatal(err)
	}
	if created || again != st {
		t.Error("expected the existing session")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestGet_InvalidDevice(t *testing.T) {
	m, _ := newManager(t)
	for _, device := range []string{"", "not-a-uuid"} {
		if _, _, err := m.Get(context.Background(), "", device); !errors.Is(err, ErrInvalidDevice) {
			t.Errorf("Get(%q) error = %v, want ErrInvalidDevice", device, err)
		}
	}
}

func TestGet_DeviceMismatch(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	st, _, err := m.Get(ctx, "", uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Get(ctx, st.ID, uuid.NewString()); !errors.Is(err, ErrDeviceMismatch) {
		t.Errorf("error = %v, want ErrDeviceMismatch", err)
	}
}

func TestGet_UnknownSessionStartsFresh(t *testing.T) {
	m, _ := newManager(t)
	st, created, err := m.Get(context.Background(), "stale-session-id", uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	if !created || st.ID == "stale-session-id" {
		t.Errorf("expected a fresh session id, got %q created=%v", st.ID, created)
	}
}

func TestGet_ReusesDeviceSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	device := uuid.NewString()

	st, _, err := m.Get(ctx, "", device)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"", "stale-session-id"} {
		again, created, err := m.Get(ctx, id, device)
		if err != nil {
			t.Fatal(err)
		}
		if created || again != st {
			t.Errorf("Get(%q) started a second session for the device", id)
		}
	}

	other, created, err := m.Get(ctx, "", uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	if !created || other == st {
		t.Error("another device should get its own session")
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestGet_ConcurrentRequestsShareSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	device := uuid.NewString()

	const requests = 8
	got := make([]*State, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, _, err := m.Get(ctx, "", device)
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			got[i] = st
		}(i)
	}
	wg.Wait()

	for i, st := range got {
		if st != got[0] {
			t.Errorf("request %d got a different session", i)
		}
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestVotesFromOneDeviceStayConsistent(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	device := uuid.NewString()
	key := voting.ItemKey{ServiceID: "mess1", Day: "Mo", Meal: "lunch", ItemID: "item-1"}

	// Each tap arrives as its own request without a session id
	const taps = 6
	var wg sync.WaitGroup
	for i := 0; i < taps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, _, err := m.Get(ctx, "", device)
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			if res, err := st.Votes.CastVote(ctx, key, voting.Like); err != nil || res.Outcome != voting.Committed {
				t.Errorf("CastVote: outcome=%v err=%v", res.Outcome, err)
			}
		}()
	}
	wg.Wait()

	snap, err := m.store.Read(ctx, key.Path())
	if err != nil {
		t.Fatal(err)
	}
	var rec models.VoteRecord
	if err := snap.Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.Likes != 0 {
		t.Errorf("expected 0 likes after an even number of taps, got %d", rec.Likes)
	}

	st, _, err := m.Get(ctx, "", device)
	if err != nil {
		t.Fatal(err)
	}
	res, err := st.Votes.CastVote(ctx, key, voting.Like)
	if err != nil {
		t.Fatal(err)
	}
	if res.State.Likes != 1 || !res.State.Active {
		t.Errorf("state after one more tap = %+v", res.State)
	}
}

func TestIdleExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newManager(t)
	device := uuid.NewString()

	st, _, err := m.Get(ctx, "", device)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetEditMode(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := st.Durable.SetItem(ctx, "vote_mess1_item-1", "like"); err != nil {
		t.Fatal(err)
	}

	clock.advance(29 * time.Minute)
	if n := m.Sweep(); n != 0 {
		t.Fatalf("Sweep ended %d sessions before the timeout", n)
	}

	clock.advance(time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep ended %d sessions, want 1", n)
	}
	if st.EditMode(ctx) {
		t.Error("edit mode survived the session")
	}

	next, created, err := m.Get(ctx, st.ID, device)
	if err != nil {
		t.Fatal(err)
	}
	if !created || next.ID == st.ID {
		t.Error("expired session was reused")
	}
	if next.EditMode(ctx) {
		t.Error("new session should start with edit mode off")
	}
	if v, ok, _ := next.Durable.GetItem(ctx, "vote_mess1_item-1"); !ok || v != "like" {
		t.Errorf("durable vote = %q ok=%v, want like", v, ok)
	}
}

func TestGet_ExpiredOnAccess(t *testing.T) {
	ctx := context.Background()
	m, clock := newManager(t)
	device := uuid.NewString()

	st, _, err := m.Get(ctx, "", device)
	if err != nil {
		t.Fatal(err)
	}
	clock.advance(time.Hour)

	next, created, err := m.Get(ctx, st.ID, device)
	if err != nil {
		t.Fatal(err)
	}
	if !created || next == st {
		t.Error("expected a new session after the idle timeout")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestEndClosesVoteSubscriptions(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	st, _, err := m.Get(ctx, "", uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	key := voting.ItemKey{ServiceID: "mess1", Day: "Mo", Meal: "lunch", ItemID: "item-1"}
	if _, err := st.Votes.Watch(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, ok := st.Votes.State(key); !ok {
		t.Fatal("expected watched item state")
	}

	m.End(st.ID)
	if _, ok := st.Votes.State(key); ok {
		t.Error("vote state survived the session")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestOwnerAndEditMode(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	st, _, err := m.Get(ctx, "", uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}

	if st.OwnerUID() != "" || st.EditMode(ctx) {
		t.Fatal("new session should be anonymous and read-only")
	}
	st.SetOwner("owner-1")
	if err := st.SetEditMode(ctx, true); err != nil {
		t.Fatal(err)
	}
	if st.OwnerUID() != "owner-1" || !st.EditMode(ctx) {
		t.Error("owner or edit mode not recorded")
	}
	if err := st.SetEditMode(ctx, false); err != nil {
		t.Fatal(err)
	}
	if st.EditMode(ctx) {
		t.Error("edit mode should be off")
	}
}
