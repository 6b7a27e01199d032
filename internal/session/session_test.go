package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spygrid/codenames-backend/internal/engine"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("subscriber outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return // closed, no further snapshots possible
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func recvResult(t *testing.T, ch <-chan Result, within time.Duration) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(within):
		t.Fatalf("timed out waiting for command result")
		return Result{} // unreachable
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func testBoard() []engine.Tile {
	board := make([]engine.Tile, engine.Size)
	for i := range board {
		var team engine.Team
		switch {
		case i <= 8:
			team = engine.TeamRed
		case i <= 16:
			team = engine.TeamBlue
		case i == 17:
			team = engine.TeamAssassin
		default:
			team = engine.TeamNeutral
		}
		board[i] = engine.Tile{Word: fmt.Sprintf("word%02d", i), Team: team}
	}
	return board
}

func testActiveState() engine.State {
	s := engine.NewLobbyState(testBoard(), engine.TeamRed, engine.Rules{})
	s.Players = map[string]engine.Player{
		"rs": {ID: "rs", Team: engine.TeamRed, Role: engine.RoleSpymaster},
		"ro": {ID: "ro", Team: engine.TeamRed, Role: engine.RoleOperative},
		"bs": {ID: "bs", Team: engine.TeamBlue, Role: engine.RoleSpymaster},
		"bo": {ID: "bo", Team: engine.TeamBlue, Role: engine.RoleOperative},
	}
	s.Status = engine.StatusActive
	return s
}

func TestSession_SubscribeSendsHiddenBoardToOperative(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, "GAME01", testActiveState(), Options{})

	out := make(chan Snapshot, 2)
	s.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "ro", Outbox: out}

	first := recvSnapshot(t, out, 100*time.Millisecond)
	if first.Version != 0 {
		t.Fatalf("after subscribe: want version=0, got %d", first.Version)
	}
	if len(first.Board) != engine.Size {
		t.Fatalf("want %d projected tiles, got %d", engine.Size, len(first.Board))
	}
	for i, tile := range first.Board {
		if tile.Team != engine.TeamHidden {
			t.Fatalf("tile %d leaked team %q to operative before any reveal", i, tile.Team)
		}
	}

	s.Inbox() <- Shutdown{}
}

func TestSession_SubscribeSendsFullBoardToSpymaster(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, "GAME01", testActiveState(), Options{})

	out := make(chan Snapshot, 2)
	s.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "rs", Outbox: out}

	first := recvSnapshot(t, out, 100*time.Millisecond)
	if first.Board[17].Team != engine.TeamAssassin {
		t.Fatalf("spymaster should see the assassin, got %q", first.Board[17].Team)
	}
}

func TestSession_CommandBroadcastsAndVersionIncrements(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, "GAME01", testActiveState(), Options{})

	out := make(chan Snapshot, 2)
	s.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "bo", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	reply := make(chan Result, 1)
	s.Inbox() <- FromClient{
		Cmd:   engine.Command{Type: engine.CmdReveal, PlayerID: "ro", TileIndex: 4},
		Reply: reply,
	}
	res := recvResult(t, reply, 100*time.Millisecond)
	if res.Err != nil {
		t.Fatalf("unexpected err: %v", res.Err)
	}
	if res.Status != engine.StatusActive || res.ActiveTeam != engine.TeamRed {
		t.Fatalf("unexpected result: %+v", res)
	}

	next := recvSnapshot(t, out, 100*time.Millisecond)
	if next.Version != 1 {
		t.Fatalf("after reveal: want version=1, got %d", next.Version)
	}
	// revealed tile is visible even to the blue operative
	if !next.Board[4].Revealed || next.Board[4].Team != engine.TeamRed {
		t.Fatalf("revealed tile not visible: %+v", next.Board[4])
	}
	if next.Board[5].Team != engine.TeamHidden {
		t.Fatalf("unrevealed tile leaked: %+v", next.Board[5])
	}
}

func TestSession_FailedCommandLeavesStateUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	init := testActiveState()
	init.Board[4].Revealed = true
	s := New(ctx, "GAME01", init, Options{})

	out := make(chan Snapshot, 2)
	s.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "ro", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	reply := make(chan Result, 1)
	s.Inbox() <- FromClient{
		Cmd:   engine.Command{Type: engine.CmdReveal, PlayerID: "ro", TileIndex: 4},
		Reply: reply,
	}
	res := recvResult(t, reply, 100*time.Millisecond)
	if !errors.Is(res.Err, engine.ErrTileAlreadyRevealed) {
		t.Fatalf("want ErrTileAlreadyRevealed, got %v", res.Err)
	}

	// no broadcast for a rejected command
	recvNoSnapshot(t, out, 100*time.Millisecond)

	view := make(chan View, 1)
	s.Inbox() <- GetState{Reply: view}
	v := recvView(t, view, 100*time.Millisecond)
	if v.Version != 0 {
		t.Fatalf("version changed on rejected command: %d", v.Version)
	}
	if v.State.ActiveTeam != engine.TeamRed || v.State.TurnCount != 0 {
		t.Fatalf("turn state changed on rejected command: %+v", v.State)
	}
}

func TestSession_DropSlowSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, "GAME01", testActiveState(), Options{})

	// buffer of one: the initial snapshot fills it, the next broadcast
	// finds it full and disconnects the subscriber
	out := make(chan Snapshot, 1)
	s.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "ro", Outbox: out}

	reply := make(chan Result, 1)
	s.Inbox() <- FromClient{
		Cmd:   engine.Command{Type: engine.CmdReveal, PlayerID: "ro", TileIndex: 0},
		Reply: reply,
	}
	_ = recvResult(t, reply, 100*time.Millisecond)

	view := make(chan View, 1)
	s.Inbox() <- GetState{Reply: view}
	v := recvView(t, view, 100*time.Millisecond)
	if v.NumClients != 0 {
		t.Fatalf("expected slow subscriber to be dropped; NumClients=%d", v.NumClients)
	}
}

func TestSession_ConcurrentRevealsBothApply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, "GAME01", testActiveState(), Options{})

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i, idx := range []int{0, 1} { // both red tiles, turn never passes
		wg.Add(1)
		go func(i, idx int) {
			defer wg.Done()
			reply := make(chan Result, 1)
			s.Inbox() <- FromClient{
				Cmd:   engine.Command{Type: engine.CmdReveal, PlayerID: "ro", TileIndex: idx},
				Reply: reply,
			}
			results[i] = <-reply
		}(i, idx)
	}
	wg.Wait()

	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("reveal %d failed: %v", i, res.Err)
		}
	}

	view := make(chan View, 1)
	s.Inbox() <- GetState{Reply: view}
	v := recvView(t, view, 100*time.Millisecond)
	if v.Version != 2 {
		t.Fatalf("want version=2 after two reveals, got %d", v.Version)
	}
	if !v.State.Board[0].Revealed || !v.State.Board[1].Revealed {
		t.Fatalf("lost update: %+v %+v", v.State.Board[0], v.State.Board[1])
	}
	if v.State.ActiveTeam != engine.TeamRed || v.State.TurnCount != 0 {
		t.Fatalf("turn state off after correct guesses: %+v", v.State)
	}
}

func TestSession_IdleShutdownAfterLastUnsubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idled := make(chan string, 1)
	s := New(ctx, "GAME01", testActiveState(), Options{
		IdleAfter: 20 * time.Millisecond,
		OnIdle:    func(id string) { idled <- id },
	})

	out := make(chan Snapshot, 2)
	s.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "ro", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	s.Inbox() <- Unsubscribe{ClientID: "c1"}

	select {
	case id := <-idled:
		if id != "GAME01" {
			t.Fatalf("want GAME01, got %q", id)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("idle eviction never fired")
	}
}

func TestSession_SubscriberKeepsSessionAlive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idled := make(chan string, 1)
	s := New(ctx, "GAME01", testActiveState(), Options{
		IdleAfter: 30 * time.Millisecond,
		OnIdle:    func(id string) { idled <- id },
	})

	out := make(chan Snapshot, 2)
	s.Inbox() <- Subscribe{ClientID: "c1", PlayerID: "ro", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	select {
	case <-idled:
		t.Fatalf("session evicted while a subscriber was connected")
	case <-time.After(150 * time.Millisecond):
	}

	view := make(chan View, 1)
	s.Inbox() <- GetState{Reply: view}
	_ = recvView(t, view, 100*time.Millisecond)
}
