package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/quicktagger/internal/adapters/repository/memory"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/internal/domain/roster"
	"github.com/okian/quicktagger/internal/domain/session"
	"github.com/okian/quicktagger/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fixture struct {
	store *memory.Store
	fc    *clockwork.FakeClock
	m     *session.Machine
}

func newFixture() *fixture {
	store := memory.New(
		memory.WithAnalyst("a1", "pw"),
		memory.WithTournament(model.Tournament{ID: "t1", Name: "League"}),
		memory.WithTournament(model.Tournament{ID: "t2", Name: "Cup"}),
		memory.WithTeam(model.Team{ID: "x", Name: "X", TournamentID: "t1"}),
		memory.WithTeam(model.Team{ID: "y", Name: "Y", TournamentID: "t1"}),
		memory.WithTeam(model.Team{ID: "z", Name: "Z", TournamentID: "t1"}),
		memory.WithTeam(model.Team{ID: "c", Name: "C", TournamentID: "t2"}),
	)
	fc := clockwork.NewFakeClock()
	cache := roster.New(store, roster.WithLogger(logger.Nop()))
	m := session.New(store, cache,
		session.WithTimeSource(fc),
		session.WithLogger(logger.Nop()),
	)
	return &fixture{store: store, fc: fc, m: m}
}

// eventually polls cond until it holds or a second has passed.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

// tick advances the fake clock one second at a time until the match clock
// has counted n more seconds.
func (f *fixture) tick(n int) bool {
	for i := 0; i < n; i++ {
		want := f.m.Clock().Seconds() + 1
		f.fc.Advance(time.Second)
		if !eventually(func() bool { return f.m.Clock().Seconds() == want }) {
			return false
		}
	}
	return true
}

func (f *fixture) configure(ctx context.Context) {
	So(f.m.Login(ctx, "a1", "pw"), ShouldBeNil)
	So(f.m.SelectTournament("t1"), ShouldBeNil)
	So(f.m.SelectTeamA("x"), ShouldBeNil)
	So(f.m.SelectTeamB("y"), ShouldBeNil)
	So(f.m.SetDetails("Matchday 3"), ShouldBeNil)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	Convey("Given an unauthenticated session", t, func() {
		f := newFixture()
		defer f.m.Close()

		Convey("When the password is wrong", func() {
			err := f.m.Login(ctx, "a1", "nope")

			Convey("Then it should stay unauthenticated with an authentication error", func() {
				So(errors.Is(err, session.ErrAuthentication), ShouldBeTrue)
				So(f.m.Screen(), ShouldEqual, session.Unauthenticated)
			})
		})

		Convey("When the persistence service is down", func() {
			f.store.Fail(memory.OpVerifyAnalyst, errors.New("connection refused"))
			err := f.m.Login(ctx, "a1", "pw")

			Convey("Then it should be reported the same way", func() {
				So(errors.Is(err, session.ErrAuthentication), ShouldBeTrue)
				So(f.m.Screen(), ShouldEqual, session.Unauthenticated)
			})
		})

		Convey("When the credentials match", func() {
			So(f.m.Login(ctx, "a1", "pw"), ShouldBeNil)

			Convey("Then it should be configuring with the roster loaded", func() {
				snap := f.m.Snapshot()
				So(snap.Screen, ShouldEqual, session.Configuring)
				So(snap.AnalystID, ShouldEqual, "a1")
				So(snap.Ready, ShouldBeFalse)

				So(f.m.SelectTournament("t1"), ShouldBeNil)
				So(f.m.Candidates().TeamA, ShouldHaveLength, 3)
			})

			Convey("Then logging in again should be rejected", func() {
				err := f.m.Login(ctx, "a1", "pw")
				So(errors.Is(err, session.ErrInvalidTransition), ShouldBeTrue)
			})
		})

		Convey("When the roster cannot be fetched", func() {
			f.store.Fail(memory.OpListTournaments, errors.New("timeout"))
			f.store.Fail(memory.OpListTeams, errors.New("timeout"))

			Convey("Then login should still succeed with empty lists", func() {
				So(f.m.Login(ctx, "a1", "pw"), ShouldBeNil)
				So(f.m.Screen(), ShouldEqual, session.Configuring)
				So(errors.Is(f.m.SelectTournament("t1"), session.ErrInvalidSelection), ShouldBeTrue)
			})
		})
	})
}

func TestSetup(t *testing.T) {
	ctx := context.Background()

	Convey("Given a logged in analyst", t, func() {
		f := newFixture()
		defer f.m.Close()
		So(f.m.Login(ctx, "a1", "pw"), ShouldBeNil)

		Convey("When a tournament and team A are selected", func() {
			So(f.m.SelectTournament("t1"), ShouldBeNil)
			So(f.m.SelectTeamA("x"), ShouldBeNil)

			Convey("Then team B candidates should exclude team A", func() {
				c := f.m.Candidates()
				So(c.TeamA, ShouldHaveLength, 3)
				So(c.TeamB, ShouldHaveLength, 2)
				for _, team := range c.TeamB {
					So(team.ID, ShouldNotEqual, "x")
				}
			})

			Convey("Then team A cannot also be team B", func() {
				err := f.m.SelectTeamB("x")
				So(errors.Is(err, session.ErrInvalidSelection), ShouldBeTrue)
			})

			Convey("Then a team from another tournament is rejected", func() {
				So(errors.Is(f.m.SelectTeamB("c"), session.ErrInvalidSelection), ShouldBeTrue)
				So(errors.Is(f.m.SelectTeamA("c"), session.ErrInvalidSelection), ShouldBeTrue)
			})

			Convey("Then choosing team B makes the setup ready", func() {
				So(f.m.SelectTeamB("y"), ShouldBeNil)
				So(f.m.Ready(), ShouldBeTrue)
			})
		})

		Convey("When team A is changed to the current team B", func() {
			So(f.m.SelectTournament("t1"), ShouldBeNil)
			So(f.m.SelectTeamA("x"), ShouldBeNil)
			So(f.m.SelectTeamB("y"), ShouldBeNil)
			So(f.m.SelectTeamA("y"), ShouldBeNil)

			Convey("Then team B should be cleared", func() {
				sel := f.m.Snapshot().Selection
				So(sel.TeamAID, ShouldEqual, "y")
				So(sel.TeamBID, ShouldBeEmpty)
				So(f.m.Ready(), ShouldBeFalse)
			})
		})

		Convey("When the tournament changes", func() {
			So(f.m.SelectTournament("t1"), ShouldBeNil)
			So(f.m.SelectTeamA("x"), ShouldBeNil)
			So(f.m.SelectTeamB("y"), ShouldBeNil)
			So(f.m.SelectTournament("t2"), ShouldBeNil)

			Convey("Then both teams should be cleared", func() {
				sel := f.m.Snapshot().Selection
				So(sel.TournamentID, ShouldEqual, "t2")
				So(sel.TeamAID, ShouldBeEmpty)
				So(sel.TeamBID, ShouldBeEmpty)
			})
		})

		Convey("When team B is chosen before team A", func() {
			So(f.m.SelectTournament("t1"), ShouldBeNil)
			err := f.m.SelectTeamB("y")

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, session.ErrInvalidSelection), ShouldBeTrue)
				So(f.m.Candidates().TeamB, ShouldBeEmpty)
			})
		})

		Convey("When start is triggered with an incomplete setup", func() {
			So(f.m.SelectTournament("t1"), ShouldBeNil)
			_, err := f.m.StartMatch(ctx)

			Convey("Then nothing should be created", func() {
				So(errors.Is(err, session.ErrNotReady), ShouldBeTrue)
				So(f.store.Matches(), ShouldBeEmpty)
				So(f.m.Screen(), ShouldEqual, session.Configuring)
			})
		})
	})
}

func TestStartMatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a ready setup", t, func() {
		f := newFixture()
		defer f.m.Close()
		f.configure(ctx)

		Convey("When match creation fails", func() {
			f.store.Fail(memory.OpCreateMatch, errors.New("insert failed"))
			_, err := f.m.StartMatch(ctx)

			Convey("Then it should stay configuring with the selection kept", func() {
				So(errors.Is(err, session.ErrMatchCreation), ShouldBeTrue)
				snap := f.m.Snapshot()
				So(snap.Screen, ShouldEqual, session.Configuring)
				So(snap.Selection, ShouldResemble, session.Selection{
					TournamentID: "t1", TeamAID: "x", TeamBID: "y", Details: "Matchday 3",
				})
				So(snap.Starting, ShouldBeFalse)
				So(f.m.Clock().Running(), ShouldBeFalse)
			})
		})

		Convey("When the match is created", func() {
			created, err := f.m.StartMatch(ctx)
			So(err, ShouldBeNil)

			Convey("Then it should be tagging a live match from zero", func() {
				snap := f.m.Snapshot()
				So(snap.Screen, ShouldEqual, session.Tagging)
				So(snap.Clock, ShouldEqual, "00:00")
				So(snap.AttackingThird, ShouldBeFalse)
				So(snap.Match.ID, ShouldEqual, created.ID)

				stored, ok := f.store.Match(created.ID)
				So(ok, ShouldBeTrue)
				So(stored.Status, ShouldEqual, model.MatchLive)
				So(stored.TeamAID, ShouldEqual, "x")
				So(stored.TeamBID, ShouldEqual, "y")
				So(stored.Details, ShouldEqual, "Matchday 3")
				So(stored.StartTime.Equal(f.fc.Now().UTC()), ShouldBeTrue)
			})

			Convey("Then setup edits should be rejected", func() {
				So(errors.Is(f.m.SelectTeamA("z"), session.ErrInvalidTransition), ShouldBeTrue)
			})
		})
	})
}

func TestTagging(t *testing.T) {
	ctx := context.Background()

	Convey("Given a match being tagged", t, func() {
		f := newFixture()
		defer f.m.Close()
		f.configure(ctx)
		match, err := f.m.StartMatch(ctx)
		So(err, ShouldBeNil)

		Convey("When a goal for X is stamped at 02:05", func() {
			So(f.tick(125), ShouldBeTrue)
			stamp, err := f.m.Stamp("x", model.Goal)
			So(err, ShouldBeNil)

			Convey("Then it should carry minute 2 and the team name", func() {
				So(f.m.Snapshot().Clock, ShouldEqual, "02:05")
				So(stamp.Event, ShouldResemble, model.Event{
					MatchID:        match.ID,
					TeamID:         "x",
					Type:           model.Goal,
					AttackingThird: false,
					MatchMinute:    2,
				})
				So(stamp.TeamName, ShouldEqual, "X")
			})

			Convey("Then confirming it should show a toast for two seconds", func() {
				So(f.m.Confirm(stamp.Epoch, "Logged: X - Goal"), ShouldBeTrue)
				msg, ok := f.m.Feedback().Current()
				So(ok, ShouldBeTrue)
				So(msg.Text, ShouldEqual, "Logged: X - Goal")

				f.fc.Advance(2 * time.Second)
				So(eventually(func() bool {
					_, ok := f.m.Feedback().Current()
					return !ok
				}), ShouldBeTrue)
			})
		})

		Convey("When the attacking third modifier is on", func() {
			on, err := f.m.ToggleAttackingThird()
			So(err, ShouldBeNil)
			So(on, ShouldBeTrue)
			stamp, err := f.m.Stamp("y", model.ShotOnTarget)
			So(err, ShouldBeNil)

			Convey("Then the event should carry it", func() {
				So(stamp.Event.AttackingThird, ShouldBeTrue)
				So(stamp.Event.MatchMinute, ShouldEqual, 0)
			})

			Convey("Then toggling again should clear it", func() {
				on, err := f.m.ToggleAttackingThird()
				So(err, ShouldBeNil)
				So(on, ShouldBeFalse)
			})

			Convey("Then the next match should start with it off", func() {
				So(f.m.EndMatch(ctx), ShouldBeNil)
				_, err := f.m.StartMatch(ctx)
				So(err, ShouldBeNil)
				So(f.m.Snapshot().AttackingThird, ShouldBeFalse)
			})
		})

		Convey("When a team outside the match is stamped", func() {
			_, err := f.m.Stamp("z", model.Foul)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, session.ErrUnknownTeam), ShouldBeTrue)
			})
		})

		Convey("When an invalid event type is stamped", func() {
			_, err := f.m.Stamp("x", model.EventType(99))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, model.ErrUnknownEventType), ShouldBeTrue)
			})
		})
	})

	Convey("Given no active match", t, func() {
		f := newFixture()
		defer f.m.Close()
		f.configure(ctx)

		Convey("When an event is stamped", func() {
			_, err := f.m.Stamp("x", model.Goal)

			Convey("Then there is nothing to attach it to", func() {
				So(errors.Is(err, session.ErrNoActiveMatch), ShouldBeTrue)
				_, err = f.m.ToggleAttackingThird()
				So(errors.Is(err, session.ErrNoActiveMatch), ShouldBeTrue)
			})
		})
	})
}

func TestEndMatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a match that ran for a while", t, func() {
		f := newFixture()
		defer f.m.Close()
		f.configure(ctx)
		match, err := f.m.StartMatch(ctx)
		So(err, ShouldBeNil)
		So(f.tick(3), ShouldBeTrue)

		Convey("When it is ended", func() {
			So(f.m.EndMatch(ctx), ShouldBeNil)
			f.m.Wait()

			Convey("Then the clock stops and the match is finished", func() {
				snap := f.m.Snapshot()
				So(snap.Screen, ShouldEqual, session.Configuring)
				So(snap.Match, ShouldBeNil)
				So(snap.Clock, ShouldEqual, "00:00")
				So(f.m.Clock().Running(), ShouldBeFalse)

				stored, _ := f.store.Match(match.ID)
				So(stored.Status, ShouldEqual, model.MatchFinished)
			})

			Convey("Then the previous selection is kept", func() {
				So(f.m.Ready(), ShouldBeTrue)
				So(f.m.Snapshot().Selection.TeamAID, ShouldEqual, "x")
			})
		})

		Convey("When the status update fails", func() {
			f.store.Fail(memory.OpUpdateMatchStatus, errors.New("bad gateway"))
			So(f.m.EndMatch(ctx), ShouldBeNil)
			f.m.Wait()

			Convey("Then the session still returns to configuring", func() {
				So(f.m.Screen(), ShouldEqual, session.Configuring)
				stored, _ := f.store.Match(match.ID)
				So(stored.Status, ShouldEqual, model.MatchLive)
			})
		})

		Convey("When it is ended twice", func() {
			So(f.m.EndMatch(ctx), ShouldBeNil)
			err := f.m.EndMatch(ctx)

			Convey("Then the second call is rejected", func() {
				So(errors.Is(err, session.ErrInvalidTransition), ShouldBeTrue)
			})
		})
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	Convey("Given a match being tagged", t, func() {
		f := newFixture()
		defer f.m.Close()
		f.configure(ctx)
		match, err := f.m.StartMatch(ctx)
		So(err, ShouldBeNil)
		stamp, err := f.m.Stamp("x", model.Goal)
		So(err, ShouldBeNil)

		Convey("When the analyst logs out", func() {
			f.m.Logout(ctx)

			Convey("Then everything is discarded", func() {
				snap := f.m.Snapshot()
				So(snap.Screen, ShouldEqual, session.Unauthenticated)
				So(snap.AnalystID, ShouldBeEmpty)
				So(snap.Selection, ShouldResemble, session.Selection{})
				So(snap.Match, ShouldBeNil)
				So(snap.Feedback, ShouldBeNil)
				So(f.m.Clock().Running(), ShouldBeFalse)
			})

			Convey("Then the remote match is left live", func() {
				f.m.Wait()
				stored, _ := f.store.Match(match.ID)
				So(stored.Status, ShouldEqual, model.MatchLive)
			})

			Convey("Then a late confirmation is not shown", func() {
				So(f.m.Confirm(stamp.Epoch, "Logged: X - Goal"), ShouldBeFalse)
				So(f.m.Login(ctx, "a1", "pw"), ShouldBeNil)
				So(f.m.Confirm(stamp.Epoch, "Logged: X - Goal"), ShouldBeFalse)
				_, ok := f.m.Feedback().Current()
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestObserve(t *testing.T) {
	ctx := context.Background()

	Convey("Given an observer", t, func() {
		f := newFixture()
		defer f.m.Close()
		snaps := make(chan session.Snapshot, 64)
		f.m.Observe(func(s session.Snapshot) {
			select {
			case snaps <- s:
			default:
			}
		})

		Convey("When the analyst logs in", func() {
			So(f.m.Login(ctx, "a1", "pw"), ShouldBeNil)

			Convey("Then a configuring snapshot is delivered", func() {
				seen := false
				timeout := time.After(time.Second)
				for !seen {
					select {
					case s := <-snaps:
						seen = s.Screen == session.Configuring
					case <-timeout:
						So("no configuring snapshot", ShouldBeEmpty)
						return
					}
				}
				So(seen, ShouldBeTrue)
			})
		})
	})
}
