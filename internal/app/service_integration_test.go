package service_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	service "github.com/okian/quicktagger/internal/app"
	"github.com/okian/quicktagger/internal/adapters/repository/memory"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/internal/domain/session"
	"github.com/okian/quicktagger/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []model.Event
	closed bool
}

func (p *capturePublisher) Publish(_ context.Context, e model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func toast(svc *service.Service) string {
	if fb := svc.Snapshot().Feedback; fb != nil {
		return fb.Text
	}
	return ""
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service over the demo store", t, func() {
		store := memory.New()
		So(store.LoadSeed(bytes.NewReader(memory.DemoSeed())), ShouldBeNil)
		fc := clockwork.NewFakeClock()
		pub := &capturePublisher{}

		svc := service.New(
			service.WithStore(store),
			service.WithTimeSource(fc),
			service.WithPublisher(pub),
			service.WithWorkerCount(1),
			service.WithLogger(logger.Nop()),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		var (
			obsMu   sync.Mutex
			screens []session.Screen
		)
		svc.Observe(func(s session.Snapshot) {
			obsMu.Lock()
			screens = append(screens, s.Screen)
			obsMu.Unlock()
		})

		tick := func(n int) bool {
			for i := 0; i < n; i++ {
				want := svc.Snapshot().Seconds + 1
				fc.Advance(time.Second)
				if !eventually(func() bool { return svc.Snapshot().Seconds == want }) {
					return false
				}
			}
			return true
		}

		So(svc.Login(ctx, "demo", "demo"), ShouldBeNil)
		So(svc.SelectTournament("1"), ShouldBeNil)
		So(svc.SelectTeamA("11"), ShouldBeNil)
		So(svc.SelectTeamB("12"), ShouldBeNil)
		m, err := svc.StartMatch(ctx)
		So(err, ShouldBeNil)
		So(svc.Snapshot().Clock, ShouldEqual, "00:00")

		Convey("When a goal is tagged at 02:05", func() {
			So(tick(125), ShouldBeTrue)
			So(svc.Snapshot().Clock, ShouldEqual, "02:05")

			rc, err := svc.Record(ctx, "11", model.Goal, "")
			So(err, ShouldBeNil)
			So(rc.Event.MatchMinute, ShouldEqual, 2)

			Convey("Then the event is stored, confirmed and mirrored", func() {
				So(eventually(func() bool { return len(store.Events()) == 1 }), ShouldBeTrue)
				So(store.Events()[0], ShouldResemble, model.Event{
					MatchID: m.ID, TeamID: "11", Type: model.Goal, MatchMinute: 2,
				})
				So(eventually(func() bool { return toast(svc) == "Logged: Harbor City - Goal" }), ShouldBeTrue)
				So(eventually(func() bool { return pub.count() == 1 }), ShouldBeTrue)

				fc.Advance(2 * time.Second)
				So(eventually(func() bool { return toast(svc) == "" }), ShouldBeTrue)
			})
		})

		Convey("When the modifier is toggled between taps", func() {
			So(svc.SetAttackingThird(true), ShouldBeNil)
			_, err := svc.Record(ctx, "12", model.Shot, "")
			So(err, ShouldBeNil)
			on, err := svc.ToggleAttackingThird()
			So(err, ShouldBeNil)
			So(on, ShouldBeFalse)
			_, err = svc.Record(ctx, "12", model.Shot, "")
			So(err, ShouldBeNil)

			Convey("Then the stored events carry the flag in order", func() {
				So(eventually(func() bool { return len(store.Events()) == 2 }), ShouldBeTrue)
				events := store.Events()
				So(events[0].AttackingThird, ShouldBeTrue)
				So(events[1].AttackingThird, ShouldBeFalse)
			})
		})

		Convey("When the same key is sent twice", func() {
			first, err := svc.Record(ctx, "11", model.Foul, "tap-1")
			So(err, ShouldBeNil)
			second, err := svc.Record(ctx, "11", model.Foul, "tap-1")
			So(err, ShouldBeNil)

			Convey("Then only one event is written", func() {
				So(first.Duplicate, ShouldBeFalse)
				So(second.Duplicate, ShouldBeTrue)
				So(eventually(func() bool { return len(store.Events()) == 1 }), ShouldBeTrue)
				So(svc.GetStats()["dedupeKeys"], ShouldEqual, int64(1))
			})
		})

		Convey("When the match ends", func() {
			So(svc.EndMatch(ctx), ShouldBeNil)

			Convey("Then the session is configuring and the match is finished", func() {
				So(svc.Snapshot().Screen, ShouldEqual, session.Configuring)
				So(svc.Snapshot().Match, ShouldBeNil)
				svc.Stop()
				got, ok := store.Match(m.ID)
				So(ok, ShouldBeTrue)
				So(got.Status, ShouldEqual, model.MatchFinished)
				So(pub.closed, ShouldBeTrue)
			})
		})

		Convey("Observers follow the screens", func() {
			So(eventually(func() bool {
				obsMu.Lock()
				defer obsMu.Unlock()
				return len(screens) > 0 && screens[len(screens)-1] == session.Tagging
			}), ShouldBeTrue)
		})

		Reset(func() { svc.Stop() })
	})
}
