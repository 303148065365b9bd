package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	service "github.com/okian/quicktagger/internal/app"
	"github.com/okian/quicktagger/internal/adapters/repository/memory"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/internal/domain/session"
	"github.com/okian/quicktagger/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("Then it serves the demo roster", func() {
			So(svc.Login(context.Background(), "demo", "demo"), ShouldBeNil)
			r := svc.Roster()
			So(len(r.Tournaments), ShouldEqual, 2)
			So(len(r.Teams), ShouldEqual, 5)
		})

		Convey("And it starts unauthenticated and stopped", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["screen"], ShouldEqual, "unauthenticated")
			So(stats["clock"], ShouldEqual, "00:00")
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(3),
			service.WithQueueSize(64),
			service.WithDedupeSize(0),
			service.WithTickInterval(500*time.Millisecond),
			service.WithFeedbackTTL(time.Second),
			service.WithLogger(logger.Nop()),
		)
		defer svc.Stop()

		Convey("Then the stats reflect them", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["queueCapacity"], ShouldEqual, 64)
			So(stats["dedupeSize"], ShouldEqual, 0)
			So(stats, ShouldNotContainKey, "dedupeKeys")
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service over a memory store", t, func() {
		store := memory.New(memory.WithAnalyst("a1", "pw"))
		svc := service.New(service.WithStore(store), service.WithLogger(logger.Nop()))

		Convey("Start is idempotent", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			Convey("And Stop is idempotent", func() {
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("A stopped service cannot be restarted", func() {
			svc.Stop()
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Forwarded triggers keep their errors", func() {
			defer svc.Stop()
			err := svc.Login(context.Background(), "a1", "bad")
			So(errors.Is(err, session.ErrAuthentication), ShouldBeTrue)

			_, err = svc.Record(context.Background(), "x", model.Goal, "")
			So(errors.Is(err, session.ErrNoActiveMatch), ShouldBeTrue)

			_, err = svc.StartMatch(context.Background())
			So(errors.Is(err, session.ErrInvalidTransition), ShouldBeTrue)
		})
	})
}
