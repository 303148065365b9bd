package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/quicktagger/internal/adapters/repository"
	"github.com/okian/quicktagger/internal/adapters/repository/postgres"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// Runs only when QTAG_TEST_POSTGRES_DSN points at a scratch database.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("QTAG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QTAG_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	Convey("Given a postgres store", t, func() {
		s, err := postgres.Open(ctx, dsn, repository.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		defer s.Close()

		So(s.ApplySeed(ctx, repository.Seed{
			Analysts:    []repository.SeedAnalyst{{ID: "pg-analyst", Password: "pw"}},
			Tournaments: []repository.SeedTournament{{ID: "pg-t1", Name: "PG League"}},
			Teams: []repository.SeedTeam{
				{ID: "pg-x", Name: "X", TournamentID: "pg-t1"},
				{ID: "pg-y", Name: "Y", TournamentID: "pg-t1"},
			},
		}), ShouldBeNil)

		Convey("When a match is tagged end to end", func() {
			_, err := s.VerifyAnalyst(ctx, "pg-analyst", "pw")
			So(err, ShouldBeNil)
			m, err := s.CreateMatch(ctx, model.NewMatch{
				TournamentID: "pg-t1", TeamAID: "pg-x", TeamBID: "pg-y",
				StartTime: time.Now(), Status: model.MatchLive,
			})
			So(err, ShouldBeNil)
			So(s.InsertEvent(ctx, model.Event{MatchID: m.ID, TeamID: "pg-x", Type: model.Goal, MatchMinute: 2}), ShouldBeNil)

			Convey("Then the match can be finished", func() {
				So(s.UpdateMatchStatus(ctx, m.ID, model.MatchFinished), ShouldBeNil)
			})
		})

		Convey("When the analyst is unknown", func() {
			_, err := s.VerifyAnalyst(ctx, "pg-analyst", "wrong")

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
