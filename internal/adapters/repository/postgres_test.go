package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/okian/fundora/internal/domain/model"
	"github.com/pashagolub/pgxmock/v4"
	. "github.com/smartystreets/goconvey/convey"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(func() { mock.Close() })
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStoreInsert(t *testing.T) {
	ctx := context.Background()

	Convey("Given a postgres store", t, func() {
		s, mock := newMockPostgresStore(t)
		events := comparison("g1", "u1", epoch, "a", "b")

		Convey("When the claim is free", func() {
			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO interaction_claims`).
				WithArgs("c1", "g1").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			for _, e := range events {
				mock.ExpectExec(`INSERT INTO interaction_events`).
					WithArgs(e.ID, "c1", "u1", e.SubjectID, "comparison", "g1", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}
			mock.ExpectCommit()

			err := s.Insert(ctx, Claim{Key: "c1", Ref: "g1"}, events)

			Convey("Then claim and events are written in one transaction", func() {
				So(err, ShouldBeNil)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When the claim is taken", func() {
			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO interaction_claims .* ON CONFLICT \(claim_key\) DO NOTHING`).
				WithArgs("c1", "g1").
				WillReturnResult(pgxmock.NewResult("INSERT", 0))
			mock.ExpectRollback()

			err := s.Insert(ctx, Claim{Key: "c1", Ref: "g1"}, events)

			Convey("Then it reports a conflict and rolls back", func() {
				So(errors.Is(err, ErrConflict), ShouldBeTrue)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When an event hits a unique violation", func() {
			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO interaction_claims`).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectExec(`INSERT INTO interaction_events`).
				WillReturnError(&pgconn.PgError{Code: "23505"})
			mock.ExpectRollback()

			err := s.Insert(ctx, Claim{Key: "c1", Ref: "g1"}, events[:1])

			Convey("Then it is reported as a conflict", func() {
				So(errors.Is(err, ErrConflict), ShouldBeTrue)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When the database fails", func() {
			mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

			err := s.Insert(ctx, Claim{Key: "c1", Ref: "g1"}, events)

			Convey("Then the cause is wrapped", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "postgres: begin")
				So(errors.Is(err, ErrConflict), ShouldBeFalse)
			})
		})
	})
}

func TestPostgresStoreReads(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "actor_id", "subject_id", "kind", "group_id", "occurred_at"}

	Convey("Given a postgres store", t, func() {
		s, mock := newMockPostgresStore(t)

		Convey("When finding recent events for one subject", func() {
			mock.ExpectQuery(`SELECT id, actor_id, subject_id, kind, group_id, occurred_at FROM interaction_events`).
				WithArgs("u1", "view", pgxmock.AnyArg(), "a").
				WillReturnRows(pgxmock.NewRows(columns).
					AddRow("v1", "u1", "a", "view", "", epoch))

			got, err := s.FindRecent(ctx, Query{ActorID: "u1", Kind: model.KindView, SubjectID: "a", Since: epoch.Add(-time.Minute)})

			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].Kind, ShouldEqual, model.KindView)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("When a claim has no events", func() {
			mock.ExpectQuery(`WHERE claim_key = \$1`).
				WithArgs("missing").
				WillReturnRows(pgxmock.NewRows(columns))

			_, err := s.FindByClaim(ctx, "missing")

			So(errors.Is(err, ErrClaimNotFound), ShouldBeTrue)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("When counting", func() {
			mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(DISTINCT actor_id\)`).
				WithArgs("a", "comparison", pgxmock.AnyArg()).
				WillReturnRows(pgxmock.NewRows([]string{"total", "distinct", "recent"}).AddRow(int64(7), int64(3), int64(2)))

			c, err := s.Counts(ctx, "a", model.KindComparison, epoch)

			So(err, ShouldBeNil)
			So(c, ShouldResemble, model.InteractionCounts{Total: 7, DistinctActors: 3, Recent: 2})
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("When migrating", func() {
			mock.ExpectExec(`CREATE TABLE IF NOT EXISTS interaction_claims`).
				WillReturnResult(pgxmock.NewResult("CREATE", 0))

			So(s.Migrate(ctx), ShouldBeNil)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})
	})
}
