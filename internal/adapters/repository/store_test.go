package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/fundora/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func comparison(group, actor string, at time.Time, subjects ...string) []model.InteractionEvent {
	out := make([]model.InteractionEvent, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, model.InteractionEvent{
			ID:         group + "-" + s,
			ActorID:    actor,
			SubjectID:  s,
			Kind:       model.KindComparison,
			GroupID:    group,
			OccurredAt: at,
		})
	}
	return out
}

func view(id, actor, subject string, at time.Time) []model.InteractionEvent {
	return []model.InteractionEvent{{ID: id, ActorID: actor, SubjectID: subject, Kind: model.KindView, OccurredAt: at}}
}

// storeContract runs the behaviour every EventStore must share.
func storeContract(newStore func() EventStore) {
	ctx := context.Background()

	Convey("When a claim is inserted", func() {
		s := newStore()
		defer s.Close()

		err := s.Insert(ctx, Claim{Key: "c1", Ref: "g1"}, comparison("g1", "u1", epoch, "a", "b"))
		So(err, ShouldBeNil)

		Convey("Then the same claim conflicts and writes nothing", func() {
			err := s.Insert(ctx, Claim{Key: "c1", Ref: "g2"}, comparison("g2", "u1", epoch, "a", "b"))
			So(errors.Is(err, ErrConflict), ShouldBeTrue)

			got, err := s.FindByClaim(ctx, "c1")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].GroupID, ShouldEqual, "g1")
		})

		Convey("Then recent lookups see the events newest first", func() {
			So(s.Insert(ctx, Claim{Key: "c2", Ref: "g3"}, comparison("g3", "u1", epoch.Add(time.Minute), "c", "d")), ShouldBeNil)

			got, err := s.FindRecent(ctx, Query{ActorID: "u1", Kind: model.KindComparison, Since: epoch.Add(-time.Minute)})
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 4)
			So(got[0].GroupID, ShouldEqual, "g3")
			So(got[0].OccurredAt.Equal(epoch.Add(time.Minute)), ShouldBeTrue)

			got, err = s.FindRecent(ctx, Query{ActorID: "u1", Kind: model.KindComparison, Since: epoch.Add(30 * time.Second)})
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)

			got, err = s.FindRecent(ctx, Query{ActorID: "u1", Kind: model.KindComparison, SubjectID: "a", Since: epoch.Add(-time.Hour)})
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)

			got, err = s.FindRecent(ctx, Query{ActorID: "u2", Kind: model.KindComparison, Since: epoch.Add(-time.Hour)})
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})
	})

	Convey("When an unknown claim is looked up", func() {
		s := newStore()
		defer s.Close()
		_, err := s.FindByClaim(ctx, "missing")
		So(errors.Is(err, ErrClaimNotFound), ShouldBeTrue)
	})

	Convey("When an insert is empty", func() {
		s := newStore()
		defer s.Close()
		So(errors.Is(s.Insert(ctx, Claim{Key: "k"}, nil), ErrInvalidEvent), ShouldBeTrue)
		So(errors.Is(s.Insert(ctx, Claim{}, view("v", "u", "a", epoch)), ErrInvalidEvent), ShouldBeTrue)
	})

	Convey("When views are counted", func() {
		s := newStore()
		defer s.Close()
		So(s.Insert(ctx, Claim{Key: "v1"}, view("v1", "u1", "a", epoch.Add(-40*24*time.Hour))), ShouldBeNil)
		So(s.Insert(ctx, Claim{Key: "v2"}, view("v2", "u1", "a", epoch)), ShouldBeNil)
		So(s.Insert(ctx, Claim{Key: "v3"}, view("v3", "u2", "a", epoch)), ShouldBeNil)
		So(s.Insert(ctx, Claim{Key: "v4"}, view("v4", "u2", "b", epoch)), ShouldBeNil)

		c, err := s.Counts(ctx, "a", model.KindView, epoch.Add(-30*24*time.Hour))
		So(err, ShouldBeNil)
		So(c, ShouldResemble, model.InteractionCounts{Total: 3, DistinctActors: 2, Recent: 2})

		c, err = s.Counts(ctx, "a", model.KindComparison, epoch)
		So(err, ShouldBeNil)
		So(c, ShouldResemble, model.InteractionCounts{})
	})

	Convey("When many writers race for one claim", func() {
		s := newStore()
		defer s.Close()

		const n = 24
		var wins, conflicts atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				g := fmt.Sprintf("g%d", i)
				err := s.Insert(ctx, Claim{Key: "race", Ref: g}, comparison(g, "u1", epoch, "a", "b"))
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, ErrConflict):
					conflicts.Add(1)
				}
			}(i)
		}
		wg.Wait()

		So(wins.Load(), ShouldEqual, 1)
		So(conflicts.Load(), ShouldEqual, n-1)
		got, err := s.FindByClaim(ctx, "race")
		So(err, ShouldBeNil)
		So(got, ShouldHaveLength, 2)
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		storeContract(func() EventStore { return NewMemoryStore() })
	})
}

func TestMemoryStoreClaimBound(t *testing.T) {
	Convey("Given a memory store that holds one claim", t, func() {
		ctx := context.Background()
		s, err := Open(ctx, DriverMemory, "", WithClaimIndexSize(1))
		So(err, ShouldBeNil)
		mem := s.(*MemoryStore)

		So(mem.Insert(ctx, Claim{Key: "A", Ref: "g1"}, view("v1", "u1", "s1", epoch)), ShouldBeNil)

		Convey("When a second claim pushes the first out", func() {
			So(mem.Insert(ctx, Claim{Key: "B", Ref: "g2"}, view("v2", "u1", "s2", epoch)), ShouldBeNil)
			So(mem.Claims(), ShouldEqual, 1)

			Convey("Then the first claim no longer resolves", func() {
				_, err := mem.FindByClaim(ctx, "A")
				So(errors.Is(err, ErrClaimNotFound), ShouldBeTrue)

				got, err := mem.FindByClaim(ctx, "B")
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
			})

			Convey("Then the first key can be claimed again", func() {
				So(mem.Insert(ctx, Claim{Key: "A", Ref: "g3"}, view("v3", "u1", "s1", epoch)), ShouldBeNil)

				got, err := mem.FindByClaim(ctx, "A")
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, "v3")

				_, err = mem.FindByClaim(ctx, "B")
				So(errors.Is(err, ErrClaimNotFound), ShouldBeTrue)
			})

			Convey("Then evicted events still count as history", func() {
				got, err := mem.FindRecent(ctx, Query{ActorID: "u1", Kind: model.KindView, Since: epoch.Add(-time.Hour)})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
			})
		})

		Convey("When the held claim is inserted again", func() {
			err := mem.Insert(ctx, Claim{Key: "A", Ref: "g2"}, view("v2", "u1", "s1", epoch))
			So(errors.Is(err, ErrConflict), ShouldBeTrue)
			So(mem.Claims(), ShouldEqual, 1)
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	Convey("Given a sqlite store", t, func() {
		storeContract(func() EventStore {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "events.db"))
			So(err, ShouldBeNil)
			So(s.Migrate(context.Background()), ShouldBeNil)
			return s
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given store drivers", t, func() {
		ctx := context.Background()

		s, err := Open(ctx, "", "")
		So(err, ShouldBeNil)
		So(s, ShouldHaveSameTypeAs, &MemoryStore{})

		s, err = Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "open.db"))
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		_, err = Open(ctx, "mongo", "")
		So(errors.Is(err, ErrUnknownDriver), ShouldBeTrue)
	})
}
