package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func job(key string) Job {
	return Job{Key: key, Ctx: context.Background(), Run: func(context.Context) {}}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue of capacity 2", t, func() {
		q := NewInMemoryQueue(WithCapacity(2))
		So(q.Cap(), ShouldEqual, 2)
		So(q.Len(), ShouldEqual, 0)

		Convey("When it is filled", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeNil)
			So(q.Enqueue(ctx, job("b")), ShouldBeNil)

			Convey("Then the next job is rejected instead of blocking", func() {
				So(errors.Is(q.Enqueue(ctx, job("c")), ErrFull), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 2)
			})

			Convey("Then jobs come out in order with an enqueue time", func() {
				out := q.Dequeue(ctx)
				first := <-out
				second := <-out
				So(first.Key, ShouldEqual, "a")
				So(second.Key, ShouldEqual, "b")
				So(first.EnqueuedAt.IsZero(), ShouldBeFalse)
			})

			Convey("Then closing still drains queued jobs", func() {
				So(q.Close(), ShouldBeNil)
				So(q.Close(), ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.Enqueue(ctx, job("d")), ErrClosed), ShouldBeTrue)

				var keys []string
				for j := range q.Dequeue(ctx) {
					keys = append(keys, j.Key)
				}
				So(keys, ShouldResemble, []string{"a", "b"})
			})
		})

		Convey("When the submitter context is done", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(errors.Is(q.Enqueue(cctx, job("a")), context.Canceled), ShouldBeTrue)
		})

		Convey("When the consumer context ends", func() {
			cctx, cancel := context.WithCancel(ctx)
			out := q.Dequeue(cctx)
			cancel()

			Convey("Then the dequeue channel closes", func() {
				select {
				case _, ok := <-out:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					So("dequeue channel still open", ShouldBeEmpty)
				}
			})
		})
	})
}
