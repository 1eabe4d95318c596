package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/fundora/internal/adapters/mq/queue"
	"github.com/okian/fundora/internal/adapters/mq/worker"
	"github.com/okian/fundora/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryWorker(t *testing.T) {
	_ = logger.Init()

	Convey("Given a worker over an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		w := worker.NewInMemoryWorker(q, worker.WithName("test"))
		ctx := context.Background()
		go w.Run(ctx)

		Convey("When jobs are queued and the queue is closed", func() {
			var got []int
			for i := 0; i < 5; i++ {
				i := i
				So(q.Enqueue(ctx, queue.Job{Key: "k", Ctx: ctx, Run: func(context.Context) { got = append(got, i) }}), ShouldBeNil)
			}
			So(q.Close(), ShouldBeNil)
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			Convey("Then every job runs in order before shutdown returns", func() {
				So(w.Shutdown(sctx), ShouldBeNil)
				So(got, ShouldResemble, []int{0, 1, 2, 3, 4})
			})
		})

		Convey("When a job panics", func() {
			var ran atomic.Bool
			So(q.Enqueue(ctx, queue.Job{Key: "k", Ctx: ctx, Run: func(context.Context) { panic("boom") }}), ShouldBeNil)
			So(q.Enqueue(ctx, queue.Job{Key: "k", Ctx: ctx, Run: func(context.Context) { ran.Store(true) }}), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			Convey("Then the worker survives and runs the next job", func() {
				So(w.Shutdown(sctx), ShouldBeNil)
				So(ran.Load(), ShouldBeTrue)
			})
		})

		Convey("When the submitter gave up before the job ran", func() {
			var ran atomic.Bool
			dead, cancel := context.WithCancel(ctx)
			cancel()
			// Enqueue with a live ctx, the job carries the dead one.
			So(q.Enqueue(ctx, queue.Job{Key: "k", Ctx: dead, Run: func(context.Context) { ran.Store(true) }}), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			sctx, scancel := context.WithTimeout(ctx, time.Second)
			defer scancel()

			Convey("Then the job is skipped", func() {
				So(w.Shutdown(sctx), ShouldBeNil)
				So(ran.Load(), ShouldBeFalse)
			})
		})
	})
}

func TestPool(t *testing.T) {
	_ = logger.Init()

	Convey("Given a started pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := worker.NewPool(worker.WithShards(4), worker.WithQueueSize(64))
		p.Start(ctx)
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			_ = p.Shutdown(sctx)
		}()

		Convey("Then shard selection is stable and in range", func() {
			So(p.Shards(), ShouldEqual, 4)
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("actor-%d", i)
				s := p.ShardFor(key)
				So(s, ShouldBeBetweenOrEqual, 0, 3)
				So(p.ShardFor(key), ShouldEqual, s)
			}
		})

		Convey("When many goroutines submit under one key", func() {
			var (
				mu       sync.Mutex
				active   int
				overlaps int
				total    int
				failures atomic.Int32
			)
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := p.Do(ctx, "actor-1", func(context.Context) {
						mu.Lock()
						active++
						if active > 1 {
							overlaps++
						}
						mu.Unlock()
						time.Sleep(time.Millisecond)
						mu.Lock()
						active--
						total++
						mu.Unlock()
					})
					if err != nil {
						failures.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then they never run concurrently", func() {
				So(failures.Load(), ShouldEqual, 0)
				So(overlaps, ShouldEqual, 0)
				So(total, ShouldEqual, 32)
			})
		})

		Convey("When one caller submits sequentially under a key", func() {
			var got []int
			done := make(chan struct{})
			for i := 0; i < 10; i++ {
				i := i
				So(p.Submit(ctx, "actor-2", func(context.Context) {
					got = append(got, i)
					if i == 9 {
						close(done)
					}
				}), ShouldBeNil)
			}

			Convey("Then jobs run in submission order", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
				}
				So(got, ShouldResemble, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
			})
		})

		Convey("When Do is given an expired context", func() {
			dead, dcancel := context.WithCancel(ctx)
			dcancel()
			err := p.Do(dead, "actor-3", func(context.Context) {})

			Convey("Then it reports the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the pool is shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			So(p.Shutdown(sctx), ShouldBeNil)

			Convey("Then new work is refused", func() {
				So(p.Submit(ctx, "actor-4", func(context.Context) {}), ShouldEqual, worker.ErrStopped)
				So(p.Shutdown(sctx), ShouldBeNil)
			})
		})
	})
}

func TestPoolBackpressure(t *testing.T) {
	_ = logger.Init()

	Convey("Given a single shard with room for one pending job", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := worker.NewPool(worker.WithShards(1), worker.WithQueueSize(1))

		Convey("Then submitting before Start fails", func() {
			So(p.Submit(ctx, "a", func(context.Context) {}), ShouldEqual, worker.ErrNotStarted)
		})

		Convey("When the only worker is blocked", func() {
			p.Start(ctx)
			release := make(chan struct{})
			started := make(chan struct{})
			So(p.Submit(ctx, "a", func(context.Context) {
				close(started)
				<-release
			}), ShouldBeNil)
			<-started

			var err error
			for i := 0; i < 10 && err == nil; i++ {
				err = p.Submit(ctx, "a", func(context.Context) {})
			}
			close(release)

			Convey("Then further submissions are rejected with backpressure", func() {
				So(err, ShouldEqual, worker.ErrBackpressure)
			})

			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			So(p.Shutdown(sctx), ShouldBeNil)
		})
	})
}
