// Package dispatch runs delayed tasks.
//
// Two schedulers are provided. [Pool] keeps tasks in memory: each scheduled
// task gets its own timer and, once the timer fires, is handed to a fixed
// number of workers. [Queue] stores tasks in Postgres through River, so a
// scheduled task survives a process restart and can be picked up by any
// worker process sharing the database.
//
// Both schedulers run every task exactly once. Neither retries a failed
// handler: the handler is expected to record its own outcome.
//
// # Pool
//
//	pool := dispatch.NewPool(deliver, abort,
//	    dispatch.WithWorkers(10),
//	    dispatch.WithLogger(log),
//	)
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(shutdownCtx)
//
//	err := pool.Schedule(ctx, 30*time.Second, task)
//
// Stop waits for pending timers and running tasks until its context is done.
// Tasks still waiting at that point are passed to the drop handler.
//
// # Queue
//
//	q, err := dispatch.NewQueue(dbPool, deliver,
//	    dispatch.WithQueueWorkers(10),
//	    dispatch.WithQueueLogger(log),
//	    dispatch.WithPeriodicTask("spool_sweep", "*/15 * * * *", sweep),
//	)
//
// Task payloads are encoded as JSON, so T must round-trip through
// encoding/json. River tables are created by [Migrate].
package dispatch
