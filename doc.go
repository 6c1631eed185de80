// Package postoffice is a transactional mail-dispatch pipeline.
//
// A [SendRequest] names a recipient, a sender, a subject, a stored template
// with its parameters, optional remote attachments and an optional delay.
// [PostOffice.Send] runs every request of a batch through the same steps:
//
//  1. The [Builder] validates each field and folds the results in a fixed
//     order: to, from, title, template, from name, parameters (rendering),
//     attachments (fetching), delay. The first failure wins.
//  2. The [Dispatcher] hands the finished [Message] to a mailer.Sender, either
//     on the caller's goroutine or later through a [Scheduler].
//  3. The [Recorder] appends exactly one records.Record per attempt, success
//     or failure, carrying a [Reason] code.
//
// Failures are reported as [*Error] values. errors.Is matches both the
// package sentinels defined here and those of the collaborating packages:
//
//	outcomes := po.Send(ctx, []postoffice.SendRequest{req})
//	if errors.Is(outcomes[0].Err, address.ErrBlockedDomain) {
//	    // recipient domain is blocked
//	}
//
// A request with a delay is accepted with [StatusScheduled]. Its outcome is
// recorded by the worker that eventually sends it.
package postoffice
