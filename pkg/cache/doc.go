// Package cache provides a small generic TTL cache with in-memory and Redis backends.
//
// The postoffice service keeps two kinds of short-lived state in it: blocklist
// entries (domain blocks and recent delivery failures) and template lookups.
// Both backends implement [Cache], so a single-process deployment runs on
// [Memory] while a fleet shares state through [Redis].
//
// TTL semantics for Set:
//   - Positive duration: the entry expires after this duration
//   - Zero: the backend default TTL applies
//   - Negative: the entry never expires
//
// [GetOrSet] reads through the cache and collapses concurrent misses for the
// same key into a single loader call:
//
//	tmpl, err := cache.GetOrSet(ctx, c, name, func(ctx context.Context) (mailer.Template, time.Duration, error) {
//	    t, err := store.FindByName(ctx, name)
//	    return t, 5 * time.Minute, err
//	})
package cache
