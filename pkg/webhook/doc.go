// Package webhook records and delivers event notifications.
//
// Emission is two-phase. Phase one records exactly one WebhookEvent row
// inside the caller's transaction, so the mutation and its event are atomic:
// both commit or neither does. Phase two is delivery, performed by a worker
// pool reading undelivered rows (the durable queue) and POSTing to the
// account's subscribed endpoints with bounded retries. Recording never waits
// on delivery, and delivery is never conditioned on the original request
// completing.
//
// Event names must exist in the seeded catalog. Seeding is an idempotent
// upsert by name; an unknown name at emission time is a programming error
// surfaced as an internal failure while the mutation stays committed.
package webhook
