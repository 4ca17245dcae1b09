// Package history turns upstream legislation event history into persisted
// bill status rows.
//
// Normalize cleans raw events, ChangeDetector decides which bills need a fresh
// fetch, EventStore writes rows idempotently, and Attributor assigns a chamber
// to every stored status by scanning a bill's full history in order.
package history
