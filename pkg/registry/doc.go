/*
Package registry is the client's persistent job store: a single bbolt file
under the execution root, reproducing the semantics of the sqlite schema
spec.md describes (autoincrement id, unique identifier, status, batch_id,
start_time) over a KV store, since no SQLite driver exists anywhere in the
retrieval pack. bbolt's NextSequence supplies the autoincrement id; a
secondary index bucket keyed by identifier enforces uniqueness before insert.
Every write commits inside a single db.Update transaction, so a crash never
leaves a partially-applied row — the same "immediate transaction" guarantee
spec.md asks for.
*/
package registry
