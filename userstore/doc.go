// Package userstore provides the relational credential store backing the
// credlock engine.
//
// [Postgres] implements [credlock.UserStore] over database/sql with the pgx
// stdlib driver. Schema management is handled by [RunMigrations], which applies
// the embedded goose migrations.
//
// # Error classification
//
// Driver and SQL errors never escape this package raw: missing rows map to
// [credlock.ErrUserNotFound], unique violations on the identifier column map to
// [credlock.ErrAccountExists], and every other failure wraps
// [credlock.ErrStoreUnavailable].
//
// # What this package must NOT do
//
//   - Hash or verify passwords (the engine owns hashing).
//   - Touch Redis or session state.
package userstore
