// Package hash provides password hashing behind a small interface.
//
// Only the hash is stored; login compares user input against it. The bcrypt
// implementation appends an optional pepper kept in configuration.
package hash
