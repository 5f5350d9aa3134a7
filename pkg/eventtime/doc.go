// Package eventtime converts timestamps into the two representations a
// Fluentd collector accepts: whole epoch seconds as a plain integer, or the
// EventTime msgpack extension (type 0) carrying big-endian uint32 seconds
// followed by big-endian uint32 nanoseconds.
//
// The representation is chosen once per client with a Mode and every Value
// produced by that client uses it.
package eventtime
