// Package dispatch routes bridge commands to an execution context and
// delivers exactly one correlated reply per handled command.
//
// The dispatcher drains a bounded mailbox on a single goroutine (serial
// FIFO dispatch, one command at a time). Handle may also be called directly;
// a mutex keeps concurrent direct callers serialized too.
//
// Routing:
//   - Handled opcodes invoke one client operation and reply on the same opcode
//   - Reserved opcodes (CREATE, GET_CH_UID) are accepted and produce no reply
//   - Unknown opcodes go to the default handler: logged, no reply
//
// Status mapping:
//   - Success → OK, plus a value for queries
//   - *status.Fault → the fault's status
//   - Any other error, or a panic in the client → ERROR
//   - Unparseable SET_CPS payload → ARG_PARSE_FAILED, client not called
//
// Reply delivery failures are logged and counted, never retried and never
// propagated. WAIT_COMPLETION blocks the dispatch goroutine until the
// execution context terminates; later commands wait behind it.
package dispatch
