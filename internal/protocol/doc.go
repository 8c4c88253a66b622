// Package protocol defines the bridge message set: the closed opcode set,
// commands, replies and their newline-delimited JSON wire form.
//
// Every accepted command yields exactly one reply on the same opcode, sent to
// the command's ReplyChannel. Reserved opcodes (CREATE, GET_CH_UID) and
// unknown opcodes are accepted silently and never answered, so older and newer
// clients can share a service.
package protocol
