// Package chat connects the bot to IRC and routes traffic between the server
// and the minuting state machine.
//
// It provides:
//   - Client: a wrapper around the IRC connection that joins the configured
//     channels, rejoins on /invite, feeds channel lines into the per-channel
//     minute takers, and answers commands addressed to the bot (in channel as
//     "botnick, command" or by private message).
//   - SplitLine: the outbound message chunker. IRC messages share a 512 byte
//     line budget with their routing prefix, so long responses are split into
//     multiple PRIVMSGs on UTF-8 boundaries.
//
// Credentials: the connection uses NICK/USER registration plus an optional
// server password from IRC_PASSWORD (for networks that use PASS-based auth).
package chat
