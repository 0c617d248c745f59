package channel

import "errors"

// ErrChannelClosed is returned by Read/Write once a channel has hit a
// fatal error (including cancellation at a suspension point) or has
// written a record with LastFlag set. Reading a LastFlag record does not
// close the channel.
var ErrChannelClosed = errors.New("channel: closed")
