package rooms

import "errors"

// ErrConnectionGone is returned when sending to a connection that has
// already disconnected
var ErrConnectionGone = errors.New("connection no longer present")
