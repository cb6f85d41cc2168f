package changefeed

import "errors"

var (
	ErrFeedClosed   = errors.New("changefeed: feed is closed")
	ErrPublish      = errors.New("changefeed: failed to publish event")
	ErrInvalidEvent = errors.New("changefeed: invalid event payload")
)
