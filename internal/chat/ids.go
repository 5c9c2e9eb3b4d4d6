package chat

import (
	"fmt"
	"sync/atomic"
	"time"
)

var messageSeq atomic.Int64

// nextMessageID returns a process-unique message id. The atomic counter keeps
// ids strictly increasing in generation order even when the clock reads the
// same millisecond for concurrent messages.
func nextMessageID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixMilli(), messageSeq.Add(1))
}
