// Package events provides signal event bus implementations.
//
// Implementations:
//   - redis: Redis Streams, one stream per run plus a global stream
//   - memory: In-process fan-out with bounded subscriber channels
package events
