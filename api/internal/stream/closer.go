package stream

// Stream is a Source that holds a connection until closed.
type Stream interface {
	Source
	Close() error
}
