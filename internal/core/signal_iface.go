//go:generate go run go.uber.org/mock/mockgen -source=signal_iface.go -destination=../mocks/mock_conn.go -package=mocks
package core

import "github.com/dkeye/tandem/internal/domain"

// Frame is one encoded outbound message.
type Frame []byte

// Conn abstracts a live signaling transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	ID() domain.ConnID
	TrySend(Frame) error
	Close()
}
