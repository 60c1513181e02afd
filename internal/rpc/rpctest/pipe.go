package rpctest

import (
	"errors"
	"io"
	"sync"

	"vidshelf/internal/rpc"
)

// ErrPipeClosed is returned by writes on a closed pipe.
var ErrPipeClosed = errors.New("rpctest: pipe closed")

const pipeBuffer = 64

// Pipe returns two connected in-memory connections. Frames written on one are
// read from the other in order. Closing either end closes both.
func Pipe() (rpc.Conn, rpc.Conn) {
	aToB := make(chan []byte, pipeBuffer)
	bToA := make(chan []byte, pipeBuffer)
	shared := &pipeState{done: make(chan struct{})}
	a := &pipeConn{in: bToA, out: aToB, state: shared}
	b := &pipeConn{in: aToB, out: bToA, state: shared}
	return a, b
}

type pipeState struct {
	once sync.Once
	done chan struct{}
}

type pipeConn struct {
	in    <-chan []byte
	out   chan<- []byte
	state *pipeState
}

func (p *pipeConn) ReadFrame() ([]byte, error) {
	// Frames queued before the close are still delivered.
	select {
	case data := <-p.in:
		return data, nil
	default:
	}
	select {
	case data := <-p.in:
		return data, nil
	case <-p.state.done:
		return nil, io.EOF
	}
}

func (p *pipeConn) WriteFrame(data []byte) error {
	select {
	case <-p.state.done:
		return ErrPipeClosed
	default:
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	select {
	case p.out <- frame:
		return nil
	case <-p.state.done:
		return ErrPipeClosed
	}
}

func (p *pipeConn) Close() error {
	p.state.once.Do(func() { close(p.state.done) })
	return nil
}

var _ rpc.Conn = (*pipeConn)(nil)
