package videotex

import (
	"slices"
	"sync"
)

// KeyMiddleware processes keys between the decoder and the caller of ReadKey. A
// middleware passes the key on by calling next, possibly with a different key, or
// swallows it by not calling next at all.
type KeyMiddleware interface {
	Handle(terminal *Terminal, key KeyEvent, next KeyHandler)
}

// MiddlewareStack runs keys through an ordered list of middlewares, the first
// middleware seeing each key first, and delivers the result to lineOut.
type MiddlewareStack struct {
	lineOut KeyHandler

	middlewareLock sync.RWMutex

	middlewares []KeyMiddleware
	// entry is the handler for the first middleware, or lineOut when there are none
	entry KeyHandler
}

func NewMiddlewareStack(lineOut KeyHandler, middlewares ...KeyMiddleware) *MiddlewareStack {
	stack := &MiddlewareStack{
		lineOut:     lineOut,
		middlewares: slices.Clone(middlewares),
	}
	stack.rebuildMiddlewares()

	return stack
}

// rebuildMiddlewares chains the middlewares from the last one back to the first, each
// wrapper closing over its own middleware and the wrapper that follows it
func (s *MiddlewareStack) rebuildMiddlewares() {
	next := s.lineOut

	for i := len(s.middlewares) - 1; i >= 0; i-- {
		middleware, following := s.middlewares[i], next
		next = func(t *Terminal, key KeyEvent) {
			middleware.Handle(t, key, following)
		}
	}

	s.entry = next
}

// PushMiddleware adds a middleware in front of the others
func (s *MiddlewareStack) PushMiddleware(middleware KeyMiddleware) {
	s.middlewareLock.Lock()
	defer s.middlewareLock.Unlock()

	s.middlewares = slices.Insert(s.middlewares, 0, middleware)
	s.rebuildMiddlewares()
}

// QueueMiddleware adds a middleware behind the others
func (s *MiddlewareStack) QueueMiddleware(middleware KeyMiddleware) {
	s.middlewareLock.Lock()
	defer s.middlewareLock.Unlock()

	s.middlewares = append(s.middlewares, middleware)
	s.rebuildMiddlewares()
}

// RemoveMiddleware removes a middleware previously added to the stack. Middlewares
// are compared with ==, so their dynamic types must be comparable.
func (s *MiddlewareStack) RemoveMiddleware(middleware KeyMiddleware) {
	s.middlewareLock.Lock()
	defer s.middlewareLock.Unlock()

	middlewareIndex := slices.Index(s.middlewares, middleware)
	if middlewareIndex < 0 {
		return
	}

	s.middlewares = slices.Delete(s.middlewares, middlewareIndex, middlewareIndex+1)
	s.rebuildMiddlewares()
}

// LineIn runs key through the stack
func (s *MiddlewareStack) LineIn(t *Terminal, key KeyEvent) {
	s.middlewareLock.RLock()
	entry := s.entry
	s.middlewareLock.RUnlock()

	entry(t, key)
}
