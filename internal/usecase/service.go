package usecase

import (
	"go.uber.org/zap"

	"kvserver/internal/usecase/command"
	"kvserver/internal/usecase/storage"
)

// Service executes requests against one shared backend. Copies of a Service
// are independent handles to the same backend and are safe to use
// concurrently.
type Service struct {
	inner *serviceInner
}

type serviceInner struct {
	store      storage.Storage
	dispatcher *command.Dispatcher
	logger     *zap.Logger
}

type Option func(*serviceInner)

func WithLogger(logger *zap.Logger) Option {
	return func(s *serviceInner) {
		s.logger = logger
	}
}

func WithDispatcher(d *command.Dispatcher) Option {
	return func(s *serviceInner) {
		s.dispatcher = d
	}
}

func NewService(store storage.Storage, opts ...Option) Service {
	inner := &serviceInner{
		store:      store,
		dispatcher: command.DefaultDispatcher(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(inner)
	}

	return Service{inner: inner}
}

func (s Service) Execute(req *command.Request) *command.Response {
	s.inner.logger.Debug("Got request", zap.Any("request", req))

	res := s.inner.dispatcher.Dispatch(req, s.inner.store)
	if !res.OK() {
		s.inner.logger.Debug("Request failed",
			zap.Stringer("kind", res.Kind),
			zap.String("message", res.Message),
		)
	}
	return res
}

// Store returns the backend shared by every handle of this Service.
func (s Service) Store() storage.Storage {
	return s.inner.store
}
