package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"kvserver/internal/usecase"
	"kvserver/internal/usecase/command"
	"kvserver/internal/usecase/storage"
)

const maxBodySize = 16 << 20

type Server struct {
	router  *mux.Router
	address string
	service usecase.Service
	logger  *zap.Logger
	http    *http.Server
}

type pairBody struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type responseBody struct {
	Values []*string   `json:"values,omitempty"`
	Pairs  *[]pairBody `json:"pairs,omitempty"`
	Flags  []bool      `json:"flags,omitempty"`
	Error  *errorBody  `json:"error,omitempty"`
}

func NewServer(address string, service usecase.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		address: address,
		service: service,
		logger:  logger.Named("http"),
	}

	router := mux.NewRouter()

	router.HandleFunc("/v1/tables/{table}", s.GetAll).Methods(http.MethodGet)
	router.HandleFunc("/v1/tables/{table}/keys/{key}", s.Get).Methods(http.MethodGet)
	router.HandleFunc("/v1/tables/{table}/keys/{key}", s.Set).Methods(http.MethodPut, http.MethodPost)
	router.HandleFunc("/v1/tables/{table}/keys/{key}", s.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/v1/tables/{table}/keys/{key}", s.Exists).Methods(http.MethodHead)

	s.router = router
	s.http = &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP API started", zap.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.write(w, s.service.Execute(command.NewHget(vars["table"], vars["key"])))
}

func (s *Server) Set(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.write(w, command.ErrorResponse(command.InvalidCommand("failed to read body: %v", err)))
		return
	}

	s.write(w, s.service.Execute(command.NewHset(vars["table"], vars["key"], storage.Value{Data: body})))
}

func (s *Server) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.write(w, s.service.Execute(command.NewHdel(vars["table"], vars["key"])))
}

func (s *Server) GetAll(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.write(w, s.service.Execute(command.NewHgetall(vars["table"])))
}

func (s *Server) Exists(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res := s.service.Execute(command.NewHexist(vars["table"], vars["key"]))

	switch {
	case !res.OK():
		w.WriteHeader(statusCode(res.Kind))
	case len(res.Flags) == 1 && res.Flags[0]:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) write(w http.ResponseWriter, res *command.Response) {
	body := responseBody{Flags: res.Flags}

	if !res.OK() {
		body.Error = &errorBody{Kind: res.Kind.String(), Message: res.Message}
	}
	for _, v := range res.Values {
		if v.IsNull() {
			body.Values = append(body.Values, nil)
			continue
		}
		str := v.String()
		body.Values = append(body.Values, &str)
	}
	if res.Pairs != nil {
		pairs := make([]pairBody, 0, len(res.Pairs))
		for _, p := range res.Pairs {
			pairs = append(pairs, pairBody{Key: p.Key, Value: p.Value.String()})
		}
		body.Pairs = &pairs
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode(res.Kind))
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func statusCode(kind command.Kind) int {
	switch kind {
	case command.KindOK:
		return http.StatusOK
	case command.KindInvalidCommand:
		return http.StatusBadRequest
	case command.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
