package aof

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"kvserver/internal/usecase/command"
	"kvserver/internal/usecase/resp"
	"kvserver/internal/usecase/storage"
)

const syncInterval = time.Second

// Aof wraps a backend and appends every successful mutation to a file as a
// RESP frame. The file is replayed into the backend on Open.
//
// A mutation the backend accepted is never reported as failed. If its frame
// cannot be appended the error is logged, the frame is lost, and the next
// Sync returns the write error.
type Aof struct {
	storage.Storage

	file   *os.File
	writer *bufio.Writer
	logger *zap.Logger
	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func Open(path string, inner storage.Storage, logger *zap.Logger) (*Aof, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, err
	}

	aof := &Aof{
		Storage: inner,
		file:    f,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	replayed, err := aof.replay()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to replay AOF %s: %w", path, err)
	}
	logger.Info("AOF replayed", zap.String("path", path), zap.Int("commands", replayed))

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	aof.writer = bufio.NewWriter(f)

	go aof.syncLoop()

	return aof, nil
}

func (aof *Aof) replay() (int, error) {
	reader := resp.NewReader(aof.file)
	dispatcher := command.DefaultDispatcher()

	count := 0
	for {
		value, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return count, nil
			}
			return count, err
		}

		req, err := resp.DecodeRequest(value)
		if err != nil {
			return count, err
		}
		if res := dispatcher.Dispatch(req, aof.Storage); !res.OK() {
			return count, res.Err()
		}
		count++
	}
}

func (aof *Aof) syncLoop() {
	defer close(aof.done)

	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-aof.stop:
			return
		case <-ticker.C:
			if err := aof.Sync(); err != nil {
				aof.logger.Error("AOF sync failed", zap.Error(err))
			}
		}
	}
}

// appendLocked appends req to the buffer. The caller holds aof.mu, so frames
// land in the file in the order the backend applied them.
func (aof *Aof) appendLocked(req *command.Request) {
	value, err := resp.EncodeRequest(req)
	if err == nil {
		_, err = aof.writer.Write(value.Marshal())
	}
	if err != nil {
		aof.logger.Error("AOF write failed, frame lost",
			zap.String("command", req.Data.Name()),
			zap.Error(err),
		)
	}
}

func (aof *Aof) Set(table, key string, value storage.Value) (storage.Value, bool, error) {
	aof.mu.Lock()
	defer aof.mu.Unlock()

	prev, existed, err := aof.Storage.Set(table, key, value)
	if err != nil {
		return prev, existed, err
	}
	aof.appendLocked(command.NewHset(table, key, value))
	return prev, existed, nil
}

func (aof *Aof) Delete(table, key string) (storage.Value, bool, error) {
	aof.mu.Lock()
	defer aof.mu.Unlock()

	prev, existed, err := aof.Storage.Delete(table, key)
	if err != nil || !existed {
		return prev, existed, err
	}
	aof.appendLocked(command.NewHdel(table, key))
	return prev, existed, nil
}

// Sync flushes buffered frames and fsyncs the file.
func (aof *Aof) Sync() error {
	aof.mu.Lock()
	defer aof.mu.Unlock()

	if err := aof.writer.Flush(); err != nil {
		return fmt.Errorf("AOF write error: %w", err)
	}
	return aof.file.Sync()
}

func (aof *Aof) Close() error {
	closed := false
	aof.once.Do(func() {
		close(aof.stop)
		closed = true
	})
	if !closed {
		return nil
	}
	<-aof.done

	syncErr := aof.Sync()
	closeErr := aof.file.Close()
	innerErr := aof.Storage.Close()

	for _, err := range []error{syncErr, closeErr, innerErr} {
		if err != nil {
			return err
		}
	}
	return nil
}
