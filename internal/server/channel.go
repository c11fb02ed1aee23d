package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Request is one framed command from the remote client.
type Request struct {
	ID      int64  `json:"id"`
	Command string `json:"command"`
	Args    Args   `json:"args,omitempty"`
}

// Response is the reply to one request. Exactly one of Result or Error is
// meaningful.
type Response struct {
	ID     int64  `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Channel runs the dispatcher over a newline-delimited JSON
// request/response stream. Requests are handled concurrently; responses
// are written one per line in completion order.
type Channel struct {
	dispatcher *Dispatcher
	log        *slog.Logger
}

// NewChannel wraps a dispatcher in a stream channel.
func NewChannel(d *Dispatcher, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{dispatcher: d, log: log}
}

// Serve reads requests until EOF or cancellation. A malformed frame fails
// the stream; a failed command fails only its own request.
func (c *Channel) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	enc := json.NewEncoder(w)

	write := func(resp Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := enc.Encode(resp); err != nil {
			c.log.Error("writing response", "id", resp.ID, "err", err)
		}
	}

	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scan.Scan() {
		if err := ctx.Err(); err != nil {
			break
		}
		line := scan.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			wg.Wait()
			return fmt.Errorf("decoding request frame: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := c.dispatcher.Dispatch(ctx, req.Command, req.Args)
			resp := Response{ID: req.ID, Result: result}
			if err != nil {
				resp.Result = nil
				resp.Error = err.Error()
				if !isRequestError(err) {
					c.log.Error("command failed", "command", req.Command, "err", err)
				}
			}
			write(resp)
		}()
	}

	wg.Wait()
	if err := scan.Err(); err != nil {
		return fmt.Errorf("reading request stream: %w", err)
	}
	return ctx.Err()
}

// isRequestError reports whether the failure is the client's own (already
// reported in its response) rather than a server-side fault worth logging.
func isRequestError(err error) bool {
	var unknown *UnknownCommandError
	return errors.As(err, &unknown)
}
