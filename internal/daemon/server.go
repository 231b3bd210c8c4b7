package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.klb.dev/cloudclip/internal/message"
	"go.klb.dev/cloudclip/internal/notify"
	"go.klb.dev/cloudclip/internal/wire"
)

const requestTimeout = 10 * time.Second

// serve accepts IPC connections until ln is closed.
func (d *Daemon) serve(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("ipc accept: %w", err)
		}
		go d.handleConn(ctx, conn)
	}
}

// handleConn answers a single request.
func (d *Daemon) handleConn(ctx context.Context, conn net.Conn) {
	wc := wire.New(conn)
	defer wc.Close()

	wc.SetReadDeadline(requestTimeout)
	req, err := wc.ReadMsg()
	if err != nil {
		slog.Debug("ipc: read failed", "err", err)
		return
	}
	wc.SetReadDeadline(0)
	slog.Debug("ipc request", "type", req.Type, "source", req.Source)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := wc.WriteMsg(d.respond(ctx, req)); err != nil {
		slog.Debug("ipc: write failed", "type", req.Type, "err", err)
	}
}

func (d *Daemon) respond(ctx context.Context, req *message.Message) *message.Message {
	switch req.Type {
	case message.TypeCopy:
		var (
			st  notify.Status
			err error
		)
		if len(req.Items) > 0 {
			v, verr := message.Value(req.Items)
			if verr != nil {
				return message.Errorf("copy: %v", verr)
			}
			st, err = d.CopyValue(ctx, v)
		} else {
			st, err = d.Copy(ctx)
		}
		if err != nil {
			return message.Errorf("copy: %v", err)
		}
		return &message.Message{Type: message.TypeResult, Result: message.NewResult(st)}

	case message.TypePaste:
		st, err := d.Paste(ctx)
		if err != nil {
			return message.Errorf("paste: %v", err)
		}
		return &message.Message{Type: message.TypeResult, Result: message.NewResult(st)}

	case message.TypePeek:
		p, st, err := d.Peek(ctx)
		if err != nil {
			return message.Errorf("peek: %v", err)
		}
		resp := &message.Message{Type: message.TypeResult}
		if st != nil {
			resp.Result = message.NewResult(*st)
		}
		if p != nil {
			resp.Preview = message.NewPreview(*p)
		}
		return resp

	case message.TypeStatus:
		s, err := d.State(ctx)
		if err != nil {
			return message.Errorf("status: %v", err)
		}
		return &message.Message{Type: message.TypeStatusResponse, State: &s}

	case message.TypeHistory:
		if d.history == nil {
			return message.Errorf("history: journal disabled")
		}
		entries, err := d.history.List(req.Limit)
		if err != nil {
			return message.Errorf("history: %v", err)
		}
		return &message.Message{Type: message.TypeHistoryResponse, Entries: entries}

	default:
		return message.Errorf("unsupported request %q", req.Type)
	}
}
