package wire

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"go.klb.dev/cloudclip/internal/codec"
	"go.klb.dev/cloudclip/internal/message"
)

func TestRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	ca, cb := New(a), New(b)
	defer ca.Close()
	defer cb.Close()

	want := &message.Message{
		Type:   message.TypeCopy,
		Source: "laptop",
		Items:  []message.Item{message.NewItem(codec.Text("hello\nworld"))},
	}
	errc := make(chan error, 1)
	go func() { errc <- ca.WriteMsg(want) }()

	got, err := cb.ReadMsg()
	if err != nil {
		t.Fatalf("ReadMsg: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("WriteMsg: %v", err)
	}
	if got.Type != want.Type || got.Source != want.Source || len(got.Items) != 1 {
		t.Fatalf("got %+v", got)
	}
	v, err := message.Value(got.Items)
	if err != nil || v.Text() != "hello\nworld" {
		t.Errorf("payload = %q (%v)", v.Text(), err)
	}
}

func TestReadLongLine(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	big := strings.Repeat("x", 200*1024)
	go func() {
		_ = New(a).WriteMsg(&message.Message{Type: message.TypeError, Error: big})
	}()
	got, err := New(b).ReadMsg()
	if err != nil {
		t.Fatalf("ReadMsg: %v", err)
	}
	if got.Error != big {
		t.Errorf("long line truncated to %d bytes", len(got.Error))
	}
}

func TestCall(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		sc := New(server)
		defer sc.Close()
		req, err := sc.ReadMsg()
		if err != nil {
			return
		}
		if req.Type == message.TypeStatus {
			_ = sc.WriteMsg(&message.Message{Type: message.TypeStatusResponse, State: &message.State{Cloud: "Dropbox"}})
			return
		}
		_ = sc.WriteMsg(message.Errorf("unsupported %s", req.Type))
	}()

	resp, err := Call(client, &message.Message{Type: message.TypeStatus}, time.Second)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.State == nil || resp.State.Cloud != "Dropbox" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCallError(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		sc := New(server)
		defer sc.Close()
		if _, err := sc.ReadMsg(); err == nil {
			_ = sc.WriteMsg(message.Errorf("nope"))
		}
	}()
	resp, err := Call(client, &message.Message{Type: message.TypePeek}, time.Second)
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("err = %v", err)
	}
	if resp == nil || resp.Type != message.TypeError {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCallTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	go func() { _, _ = New(server).ReadMsg() }()

	_, err := Call(client, &message.Message{Type: message.TypeStatus}, 20*time.Millisecond)
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("err = %v, want a timeout", err)
	}
}
