package instance

import (
	"testing"
	"time"

	"voxel-server/pkg/api"
)

func TestForwardClosesSendWhenUnsubscribed(t *testing.T) {
	c := &Client{Send: make(chan api.ServerEvent, 4), done: make(chan struct{})}

	updates := make(chan api.ServerEvent, 2)
	updates <- api.ServerEvent{Type: api.EvInstanceJoined}
	close(updates)

	c.forward(updates)

	ev, ok := <-c.Send
	if !ok || ev.Type != api.EvInstanceJoined {
		t.Fatalf("expected forwarded instance_joined, got %+v (ok=%v)", ev, ok)
	}
	if _, ok := <-c.Send; ok {
		t.Error("Send not closed after updates channel closed")
	}
}

func TestForwardStopsWhenWriterGone(t *testing.T) {
	// Send заполнен, writePump уже не читает: форвардер обязан
	// завершиться по done, а не виснуть на отправке.
	c := &Client{Send: make(chan api.ServerEvent, 1), done: make(chan struct{})}

	updates := make(chan api.ServerEvent)
	finished := make(chan struct{})
	go func() {
		c.forward(updates)
		close(finished)
	}()

	updates <- api.ServerEvent{Type: api.EvPlayerMoved} // занимает буфер Send
	updates <- api.ServerEvent{Type: api.EvPlayerMoved} // некуда писать
	close(c.done)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder still running after writer shutdown")
	}
}
