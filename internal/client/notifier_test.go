package client

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifierDeliversInSubscriptionOrder(t *testing.T) {
	n := NewNotifier()
	var got []string

	n.Subscribe(func(Notification) { got = append(got, "first") })
	unsubscribe := n.Subscribe(func(Notification) { got = append(got, "second") })
	n.Subscribe(func(Notification) { got = append(got, "third") })

	n.Publish(Notification{Kind: NotifyMessage})
	assert.Equal(t, []string{"first", "second", "third"}, got)

	got = nil
	unsubscribe()
	unsubscribe()
	n.Publish(Notification{Kind: NotifyMessage})
	assert.Equal(t, []string{"first", "third"}, got)
}

func TestNotifierToastNamesAction(t *testing.T) {
	n := NewNotifier()
	r := record(n)

	n.Toast("send reply", fmt.Errorf("connection refused"))

	notifications := r.all()
	if assert.Len(t, notifications, 1) {
		assert.Equal(t, NotifyToast, notifications[0].Kind)
		assert.Equal(t, "send reply", notifications[0].Action)
		assert.Equal(t, "Failed to send reply: connection refused", notifications[0].Text)
	}
}

func TestNotifierClose(t *testing.T) {
	n := NewNotifier()
	r := record(n)

	n.Close()
	n.Publish(Notification{Kind: NotifyToast})
	n.Subscribe(func(Notification) { t.Fatal("subscriber added after close was called") })
	n.Publish(Notification{Kind: NotifyToast})

	assert.Empty(t, r.all())
}
