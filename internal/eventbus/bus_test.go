package eventbus

import (
	"testing"
	"time"
)

func TestBus_DeliversInPublicationOrder(t *testing.T) {
	b := New(8)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	for i := 0; i < 5; i++ {
		b.Publish(SessionOutput("s1", string(rune('a'+i))))
	}

	for i := 0; i < 5; i++ {
		ev := <-sub.Events()
		want := string(rune('a' + i))
		if ev.Line != want {
			t.Fatalf("event %d: Line = %q, want %q", i, ev.Line, want)
		}
	}
}

func TestBus_DropsOldestWhenFull(t *testing.T) {
	b := New(2)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(SessionOutput("s1", "1"))
	b.Publish(SessionOutput("s1", "2"))
	b.Publish(SessionOutput("s1", "3")) // drops "1"

	first := <-sub.Events()
	second := <-sub.Events()
	if first.Line != "2" || second.Line != "3" {
		t.Fatalf("got %q, %q; want 2, 3", first.Line, second.Line)
	}
	if sub.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", sub.Dropped())
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	b := New(1)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(SessionOutput("s1", "x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with no reader draining the subscription")
	}
}

func TestBus_MultipleSubscribersIndependentDropCounts(t *testing.T) {
	b := New(1)
	fast := b.Subscribe()
	slow := b.Subscribe()
	defer b.Unsubscribe(fast)
	defer b.Unsubscribe(slow)

	b.Publish(SessionOutput("s1", "1"))
	<-fast.Events() // fast drains after every publish
	b.Publish(SessionOutput("s1", "2"))
	<-fast.Events()
	b.Publish(SessionOutput("s1", "3")) // slow never drains: "1" and "2" dropped

	if fast.Dropped() != 0 {
		t.Fatalf("fast.Dropped() = %d, want 0", fast.Dropped())
	}
	if slow.Dropped() != 2 {
		t.Fatalf("slow.Dropped() = %d, want 2", slow.Dropped())
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := New(4)
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	_, ok := <-sub.Events()
	if ok {
		t.Fatal("Events() channel should be closed after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	b.Publish(SessionOutput("s1", "x"))
}
