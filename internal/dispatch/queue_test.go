package dispatch

import (
	"testing"
	"time"

	"github.com/nerrad/warnbridge/internal/pipeline"
)

func TestQueue_EnqueueDequeueOrder(t *testing.T) {
	q := newQueue(4)
	q.enqueue(pipeline.Job{Topic: "a"})
	q.enqueue(pipeline.Job{Topic: "b"})

	job, ok := q.dequeue()
	if !ok || job.Topic != "a" {
		t.Fatalf("dequeue() = (%v, %v), want (a, true)", job, ok)
	}
	job, ok = q.dequeue()
	if !ok || job.Topic != "b" {
		t.Fatalf("dequeue() = (%v, %v), want (b, true)", job, ok)
	}
}

func TestQueue_DropOldestWhenFull(t *testing.T) {
	q := newQueue(2)
	q.enqueue(pipeline.Job{Topic: "a"})
	q.enqueue(pipeline.Job{Topic: "b"})
	dropped, didDrop := q.enqueue(pipeline.Job{Topic: "c"})
	if !didDrop || dropped.Topic != "a" {
		t.Fatalf("enqueue() = (%v, %v), want (a, true)", dropped, didDrop)
	}

	job, _ := q.dequeue()
	if job.Topic != "b" {
		t.Errorf("dequeue() topic = %q, want b", job.Topic)
	}
	job, _ = q.dequeue()
	if job.Topic != "c" {
		t.Errorf("dequeue() topic = %q, want c", job.Topic)
	}
}

func TestQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := newQueue(4)
	done := make(chan pipeline.Job, 1)
	go func() {
		job, _ := q.dequeue()
		done <- job
	}()

	time.Sleep(10 * time.Millisecond)
	q.enqueue(pipeline.Job{Topic: "late"})

	select {
	case job := <-done:
		if job.Topic != "late" {
			t.Errorf("dequeue() topic = %q, want late", job.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue() did not unblock after enqueue")
	}
}

func TestQueue_CloseUnblocksEmptyDequeue(t *testing.T) {
	q := newQueue(4)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.dequeue()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.close()

	select {
	case ok := <-done:
		if ok {
			t.Error("dequeue() ok = true after close on empty queue, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue() did not unblock after close")
	}
}

func TestQueue_CloseDrainsRemainingFirst(t *testing.T) {
	q := newQueue(4)
	q.enqueue(pipeline.Job{Topic: "a"})
	q.close()

	job, ok := q.dequeue()
	if !ok || job.Topic != "a" {
		t.Fatalf("dequeue() = (%v, %v), want (a, true) before drained", job, ok)
	}
	_, ok = q.dequeue()
	if ok {
		t.Error("dequeue() ok = true after drain, want false")
	}
}

func TestQueue_DrainAndAbandon(t *testing.T) {
	q := newQueue(4)
	q.enqueue(pipeline.Job{Topic: "a"})
	q.enqueue(pipeline.Job{Topic: "b"})

	abandoned := q.drainAndAbandon()
	if abandoned != 2 {
		t.Errorf("drainAndAbandon() = %d, want 2", abandoned)
	}
	if _, ok := q.dequeue(); ok {
		t.Error("dequeue() ok = true after drainAndAbandon, want false")
	}
}
