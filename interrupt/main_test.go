package interrupt

import (
	"testing"
	"time"
)

func TestRequestRunsHandlersInReverse(t *testing.T) {
	var order []int
	AddHandler(func() { order = append(order, 1) })
	AddHandler(func() { order = append(order, 2) })
	request()
	select {
	case <-HandlersDone:
	case <-time.After(5 * time.Second):
		t.Fatal("handlers did not run")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("handlers ran in order %v, want [2 1]", order)
	}
}
