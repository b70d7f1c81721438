package transport

import (
	"sync"

	"github.com/iudanet/gophboard/pkg/api"
)

// event элемент очереди доставки: либо сообщение, либо смена состояния
type event struct {
	msg   *api.RelayMessage
	state State
}

// dispatcher последовательно доставляет события в Callbacks из отдельной горутины.
// Очередь неограниченная: отправитель никогда не блокируется на получателе.
type dispatcher struct {
	cb     Callbacks
	queue  []event
	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}
	mu     sync.Mutex
}

func newDispatcher(cb Callbacks) *dispatcher {
	d := &dispatcher{
		cb:     cb,
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) push(ev event) {
	d.mu.Lock()
	d.queue = append(d.queue, ev)
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.stop:
			return
		case <-d.signal:
		}

		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			ev := d.queue[0]
			d.queue = d.queue[1:]
			d.mu.Unlock()

			select {
			case <-d.stop:
				return
			default:
			}
			d.deliver(ev)
		}
	}
}

func (d *dispatcher) deliver(ev event) {
	if ev.msg != nil {
		if d.cb.OnMessage != nil {
			d.cb.OnMessage(ev.msg)
		}
		return
	}
	if d.cb.OnState != nil {
		d.cb.OnState(ev.state)
	}
}

// close останавливает доставку и ждет выхода горутины.
func (d *dispatcher) close() {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	<-d.done
}
