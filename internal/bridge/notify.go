package bridge

// Notifier receives the outcome of every /print request. Implementations
// must be safe for concurrent use; calls are made from their own goroutine.
type Notifier interface {
	JobSucceeded(host string, port int)
	JobFailed(detail string)
}

// NotifierFuncs adapts plain functions to a Notifier. Nil fields are skipped.
type NotifierFuncs struct {
	OnJobSucceeded func(host string, port int)
	OnJobFailed    func(detail string)
}

func (n NotifierFuncs) JobSucceeded(host string, port int) {
	if n.OnJobSucceeded != nil {
		n.OnJobSucceeded(host, port)
	}
}

func (n NotifierFuncs) JobFailed(detail string) {
	if n.OnJobFailed != nil {
		n.OnJobFailed(detail)
	}
}

type multiNotifier []Notifier

func (m multiNotifier) JobSucceeded(host string, port int) {
	m.each(func(n Notifier) { n.JobSucceeded(host, port) })
}

func (m multiNotifier) JobFailed(detail string) {
	m.each(func(n Notifier) { n.JobFailed(detail) })
}

// each calls fn for every subscriber even when an earlier one panics. The
// first panic is re-raised once all subscribers have run.
func (m multiNotifier) each(fn func(Notifier)) {
	var first any
	for _, n := range m {
		func() {
			defer func() {
				if v := recover(); v != nil && first == nil {
					first = v
				}
			}()
			fn(n)
		}()
	}

	if first != nil {
		panic(first)
	}
}

// Notifiers fans every notification out to ns in order. Nil entries are
// dropped. A panicking subscriber does not stop delivery to the rest.
func Notifiers(ns ...Notifier) Notifier {
	out := make(multiNotifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}

	return out
}
