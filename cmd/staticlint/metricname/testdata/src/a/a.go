package a

type services struct{}

func (services) Increment(name string)             {}
func (services) Decrement(name string)             {}
func (services) Submit(name string, value float64) {}
func (services) Reset(name string)                 {}

type counter struct{}

func (counter) Increment(delta int64) {}

const timerName = "timer.request"

func calls(s services, c counter, dynamic string) {
	s.Increment("requests")
	s.Increment("meter.hits")
	s.Increment("status.200")
	s.Increment("histogram.latency") // want `префикс "histogram." не действует для Increment`
	s.Decrement("timer.x")           // want `префикс "timer." не действует для Decrement`
	s.Increment(timerName)           // want `префикс "timer." не действует для Increment`

	s.Submit("load", 0.5)
	s.Submit("histogram.latency", 42)
	s.Submit("timer.request", 100)
	s.Submit("meter.hits", 1)  // want `префикс "meter." не действует для Submit`
	s.Submit("status.root", 1) // want `префикс "status." не действует для Submit`

	s.Reset("timer.request")
	s.Increment(dynamic)
	c.Increment(1)

	var svc interface{ Submit(string, float64) } = s
	svc.Submit("meter.y", 2) // want `префикс "meter." не действует для Submit`
}
