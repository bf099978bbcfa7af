package benchmark

// Observer receives run lifecycle events. Calls are made from the goroutine
// driving Tick and must not block.
type Observer interface {
	RunStarted(sel Selection)
	RunFinished(res Result)
	RunFailed(sel Selection, err error)
}

// Observers fans events out to every observer in order.
type Observers []Observer

// RunStarted implements Observer.
func (o Observers) RunStarted(sel Selection) {
	for _, obs := range o {
		obs.RunStarted(sel)
	}
}

// RunFinished implements Observer.
func (o Observers) RunFinished(res Result) {
	for _, obs := range o {
		obs.RunFinished(res)
	}
}

// RunFailed implements Observer.
func (o Observers) RunFailed(sel Selection, err error) {
	for _, obs := range o {
		obs.RunFailed(sel, err)
	}
}
