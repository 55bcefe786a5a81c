package engine

import "github.com/minibayes/minibayes/internal/stepper"

// Observer receives the per-attempt record stream of an inference run.
// Implemented by the store recorder (production) and capture observers
// (tests).
//
// Observers are passive: they cannot veto moves or alter the chain, and
// they run on the inference goroutine, so slow observers slow inference.
type Observer interface {
	// OnMove is called after every accept/reject decision, in the order
	// the decisions were made. iteration counts from 0.
	OnMove(iteration int, move stepper.Move)

	// OnSample is called once per iteration after every latent node has
	// been stepped, with the query values in query-index order. values is
	// reused across calls; observers that retain it must copy.
	OnSample(iteration int, values []float64)
}

// NopObserver ignores every record. It is the default observer.
type NopObserver struct{}

// OnMove implements Observer.
func (NopObserver) OnMove(int, stepper.Move) {}

// OnSample implements Observer.
func (NopObserver) OnSample(int, []float64) {}
