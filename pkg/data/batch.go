package data

// Sample is one encoded training row.
type Sample struct {
	X []float64
	Y float64
}

// Batch is a group of consecutive samples.
type Batch struct {
	X [][]float64
	Y []float64
}

// Samples streams X and y, in order, into a channel that is closed at the end.
func Samples(X [][]float64, y []float64) <-chan Sample {
	out := make(chan Sample)
	go func() {
		defer close(out)
		for i := range X {
			out <- Sample{X: X[i], Y: y[i]}
		}
	}()
	return out
}

// Batcher reads from a Sample channel and emits mini-batches of batchSize.
// The final batch may be smaller. out is closed when in is drained or done
// is closed.
func Batcher(in <-chan Sample, batchSize int, out chan<- Batch) (done chan struct{}) {
	done = make(chan struct{})
	if batchSize < 1 {
		batchSize = 1
	}

	go func() {
		defer close(out)

		var X [][]float64
		var Y []float64

		for {
			select {
			case <-done:
				return

			case s, ok := <-in:
				if !ok {
					if len(Y) > 0 {
						out <- Batch{X: X, Y: Y}
					}
					return
				}

				X = append(X, s.X)
				Y = append(Y, s.Y)

				if len(Y) == batchSize {
					out <- Batch{X: X, Y: Y}
					X = nil
					Y = nil
				}
			}
		}
	}()

	return done
}
