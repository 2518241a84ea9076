package optim

// SGD is plain stochastic gradient descent with an optional L2 weight decay
// applied to the weights passed to Step.
type SGD struct {
	LearningRate float64
	Decay        float64
}

func NewSGD(lr, decay float64) *SGD { return &SGD{LearningRate: lr, Decay: decay} }

// Step updates weights in place: w -= lr * (g + decay*w).
func (o *SGD) Step(weights, grads []float64) {
	for i := range weights {
		weights[i] -= o.LearningRate * (grads[i] + o.Decay*weights[i])
	}
}

// StepScalar updates an unregularized parameter such as a bias.
func (o *SGD) StepScalar(p *float64, grad float64) {
	*p -= o.LearningRate * grad
}
