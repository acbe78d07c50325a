package trainer

import "math"

// adam applies Adam updates to a single embedding table. Moment estimates
// live only for the duration of a training run.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  [][]float64
}

func newAdam(lr float64, rows, dim int) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-7,
		m:     zeros(rows, dim),
		v:     zeros(rows, dim),
	}
}

// step updates every row of params in place. Rows with a zero gradient still
// move while their first moment decays.
func (a *adam) step(params, grads [][]float64) {
	a.t++
	alpha := a.lr * math.Sqrt(1-math.Pow(a.beta2, float64(a.t))) / (1 - math.Pow(a.beta1, float64(a.t)))

	for i := range params {
		p, g, m, v := params[i], grads[i], a.m[i], a.v[i]
		for j := range p {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g[j]
			v[j] = a.beta2*v[j] + (1-a.beta2)*g[j]*g[j]
			p[j] -= alpha * m[j] / (math.Sqrt(v[j]) + a.eps)
		}
	}
}

func zeros(rows, dim int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, dim)
	}
	return out
}

func reset(table [][]float64) {
	for _, row := range table {
		clear(row)
	}
}
