package training

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// Kernel names accepted by SVC
const (
	KernelLinear = "linear"
	KernelRBF    = "rbf"
)

const (
	linearEpochs = 10
	kernelEpochs = 5
)

// SVC is a support vector classifier trained with the Pegasos stochastic
// sub-gradient method, one-vs-rest for more than two classes. The objective
// is λ/2·||w||² + 1/n·Σ hinge(y·f(x)) with λ = 1/(C·n).
type SVC struct {
	Kernel     string  `json:"kernel"`
	C          float64 `json:"C"`
	Gamma      float64 `json:"gamma"`
	Seed       int64   `json:"seed"`
	NumClasses int     `json:"num_classes"`

	// linear kernel
	Weights [][]float64 `json:"weights,omitempty"`
	Bias    []float64   `json:"bias,omitempty"`

	// rbf kernel: f(x) = Σ_k DualCoef[m][k]·(K(sv_k, x) + 1)
	SupportVectors []SparseVector `json:"support_vectors,omitempty"`
	DualCoef       [][]float64    `json:"dual_coef,omitempty"`
}

func newSVM(params models.Params, seed int64) (Classifier, error) {
	c, err := params.Float("C")
	if err != nil {
		return nil, err
	}
	kernel, err := params.Choice("kernel")
	if err != nil {
		return nil, err
	}
	if c <= 0 {
		return nil, fmt.Errorf("C must be positive, got %v", c)
	}

	svc := &SVC{Kernel: kernel, C: c, Seed: seed}
	switch kernel {
	case KernelLinear:
		// gamma is ignored by the linear kernel
		if g, err := params.Float("gamma"); err == nil {
			svc.Gamma = g
		}
	case KernelRBF:
		g, err := params.Float("gamma")
		if err != nil {
			return nil, err
		}
		if g <= 0 {
			return nil, fmt.Errorf("gamma must be positive, got %v", g)
		}
		svc.Gamma = g
	default:
		return nil, fmt.Errorf("unsupported kernel %q", kernel)
	}
	return svc, nil
}

// Fit implements Classifier
func (s *SVC) Fit(X []SparseVector, y []int, numClasses, numFeatures int) error {
	if err := validateFitInput(X, y, numClasses); err != nil {
		return err
	}
	s.NumClasses = numClasses
	lambda := 1 / (s.C * float64(len(X)))
	rng := rand.New(rand.NewSource(s.Seed))

	if s.Kernel == KernelRBF {
		s.fitKernel(X, y, lambda, rng)
		return nil
	}

	classes := oneVsRest(numClasses)
	s.Weights = make([][]float64, len(classes))
	s.Bias = make([]float64, len(classes))
	for m, c := range classes {
		s.Weights[m], s.Bias[m] = pegasosLinear(X, binaryTargets(y, c), numFeatures, lambda, rng)
	}
	return nil
}

// pegasosLinear trains one binary linear SVM. The bias is learned as the weight
// of a constant feature. w is stored as scale·v so the per-step shrink is O(1).
func pegasosLinear(X []SparseVector, t []float64, numFeatures int, lambda float64, rng *rand.Rand) ([]float64, float64) {
	v := make([]float64, numFeatures)
	vb := 0.0
	scale := 1.0
	sqNorm := 0.0 // ||v||² including the bias term
	radius := 1 / math.Sqrt(lambda)

	steps := linearEpochs * len(X)
	for step := 1; step <= steps; step++ {
		i := rng.Intn(len(X))
		eta := 1 / (lambda * float64(step))
		margin := t[i] * scale * (X[i].Dot(v) + vb)

		shrink := 1 - eta*lambda
		if shrink <= 0 {
			for j := range v {
				v[j] = 0
			}
			vb, scale, sqNorm = 0, 1, 0
		} else {
			scale *= shrink
		}

		if margin < 1 {
			delta := eta * t[i] / scale
			for k, j := range X[i].Indices {
				old := v[j]
				v[j] += delta * X[i].Values[k]
				sqNorm += v[j]*v[j] - old*old
			}
			old := vb
			vb += delta
			sqNorm += vb*vb - old*old
		}

		if norm := scale * math.Sqrt(math.Max(sqNorm, 0)); norm > radius {
			scale *= radius / norm
		}
		if scale < 1e-9 {
			floats.Scale(scale, v)
			vb *= scale
			sqNorm *= scale * scale
			scale = 1
		}
	}

	floats.Scale(scale, v)
	return v, vb * scale
}

func (s *SVC) fitKernel(X []SparseVector, y []int, lambda float64, rng *rand.Rand) {
	n := len(X)
	classes := oneVsRest(s.NumClasses)
	steps := kernelEpochs * n
	alphas := make([][]float64, len(classes))

	for m, c := range classes {
		t := binaryTargets(y, c)
		alpha := make([]float64, n)
		// g[j] = Σ_i alpha_i·t_i·K'(x_i, x_j); f_step(x_j) = g[j] / (λ·step)
		g := make([]float64, n)
		for step := 1; step <= steps; step++ {
			i := rng.Intn(n)
			if t[i]*g[i]/(lambda*float64(step)) < 1 {
				alpha[i]++
				for j := range X {
					g[j] += t[i] * s.kernel(X[i], X[j])
				}
			}
		}
		for i := range alpha {
			alpha[i] *= t[i] / (lambda * float64(steps))
		}
		alphas[m] = alpha
	}

	// keep rows that are a support vector for at least one binary model
	s.SupportVectors = nil
	s.DualCoef = make([][]float64, len(classes))
	for i := range X {
		used := false
		for m := range classes {
			if alphas[m][i] != 0 {
				used = true
				break
			}
		}
		if !used {
			continue
		}
		s.SupportVectors = append(s.SupportVectors, X[i])
		for m := range classes {
			s.DualCoef[m] = append(s.DualCoef[m], alphas[m][i])
		}
	}
}

// kernel returns the RBF kernel plus one, the constant standing in for a bias
func (s *SVC) kernel(a, b SparseVector) float64 {
	d := a.SquaredNorm() + b.SquaredNorm() - 2*a.DotSparse(b)
	return math.Exp(-s.Gamma*math.Max(d, 0)) + 1
}

// Decision implements Classifier
func (s *SVC) Decision(x SparseVector) []float64 {
	if s.Kernel == KernelRBF {
		margins := make([]float64, len(s.DualCoef))
		for k, sv := range s.SupportVectors {
			kv := s.kernel(sv, x)
			for m := range margins {
				margins[m] += s.DualCoef[m][k] * kv
			}
		}
		return ovrScores(s.NumClasses, margins)
	}

	margins := make([]float64, len(s.Weights))
	for m, w := range s.Weights {
		margins[m] = x.Dot(w) + s.Bias[m]
	}
	return ovrScores(s.NumClasses, margins)
}

// Validate implements Classifier
func (s *SVC) Validate(numClasses, numFeatures int) error {
	if s.Kernel != KernelRBF {
		return checkLinear(s.NumClasses, numClasses, numFeatures, s.Weights, s.Bias)
	}
	if s.NumClasses != numClasses {
		return fmt.Errorf("state has %d classes, model has %d labels", s.NumClasses, numClasses)
	}
	for k, sv := range s.SupportVectors {
		if len(sv.Indices) != len(sv.Values) {
			return fmt.Errorf("support vector %d has %d indices and %d values", k, len(sv.Indices), len(sv.Values))
		}
	}
	return checkMatrix("dual_coef", s.DualCoef, len(oneVsRest(numClasses)), len(s.SupportVectors))
}

// Kind implements Classifier
func (s *SVC) Kind() models.ClassifierKind {
	return models.ClassifierSVM
}
