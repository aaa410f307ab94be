package assoc

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	nnops "gorgonia.org/gorgonia/ops/nn"
	"gorgonia.org/tensor"
)

type maebe struct {
	err error
}

type batchNormOp interface {
	SetTraining()
	SetTesting()
	Reset() error
}

// generic monad... may be useful
func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// embed projects the input rows with the shared weights w.
func (m *maebe) embed(input, w *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Mul(input, w) })
}

func (m *maebe) conv(input *G.Node, filterCount, size int, name string) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	featureCount := input.Shape()[1]
	padding := findPadding(input.Shape()[2], input.Shape()[3], size, size)
	filter := G.NewTensor(input.Graph(), Float, 4, G.WithShape(filterCount, featureCount, size, size), G.WithName("Filter"+name), G.WithInit(G.GlorotU(1.0)))

	if retVal, m.err = nnops.Conv2d(input, filter, []int{size, size}, padding, []int{1, 1}, []int{1, 1}); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) batchnorm(input *G.Node) (retVal *G.Node, retOp batchNormOp) {
	if m.err != nil {
		return nil, nil
	}
	// the scale and bias are created by BatchNorm, and are learnables like any other.
	if retVal, _, _, retOp, m.err = nnops.BatchNorm(input, nil, nil, 0.99, 1e-5); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// block is a 3×3 convolution, batch normalized and rectified.
func (m *maebe) block(input *G.Node, filterCount int, name string) (*G.Node, batchNormOp) {
	convolved := m.conv(input, filterCount, 3, name)
	normalized, op := m.batchnorm(convolved)
	retVal := m.rectify(normalized)
	return retVal, op
}

func (m *maebe) rectify(input *G.Node) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = nnops.Rectify(input); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// maxpool halves the height and width of a BCHW input.
func (m *maebe) maxpool(input *G.Node) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = nnops.MaxPool2D(input, tensor.Shape{2, 2}, []int{0, 0}, []int{2, 2}); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) linear(input *G.Node, units int, name string) *G.Node {
	if m.err != nil {
		return nil
	}
	w := G.NewTensor(input.Graph(), Float, 2, G.WithShape(input.Shape()[1], units), G.WithInit(G.GlorotN(1.0)), G.WithName(name+"_w"))
	xw := m.do(func() (*G.Node, error) { return G.Mul(input, w) })
	if m.err != nil {
		return nil
	}
	b := G.NewTensor(xw.Graph(), Float, xw.Shape().Dims(), G.WithShape(xw.Shape().Clone()...), G.WithName(name+"_b"), G.WithInit(G.Zeroes()))
	return m.do(func() (*G.Node, error) { return G.Add(xw, b) })
}

func (m *maebe) reshape(input *G.Node, to tensor.Shape) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = G.Reshape(input, to); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// stack puts the rows of b below the rows of a.
func (m *maebe) stack(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Concat(0, a, b) })
}

// rows slices out rows [start, end) of a matrix.
func (m *maebe) rows(input *G.Node, start, end int) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Slice(input, G.S(start, end)) })
}

// assign turns a similarity matrix into a row-stochastic assignment matrix.
func (m *maebe) assign(match *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.SoftMax(match) })
}

func (m *maebe) transpose(input *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Transpose(input) })
}

func (m *maebe) matmul(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Mul(a, b) })
}

// logε computes log(input + ε).
func (m *maebe) logε(input *G.Node) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	var eps *G.Node
	switch Float {
	case G.Float32:
		eps = G.NewConstant(float32(epsilon))
	case G.Float64:
		eps = G.NewConstant(float64(epsilon))
	}
	shifted := m.do(func() (*G.Node, error) { return G.Add(input, eps) })
	return m.do(func() (*G.Node, error) { return G.Log(shifted) })
}

// xent is the cross entropy of each row of output against the same row of target, averaged over the rows.
func (m *maebe) xent(output, target *G.Node) (retVal *G.Node) {
	logp := m.logε(output)
	prod := m.do(func() (*G.Node, error) { return G.HadamardProd(target, logp) })
	rows := m.do(func() (*G.Node, error) { return G.Sum(prod, 1) })
	mean := m.do(func() (*G.Node, error) { return G.Mean(rows) })
	return m.do(func() (*G.Node, error) { return G.Neg(mean) })
}

// uniformXent is the cross entropy of the uniform distribution against the vector output.
func (m *maebe) uniformXent(output *G.Node) (retVal *G.Node) {
	logp := m.logε(output)
	mean := m.do(func() (*G.Node, error) { return G.Mean(logp) })
	return m.do(func() (*G.Node, error) { return G.Neg(mean) })
}

func (m *maebe) weigh(weight float64, input *G.Node) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	var w *G.Node
	switch Float {
	case G.Float32:
		w = G.NewConstant(float32(weight))
	case G.Float64:
		w = G.NewConstant(weight)
	}
	return m.do(func() (*G.Node, error) { return G.Mul(w, input) })
}

func findPadding(inputX, inputY, kernelX, kernelY int) []int {
	return []int{
		(inputX - 1 - inputX + kernelX) / 2,
		(inputY - 1 - inputY + kernelY) / 2,
	}
}
