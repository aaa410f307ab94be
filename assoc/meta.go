package assoc

import (
	"bytes"
	"log"
	"math/rand"
	"time"

	"github.com/chewxy/math32"
	"github.com/gorgonia/semisup"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Train is a basic trainer. Xa holds one or more batches of Sup supervised samples, labels has one
// label per row of Xa, and Xb holds as many batches of Unsup unsupervised samples. The supervised
// samples are shuffled between iterations; the caller's Xa and labels are left alone.
//
// The mean cost of every iteration is returned.
func Train(a *Assoc, Xa, Xb *tensor.Dense, labels []int, iterations int) (costs []float32, err error) {
	if a.FwdOnly {
		return nil, errors.New("cannot train a forward only graph")
	}
	if Xa, err = asFloat32(Xa); err != nil {
		return nil, errors.WithMessage(err, "Xa")
	}
	if Xb, err = asFloat32(Xb); err != nil {
		return nil, errors.WithMessage(err, "Xb")
	}
	batches, err := a.batches(Xa, Xb, labels)
	if err != nil {
		return nil, err
	}
	Xa = Xa.Clone().(*tensor.Dense)
	labels = append([]int(nil), labels...)

	m := G.NewTapeMachine(a.g, G.BindDualValues(a.Model()...))
	defer func() { err = appendErr(err, m.Close()) }()
	model := G.NodesToValueGrads(a.Model())
	solver := G.NewVanillaSolver(G.WithLearnRate(a.LearnRate))
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < iterations; i++ {
		var cost float32
		for bat := 0; bat < batches; bat++ {
			xa := rowsFrom(Xa, bat*a.Sup, a.Sup)
			xb := rowsFrom(Xb, bat*a.Unsup, a.Unsup)
			if err = a.let(xa, xb, labels[bat*a.Sup:(bat+1)*a.Sup]); err != nil {
				return costs, err
			}
			if err = m.RunAll(); err != nil {
				return costs, errors.WithStack(err)
			}
			var c float32
			if c, err = scalarOf(a.cost); err != nil {
				return costs, err
			}
			if math32.IsNaN(c) || math32.IsInf(c, 0) {
				return costs, errors.Errorf("iteration %d batch %d: cost is %v", i, bat, c)
			}
			cost += c
			if err = solver.Step(model); err != nil {
				return costs, errors.WithStack(err)
			}
			m.Reset()
		}
		costs = append(costs, cost/float32(batches))
		if err = shuffleSupervised(Xa, labels, r); err != nil {
			return costs, err
		}
	}
	return costs, nil
}

func (a *Assoc) batches(Xa, Xb *tensor.Dense, labels []int) (int, error) {
	if Xa.Dims() != 2 || Xa.Shape()[1] != a.Features || Xa.Shape()[0]%a.Sup != 0 {
		return 0, errors.WithStack(semisup.ShapeMismatchError{Op: "Train", A: Xa.Shape().Clone(), B: tensor.Shape{a.Sup, a.Features}, Msg: "Xa must hold whole batches of supervised samples"})
	}
	if Xb.Dims() != 2 || Xb.Shape()[1] != a.Features || Xb.Shape()[0]%a.Unsup != 0 {
		return 0, errors.WithStack(semisup.ShapeMismatchError{Op: "Train", A: Xb.Shape().Clone(), B: tensor.Shape{a.Unsup, a.Features}, Msg: "Xb must hold whole batches of unsupervised samples"})
	}
	if len(labels) != Xa.Shape()[0] {
		return 0, errors.WithStack(semisup.ShapeMismatchError{Op: "Train", A: Xa.Shape().Clone(), B: tensor.Shape{len(labels)}, Msg: "one label per supervised sample required"})
	}
	batches := Xa.Shape()[0] / a.Sup
	if bb := Xb.Shape()[0] / a.Unsup; bb < batches {
		batches = bb
	}
	if batches == 0 {
		return 0, errors.New("no batches to train on")
	}
	return batches, nil
}

// let binds a batch to the inputs of the graph.
func (a *Assoc) let(xa, xb *tensor.Dense, labels []int) error {
	if err := checkShape("Xa", xa, a.Sup, a.Features); err != nil {
		return err
	}
	if err := checkShape("Xb", xb, a.Unsup, a.Features); err != nil {
		return err
	}
	if len(labels) != a.Sup {
		return errors.WithStack(semisup.ShapeMismatchError{Op: "labels", A: tensor.Shape{len(labels)}, B: tensor.Shape{a.Sup}, Msg: "one label per supervised sample required"})
	}
	same, err := semisup.SameClassMatrix(labels)
	if err != nil {
		return err
	}
	target, err := asFloat32(same)
	if err != nil {
		return err
	}

	if err = G.Let(a.xa, xa); err != nil {
		return errors.WithStack(err)
	}
	if err = G.Let(a.xb, xb); err != nil {
		return errors.WithStack(err)
	}
	if err = G.Let(a.target, target); err != nil {
		return errors.WithStack(err)
	}
	if a.scale != nil {
		scale, err := semisup.ClassScale(labels)
		if err != nil {
			return err
		}
		if err = G.Let(a.scale, diag32(scale)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// shuffleSupervised shuffles the rows of Xs together with their labels.
func shuffleSupervised(Xs *tensor.Dense, labels []int, r *rand.Rand) (err error) {
	var mat [][]float32
	if mat, err = native.MatrixF32(Xs); err != nil {
		return errors.Wrapf(err, "shuffle supervised failed")
	}

	tmp := make([]float32, Xs.Shape()[1])
	for i := range mat {
		j := r.Intn(i + 1)

		rowI := mat[i]
		rowJ := mat[j]
		copy(tmp, rowI)
		copy(rowI, rowJ)
		copy(rowJ, tmp)

		labels[i], labels[j] = labels[j], labels[i]
	}
	return nil
}

// Result is what an evaluation of the association graph produces.
type Result struct {
	Pab   *tensor.Dense // Sup × Unsup
	Pba   *tensor.Dense // Unsup × Sup
	Visit *tensor.Dense // visit probability over the unsupervised samples

	WalkerLoss float32
	VisitLoss  float32
	Loss       float32 // weighted sum of the two

	Labels []int
}

// Inputs returns the assignment matrices of the result, ready to be compared with semisup.Compare.
func (r Result) Inputs() semisup.Inputs {
	return semisup.Inputs{Pab: r.Pab, Pba: r.Pba, Labels: r.Labels}
}

// Evaluator is a struct that holds the state for a forward only *Assoc and a VM. By using an
// Evaluator, there is no longer a need to create a VM every time the graph is evaluated.
type Evaluator struct {
	a *Assoc
	m G.VM

	buf *bytes.Buffer
}

// Evaluate takes a trained *Assoc, and creates an evaluation data structure with a copy of its weights.
func Evaluate(a *Assoc, toLog bool) (*Evaluator, error) {
	conf := a.Config
	conf.FwdOnly = true
	retVal := &Evaluator{a: New(conf)}
	if err := retVal.a.Init(); err != nil {
		return nil, err
	}

	evalModel := retVal.a.Model()
	for i, n := range a.Model() {
		w, err := cloneValue(n.Value())
		if err != nil {
			return nil, err
		}
		if err = G.Let(evalModel[i], w); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	retVal.buf = new(bytes.Buffer)
	if toLog {
		logger := log.New(retVal.buf, "", 0)
		retVal.m = G.NewTapeMachine(retVal.a.g,
			G.WithLogger(logger),
			G.WithWatchlist(),
			G.TraceExec(),
			G.WithValueFmt("%+1.3v"),
			G.WithNaNWatch(),
		)
	} else {
		retVal.m = G.NewTapeMachine(retVal.a.g)
	}
	return retVal, nil
}

// Assoc returns the forward only graph being evaluated.
func (e *Evaluator) Assoc() *Assoc { return e.a }

// Eval runs the graph on one batch.
func (e *Evaluator) Eval(xa, xb *tensor.Dense, labels []int) (res Result, err error) {
	e.buf.Reset()
	if xa, err = asFloat32(xa); err != nil {
		return res, errors.WithMessage(err, "Xa")
	}
	if xb, err = asFloat32(xb); err != nil {
		return res, errors.WithMessage(err, "Xb")
	}
	if err = e.a.let(xa, xb, labels); err != nil {
		return res, err
	}
	// batch normalization runs on the statistics of the evaluated batch.
	for _, op := range e.a.ops {
		if err = op.Reset(); err != nil {
			return res, errors.WithStack(err)
		}
	}

	e.m.Reset()
	if err = e.m.RunAll(); err != nil {
		return res, errors.WithStack(err)
	}

	if res.Pab, err = cloneValue(e.a.pabValue); err != nil {
		return res, err
	}
	if res.Pba, err = cloneValue(e.a.pbaValue); err != nil {
		return res, err
	}
	if res.Visit, err = cloneValue(e.a.visitValue); err != nil {
		return res, err
	}
	if res.WalkerLoss, err = scalarOf(e.a.walkerValue); err != nil {
		return res, err
	}
	if res.VisitLoss, err = scalarOf(e.a.visitLossValue); err != nil {
		return res, err
	}
	if res.Loss, err = scalarOf(e.a.cost); err != nil {
		return res, err
	}
	for _, l := range []float32{res.WalkerLoss, res.VisitLoss, res.Loss} {
		if math32.IsNaN(l) || math32.IsInf(l, 0) {
			return res, errors.Errorf("loss is %v", l)
		}
	}
	res.Labels = append([]int(nil), labels...)
	return res, nil
}

// ExecLog returns the execution log. If Evaluate was called with toLog = false, then it will return an empty string
func (e *Evaluator) ExecLog() string { return e.buf.String() }

// Close implements a closer, because well, a gorgonia VM is a resource.
func (e *Evaluator) Close() error { return e.m.Close() }
