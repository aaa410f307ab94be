package assoc

import (
	"bytes"
	"encoding/gob"

	"github.com/gorgonia/semisup"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var Float = G.Float32

const epsilon = semisup.Epsilon

// Assoc is the association graph of learning by association.
//
// Supervised samples Xa and unsupervised samples Xb are embedded with the same weights. The
// similarities of the embeddings define a walk from the supervised samples to the unsupervised
// samples (P_ab) and back (P_ba). The walker loss asks round trips to end in the class they started
// from, the visit loss asks every unsupervised sample to be visited.
type Assoc struct {
	Config

	g      *G.ExprGraph
	xa, xb *G.Node // supervised and unsupervised inputs
	target *G.Node // where round trips should end. A same class matrix.
	scale  *G.Node // diagonal matrix of class scales. Only used by semisup.ClassNormalized
	w      *G.Node // weights of the linear embedding
	ops    []batchNormOp

	pab, pba, visit *G.Node

	pabValue, pbaValue, visitValue G.Value
	walkerValue, visitLossValue    G.Value
	cost                           G.Value
}

// New returns a new, uninitialized *Assoc.
func New(conf Config) *Assoc {
	return &Assoc{Config: conf}
}

func (a *Assoc) Init() error {
	if !a.IsValid() {
		return errors.Errorf("invalid config %+v", a.Config)
	}
	a.reset()
	a.g = G.NewGraph()
	if err := a.fwd(); err != nil {
		return err
	}
	total, err := a.losses()
	if err != nil {
		return err
	}
	return a.bwd(total)
}

func (a *Assoc) fwd() error {
	a.xa = G.NewMatrix(a.g, Float, G.WithShape(a.Sup, a.Features), G.WithName("Xa"))
	a.xb = G.NewMatrix(a.g, Float, G.WithShape(a.Unsup, a.Features), G.WithName("Xb"))

	var m maebe
	var embA, embB *G.Node
	switch a.Embedding {
	case LinearEmbedding:
		a.w = G.NewMatrix(a.g, Float, G.WithShape(a.Features, a.EmbSize), G.WithName("W"), G.WithInit(G.GlorotN(1.0)))
		embA = m.embed(a.xa, a.w)
		embB = m.embed(a.xb, a.w)
	case ConvEmbedding:
		embA, embB = a.convEmbed(&m)
	default:
		return errors.Errorf("unknown embedding %v", a.Embedding)
	}
	match := m.matmul(embA, m.transpose(embB)) // Sup × Unsup

	a.pab = m.assign(match)
	a.pba = m.assign(m.transpose(match))

	switch a.Visit {
	case semisup.Unnormalized:
		a.visit = m.do(func() (*G.Node, error) { return G.Mean(a.pab, 0) })
	case semisup.ClassNormalized:
		a.scale = G.NewMatrix(a.g, Float, G.WithShape(a.Sup, a.Sup), G.WithName("Scale"))
		scaled := m.matmul(a.scale, a.pab)
		summed := m.do(func() (*G.Node, error) { return G.Sum(scaled, 0) })
		total := m.do(func() (*G.Node, error) { return G.Sum(summed) })
		a.visit = m.do(func() (*G.Node, error) { return G.Div(summed, total) })
	case semisup.Proximity:
		pbab := m.matmul(a.pba, a.pab)
		a.visit = m.do(func() (*G.Node, error) { return G.Mean(pbab, 0) })
	default:
		return errors.Errorf("unknown visit strategy %v", a.Visit)
	}
	if m.err != nil {
		return m.err
	}

	G.Read(a.pab, &a.pabValue)
	G.Read(a.pba, &a.pbaValue)
	G.Read(a.visit, &a.visitValue)
	return nil
}

// convEmbed embeds Xa and Xb as one batch, so that both share every filter and are normalized together.
func (a *Assoc) convEmbed(m *maebe) (embA, embB *G.Node) {
	n := a.Sup + a.Unsup
	x := m.stack(a.xa, a.xb)
	x = m.reshape(x, tensor.Shape{n, a.Image[0], a.Image[1], a.Image[2]})

	var op1, op2 batchNormOp
	x, op1 = m.block(x, a.Filters, "Block1")
	x = m.maxpool(x)
	x, op2 = m.block(x, 2*a.Filters, "Block2")
	x = m.maxpool(x)
	if m.err != nil {
		return nil, nil
	}
	a.ops = append(a.ops, op1, op2)

	x = m.reshape(x, tensor.Shape{n, x.Shape().TotalSize() / n})
	emb := m.linear(x, a.EmbSize, "Emb")
	return m.rows(emb, 0, a.Sup), m.rows(emb, a.Sup, n)
}

func (a *Assoc) losses() (*G.Node, error) {
	a.target = G.NewMatrix(a.g, Float, G.WithShape(a.Sup, a.Sup), G.WithName("T"))

	var m maebe
	paba := m.matmul(a.pab, a.pba)
	walker := m.xent(paba, a.target)
	visit := m.uniformXent(a.visit)
	weightedWalker := m.weigh(a.WalkerWeight, walker)
	weightedVisit := m.weigh(a.VisitWeight, visit)
	total := m.do(func() (*G.Node, error) { return G.Add(weightedWalker, weightedVisit) })
	if m.err != nil {
		return nil, m.err
	}
	G.Read(walker, &a.walkerValue)
	G.Read(visit, &a.visitLossValue)
	G.Read(total, &a.cost)
	return total, nil
}

func (a *Assoc) bwd(total *G.Node) error {
	if a.FwdOnly {
		return nil
	}
	if _, err := G.Grad(total, a.Model()...); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Model returns the learnables of the graph.
func (a *Assoc) Model() G.Nodes {
	retVal := make(G.Nodes, 0, 1)
	for _, n := range a.g.AllNodes() {
		if n.IsVar() && !a.isInput(n) {
			retVal = append(retVal, n)
		}
	}
	return retVal
}

func (a *Assoc) isInput(n *G.Node) bool {
	return n == a.xa || n == a.xb || n == a.target || n == a.scale
}

func (a *Assoc) Clone() (*Assoc, error) {
	a2 := New(a.Config)
	if err := a2.Init(); err != nil {
		return nil, err
	}

	model := a.Model()
	model2 := a2.Model()
	for i, n := range model {
		if err := G.Let(model2[i], n.Value()); err != nil {
			return nil, err
		}
	}
	return a2, nil
}

func (a *Assoc) reset() {
	a.g = nil
	a.xa, a.xb = nil, nil
	a.target, a.scale = nil, nil
	a.w = nil
	a.ops = nil
	a.pab, a.pba, a.visit = nil, nil, nil
}

func (a *Assoc) GobEncode() (retVal []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err = enc.Encode(a.Config); err != nil {
		return nil, err
	}
	for _, n := range a.Model() {
		t, ok := n.Value().(*tensor.Dense)
		if !ok {
			return nil, errors.Errorf("cannot encode %v of %T", n, n.Value())
		}
		if err = enc.Encode(t); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (a *Assoc) GobDecode(p []byte) error {
	buf := bytes.NewBuffer(p)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(&a.Config); err != nil {
		return err
	}
	if err := a.Init(); err != nil {
		return err
	}
	for _, n := range a.Model() {
		v := new(tensor.Dense)
		if err := dec.Decode(v); err != nil {
			return err
		}
		if err := G.Let(n, v); err != nil {
			return err
		}
	}
	return nil
}
