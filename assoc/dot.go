package assoc

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/gorgonia/semisup"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ToDot draws the association walk as a bipartite graph: supervised samples a0, a1, ... on one side,
// unsupervised samples b0, b1, ... on the other. An edge is drawn for every transition of pab
// (a → b) and pba (b → a) whose probability is at least threshold. pba may be nil.
func ToDot(pab, pba *tensor.Dense, threshold float64) (string, error) {
	pab, err := semisup.ValidateAssignment("ToDot", pab)
	if err != nil {
		return "", err
	}
	sup, unsup := pab.Shape()[0], pab.Shape()[1]
	if pba != nil {
		if pba, err = semisup.ValidateAssignment("ToDot", pba); err != nil {
			return "", err
		}
		if pba.Shape()[0] != unsup || pba.Shape()[1] != sup {
			return "", errors.WithStack(semisup.ShapeMismatchError{Op: "ToDot", A: pab.Shape().Clone(), B: pba.Shape().Clone(), Msg: "P_ba must be the reverse of P_ab"})
		}
	}

	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	if err := g.AddAttr("G", "rankdir", "LR"); err != nil {
		return "", err
	}
	if err := g.AddSubGraph("G", "cluster_sup", map[string]string{"label": `"supervised"`}); err != nil {
		return "", err
	}
	if err := g.AddSubGraph("G", "cluster_unsup", map[string]string{"label": `"unsupervised"`}); err != nil {
		return "", err
	}
	for i := 0; i < sup; i++ {
		if err := g.AddNode("cluster_sup", supName(i), map[string]string{"shape": "box"}); err != nil {
			return "", err
		}
	}
	for j := 0; j < unsup; j++ {
		if err := g.AddNode("cluster_unsup", unsupName(j), map[string]string{"shape": "ellipse"}); err != nil {
			return "", err
		}
	}

	if err := addEdges(g, pab, supName, unsupName, threshold, "black"); err != nil {
		return "", err
	}
	if pba != nil {
		if err := addEdges(g, pba, unsupName, supName, threshold, "gray"); err != nil {
			return "", err
		}
	}
	return g.String(), nil
}

func addEdges(g *gographviz.Graph, p *tensor.Dense, from, to func(int) string, threshold float64, colour string) error {
	m, n := p.Shape()[0], p.Shape()[1]
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v, err := p.At(i, j)
			if err != nil {
				return errors.WithStack(err)
			}
			w := v.(float64)
			if w < threshold || w == 0 {
				continue
			}
			attrs := map[string]string{
				"label": strconv.FormatFloat(w, 'f', 2, 64),
				"color": colour,
			}
			if err := g.AddEdge(from(i), to(j), true, attrs); err != nil {
				return err
			}
		}
	}
	return nil
}

func supName(i int) string   { return fmt.Sprintf("a%d", i) }
func unsupName(j int) string { return fmt.Sprintf("b%d", j) }
