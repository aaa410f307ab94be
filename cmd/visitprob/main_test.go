package main

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func run(t *testing.T, args ...string) string {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestDemo(t *testing.T) {
	out := run(t, "demo", "--csv")
	t.Logf("\n%s", out)
	assert.Contains(t, out, "class-normalized,")
	assert.True(t, strings.Contains(out, "0.5025"), "class normalized visit probability should be printed")
	assert.True(t, strings.Contains(out, "0.2475"), "proximity probability should be printed")
}

func TestDemo_LogGoesToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	defer rootCmd.SetErr(nil)
	rootCmd.SetArgs([]string{"demo", "--csv=false"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, errOut.String(), "class counts")
	assert.Contains(t, errOut.String(), "\tproximity:")
	assert.NotContains(t, out.String(), "class counts")
}

func TestRender(t *testing.T) {
	out := filepath.Join(t.TempDir(), "visit.gif")
	run(t, "render", "--out", out)
	assert.FileExists(t, out)
}

func TestClusters(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	xa, labels := clusters(r, 6, 4, unbalanced)
	assert.Equal(t, 6, xa.Shape()[0])
	assert.Equal(t, 4, xa.Shape()[1])
	assert.Equal(t, []int{0, 0, 0, 0, 1, 2}, labels)

	assert.Equal(t, []int{0, 0, 0, 0, 1, 2}, mixOf(unbalanced, 6))
	assert.Equal(t, []int{0, 1, 2, 0}, mixOf(balanced, 4))
}

func mixOf(mix classMix, n int) []int {
	retVal := make([]int, n)
	for i := range retVal {
		retVal[i] = mix(i, n)
	}
	return retVal
}

func TestFoldsPath(t *testing.T) {
	defer func(dir string) { stl10Dir = dir }(stl10Dir)
	stl10Dir = filepath.Join("data", "stl")
	assert.Equal(t, filepath.Join("data", "stl", "fold_indices.txt"), foldsPath(stl10Cmd))

	require.NoError(t, stl10Cmd.Flags().Set("folds", "folds.txt"))
	assert.Equal(t, "folds.txt", foldsPath(stl10Cmd))
}

func randomImages(r *rand.Rand, n int) *tensor.Dense {
	backing := make([]uint8, n*4*4*3)
	for i := range backing {
		backing[i] = uint8(r.Intn(256))
	}
	return tensor.New(tensor.WithShape(n, 4, 4, 3), tensor.WithBacking(backing))
}

func TestTrainOnImages(t *testing.T) {
	defer func(sup, unsup, iterations int, visit string, conv, augment bool) {
		stl10Sup, stl10Unsup, stl10Iterations, stl10Visit, stl10Conv, stl10Augment = sup, unsup, iterations, visit, conv, augment
	}(stl10Sup, stl10Unsup, stl10Iterations, stl10Visit, stl10Conv, stl10Augment)

	stl10Sup, stl10Unsup, stl10Iterations = 2, 3, 2
	stl10Visit = "proximity"
	for _, conv := range []bool{false, true} {
		stl10Conv, stl10Augment = conv, conv
		r := rand.New(rand.NewSource(1))
		var buf bytes.Buffer
		err := trainOnImages(&buf, randomImages(r, 5), []int{0, 1, 0, 1, 2}, randomImages(r, 7), r)
		require.NoError(t, err, "conv %v", conv)
		out := buf.String()
		t.Logf("\n%s", out)
		assert.Contains(t, out, "iteration 1")
		assert.Contains(t, out, "class-normalized")
	}

	stl10Sup = 6
	err := trainOnImages(&bytes.Buffer{}, randomImages(rand.New(rand.NewSource(1)), 5), []int{0, 1, 0, 1, 2}, randomImages(rand.New(rand.NewSource(2)), 7), rand.New(rand.NewSource(3)))
	assert.Error(t, err, "five labelled images do not make a batch of six")
}
