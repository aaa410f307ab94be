package assoc

import "github.com/gorgonia/semisup"

// Config configures the association graph
type Config struct {
	Sup      int `yaml:"sup"`      // supervised samples per batch
	Unsup    int `yaml:"unsup"`    // unsupervised samples per batch
	Features int `yaml:"features"` // input width
	EmbSize  int `yaml:"emb_size"` // embedding width

	Embedding Embedding `yaml:"embedding"`
	Image     [3]int    `yaml:"image"`   // channels, height, width of a sample. Only read by ConvEmbedding
	Filters   int       `yaml:"filters"` // filters of the first conv block; the second has twice as many

	WalkerWeight float64          `yaml:"walker_weight"`
	VisitWeight  float64          `yaml:"visit_weight"`
	Visit        semisup.Strategy `yaml:"visit"` // how the visit probability is computed

	LearnRate float64 `yaml:"learn_rate"`
	FwdOnly   bool    `yaml:"-"` // is this a fwd only graph?
}

func DefaultConf(sup, unsup, features int) Config {
	emb := round(features)
	if emb < 2 {
		emb = 2
	}
	return Config{
		Sup:      sup,
		Unsup:    unsup,
		Features: features,
		EmbSize:  emb,

		Embedding: LinearEmbedding,
		Filters:   8,

		WalkerWeight: 1,
		VisitWeight:  1,
		Visit:        semisup.Unnormalized,

		LearnRate: 0.1,
	}
}

// ConvConf is DefaultConf for (channels, height, width) images embedded by ConvEmbedding.
func ConvConf(sup, unsup int, image [3]int) Config {
	conf := DefaultConf(sup, unsup, image[0]*image[1]*image[2])
	conf.EmbSize = 128
	conf.Embedding = ConvEmbedding
	conf.Image = image
	return conf
}

func (conf Config) IsValid() bool {
	valid := conf.Sup >= 1 &&
		conf.Unsup >= 1 &&
		conf.Features >= 1 &&
		conf.EmbSize >= 1 &&
		conf.Embedding < MAXEMBEDDING &&
		conf.WalkerWeight >= 0 &&
		conf.VisitWeight >= 0 &&
		conf.Visit < semisup.MAXSTRATEGY &&
		conf.LearnRate > 0
	if !valid || conf.Embedding != ConvEmbedding {
		return valid
	}
	// the embeddings of both batches are sliced out of one tensor, which needs at least two rows each.
	// Each max pooling halves the image, so it has to be at least 4×4.
	return conf.Sup >= 2 &&
		conf.Unsup >= 2 &&
		conf.Filters >= 1 &&
		conf.Image[0] >= 1 && conf.Image[1] >= 4 && conf.Image[2] >= 4 &&
		conf.Image[0]*conf.Image[1]*conf.Image[2] == conf.Features
}

// round rounds a to the nearest power of two.
func round(a int) int {
	n := a - 1
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++

	lt := n / 2
	if (a - lt) < (n - a) {
		return lt
	}
	return n
}
