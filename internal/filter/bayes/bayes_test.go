package bayes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	trainDocs = []string{
		"corporate venture building investment launch",
		"acquisition of fintech startup by large bank",
		"new business unit expansion into latin america",
		"celebrity gossip red carpet fashion awards",
		"football match results league standings",
		"weather forecast rain sunny weekend",
	}
	trainLabels = []bool{true, true, true, false, false, false}
)

func TestTrainAndPredict(t *testing.T) {
	m := Train(trainDocs, trainLabels)
	require.NotNil(t, m)

	relevant := m.Predict("bank announces acquisition of startup")
	irrelevant := m.Predict("football league match weekend results")

	assert.Greater(t, relevant, 0.5)
	assert.Less(t, irrelevant, 0.5)
}

func TestTrainIdempotent(t *testing.T) {
	a := Train(trainDocs, trainLabels)
	b := Train(trainDocs, trainLabels)
	require.NotNil(t, a)
	require.NotNil(t, b)

	probe := "corporate expansion into new markets"
	assert.InDelta(t, a.Predict(probe), b.Predict(probe), 1e-12)
}

func TestTrainRejectsSingleClass(t *testing.T) {
	assert.Nil(t, Train([]string{"a", "b"}, []bool{true, true}))
	assert.Nil(t, Train([]string{"a", "b"}, []bool{false, false}))
}

func TestPredictUnknownTokensUsesPriors(t *testing.T) {
	m := Train(trainDocs, trainLabels)
	require.NotNil(t, m)

	// Equal class priors: fully-unknown input sits on the boundary.
	assert.InDelta(t, 0.5, m.Predict("zzz qqq xxx"), 1e-9)
}
