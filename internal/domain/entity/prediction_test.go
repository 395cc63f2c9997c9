package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundingBoxCenter(t *testing.T) {
	b := BoundingBox{X: 10, Y: 20, Width: 8, Height: 6}
	x, y := b.Center()
	require.Equal(t, 14.0, x)
	require.Equal(t, 23.0, y)
}

func TestDetectionJSON(t *testing.T) {
	d := Detection{Label: "knife", Score: 0.75, Box: BoundingBox{X: 1, Y: 2.5, Width: 30, Height: 40}}

	data, err := json.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, `{"bbox":[1,2.5,30,40],"class":"knife","score":0.75}`, string(data))

	var back Detection
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, d, back)

	require.Error(t, json.Unmarshal([]byte(`{"bbox":[1,2]}`), &back))
}
