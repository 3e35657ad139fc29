package features

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/dataset"
)

func testSchema() config.Schema {
	return config.Schema{
		Columns: []config.ColumnSpec{
			{Name: "id", Type: "int"},
			{Name: "Gender", Type: "category"},
			{Name: "Age", Type: "int"},
			{Name: "Vehicle_Age", Type: "category"},
			{Name: "Annual_Premium", Type: "float"},
		},
		DropColumns:   []string{"id"},
		NumFeatures:   []string{"Age"},
		MinMaxColumns: []string{"Annual_Premium"},
		BinaryMaps:    map[string]map[string]float64{"Gender": {"Female": 0, "Male": 1}},
	}
}

func trainingData(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New([]string{"id", "Gender", "Age", "Vehicle_Age", "Annual_Premium"})
	for _, row := range [][]string{
		{"1", "Male", "20", "< 1 Year", "100"},
		{"2", "Female", "40", "1-2 Year", "300"},
		{"3", "Male", "", "> 2 Years", "200"},
	} {
		require.NoError(t, ds.AppendRow(row))
	}
	return ds
}

func TestFit_Layout(t *testing.T) {
	p, err := Fit(testSchema(), trainingData(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"id"}, p.DropColumns)
	assert.Equal(t, []string{"Gender", "Age", "Annual_Premium"}, p.Numeric)
	require.Len(t, p.OneHot, 1)
	assert.Equal(t, []string{"1-2 Year", "< 1 Year", "> 2 Years"}, p.OneHot[0].Categories)
	assert.Equal(t, []string{
		"Age", "Annual_Premium", "Gender", "Vehicle_Age_< 1 Year", "Vehicle_Age_> 2 Years",
	}, p.Features)
	assert.InDelta(t, 30.0, p.Means["Age"], 1e-12)
}

func TestTransform_ScalesAndEncodes(t *testing.T) {
	p, err := Fit(testSchema(), trainingData(t))
	require.NoError(t, err)

	x, err := p.Transform(trainingData(t))
	require.NoError(t, err)
	require.Len(t, x, 3)

	want := [][]float64{
		{-1.224744871, 0, 1, 1, 0},
		{1.224744871, 1, 0, 0, 0},
		{0, 0.5, 1, 0, 1},
	}
	for r := range want {
		for c := range want[r] {
			assert.InDelta(t, want[r][c], x[r][c], 1e-6, "row %d col %d", r, c)
		}
	}
}

func TestTransform_UnseenValues(t *testing.T) {
	p, err := Fit(testSchema(), trainingData(t))
	require.NoError(t, err)

	ds := dataset.New([]string{"Annual_Premium", "Vehicle_Age", "Age", "Gender", "Response"})
	require.NoError(t, ds.AppendRow([]string{"100", "new", "30", "Other", "1"}))

	x, err := p.Transform(ds)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, x[0][0], 1e-9)
	assert.InDelta(t, 2.0/3.0, x[0][2], 1e-9)
	assert.Equal(t, 0.0, x[0][3])
	assert.Equal(t, 0.0, x[0][4])
}

func TestTransform_MissingColumn(t *testing.T) {
	p, err := Fit(testSchema(), trainingData(t))
	require.NoError(t, err)

	_, err = p.Transform(dataset.New([]string{"Age"}))
	assert.ErrorContains(t, err, "input column Gender not found")
}

func TestFit_Errors(t *testing.T) {
	overlap := testSchema()
	overlap.MinMaxColumns = []string{"Age"}
	_, err := Fit(overlap, trainingData(t))
	assert.ErrorContains(t, err, "columns found in both scalers")

	missing := testSchema()
	missing.NumFeatures = []string{"Vintage"}
	_, err = Fit(missing, trainingData(t))
	assert.ErrorContains(t, err, "standard scaler column Vintage not found")

	_, err = Fit(testSchema(), dataset.New([]string{"Age"}))
	assert.ErrorContains(t, err, "empty dataset")
}

func TestSaveLoad(t *testing.T) {
	p, err := Fit(testSchema(), trainingData(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "preprocessor.json")
	require.NoError(t, p.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)

	a, err := p.Transform(trainingData(t))
	require.NoError(t, err)
	b, err := loaded.Transform(trainingData(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSplitTarget(t *testing.T) {
	ds := dataset.New([]string{"Age", "Response"})
	require.NoError(t, ds.AppendRow([]string{"30", "1"}))
	require.NoError(t, ds.AppendRow([]string{"40", "0"}))

	inputs, y, err := SplitTarget(ds, "Response")
	require.NoError(t, err)
	assert.Equal(t, []string{"Age"}, inputs.Columns)
	assert.Equal(t, []float64{1, 0}, y)

	require.NoError(t, ds.AppendRow([]string{"50", "yes"}))
	_, _, err = SplitTarget(ds, "Response")
	assert.ErrorContains(t, err, "must be 0 or 1")
}

func TestBlob_Validate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.json")
	err := WriteBlob(path, &Blob{Features: []string{"a"}, X: [][]float64{{1}}, Y: []float64{1, 0}})
	assert.Error(t, err)

	blob := &Blob{Features: []string{"a", "b"}, X: [][]float64{{1, 2}, {3, 4}}, Y: []float64{1, 0}}
	require.NoError(t, WriteBlob(path, blob))
	got, err := ReadBlob(path)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}
