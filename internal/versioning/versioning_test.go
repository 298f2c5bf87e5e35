package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalpipe/internal/model"
)

func doc(filename, fecha string, class model.Classification) model.Document {
	var fechas []string
	if fecha != "" {
		fechas = []string{fecha}
	}
	return model.Document{Filename: filename, ExtractedDates: fechas, Classification: class}
}

func TestAssignOrdersByDateAscending(t *testing.T) {
	docs := []model.Document{
		doc("modificacion.pdf", "2022-06-01", model.ClassEscrituraPublica),
		doc("constitucion.pdf", "2020-01-15", model.ClassEscrituraPublica),
		doc("aumento_capital.pdf", "2023-03-10", model.ClassEscrituraPublica),
	}

	groups, err := Assign(docs)
	require.NoError(t, err)

	g := groups[model.ClassEscrituraPublica]
	require.Len(t, g, 3)
	assert.Equal(t, "constitucion.pdf", g[0].Filename)
	assert.Equal(t, 1, g[0].Version)
	assert.True(t, g[0].Base)
	assert.Equal(t, "modificacion.pdf", g[1].Filename)
	assert.Equal(t, 2, g[1].Version)
	assert.False(t, g[1].Base)
	assert.Equal(t, "aumento_capital.pdf", g[2].Filename)
	assert.Equal(t, 3, g[2].Version)
}

func TestAssignTiebreaksByFilename(t *testing.T) {
	docs := []model.Document{
		doc("b.pdf", "2021-05-05", model.ClassInscripcionCBR),
		doc("a.pdf", "2021-05-05", model.ClassInscripcionCBR),
	}

	groups, err := Assign(docs)
	require.NoError(t, err)

	g := groups[model.ClassInscripcionCBR]
	require.Len(t, g, 2)
	assert.Equal(t, "a.pdf", g[0].Filename)
	assert.Equal(t, 1, g[0].Version)
	assert.Equal(t, "b.pdf", g[1].Filename)
	assert.Equal(t, 2, g[1].Version)
}

func TestAssignPartitionsByClassification(t *testing.T) {
	docs := []model.Document{
		doc("escritura.pdf", "2020-01-15", model.ClassEscrituraPublica),
		doc("inscripcion.pdf", "2020-02-20", model.ClassInscripcionCBR),
		doc("extracto.pdf", "2020-02-25", model.ClassPublicacionDO),
	}

	groups, err := Assign(docs)
	require.NoError(t, err)
	assert.Len(t, groups, 3)
	for _, g := range groups {
		require.Len(t, g, 1)
		assert.Equal(t, 1, g[0].Version)
		assert.True(t, g[0].Base)
	}
}

func TestAssignMissingDateIsFatal(t *testing.T) {
	docs := []model.Document{
		doc("ok.pdf", "2020-01-15", model.ClassEscrituraPublica),
		doc("sin_fecha.pdf", "", model.ClassEscrituraPublica),
	}

	_, err := Assign(docs)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrVersioning)
	assert.ErrorContains(t, err, "sin_fecha.pdf")
}

func TestAssignInvalidDateIsFatal(t *testing.T) {
	docs := []model.Document{doc("raro.pdf", "15/01/2020", model.ClassEscrituraPublica)}

	_, err := Assign(docs)
	assert.ErrorIs(t, err, model.ErrVersioning)
}

func TestAssignUnclassifiedFallsBackToOtros(t *testing.T) {
	docs := []model.Document{doc("misterio.pdf", "2020-01-15", "")}

	groups, err := Assign(docs)
	require.NoError(t, err)
	require.Len(t, groups[model.ClassOtros], 1)
}

func TestAssignEmptyInput(t *testing.T) {
	groups, err := Assign(nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFlattenOrdersByClassificationPriority(t *testing.T) {
	docs := []model.Document{
		doc("extracto.pdf", "2020-03-01", model.ClassPublicacionDO),
		doc("inscripcion.pdf", "2020-02-01", model.ClassInscripcionCBR),
		doc("constitucion.pdf", "2020-01-15", model.ClassEscrituraPublica),
		doc("modificacion.pdf", "2021-01-15", model.ClassEscrituraPublica),
	}

	groups, err := Assign(docs)
	require.NoError(t, err)

	flat := Flatten(groups)
	require.Len(t, flat, 4)
	assert.Equal(t, "constitucion.pdf", flat[0].Filename)
	assert.Equal(t, "modificacion.pdf", flat[1].Filename)
	assert.Equal(t, "inscripcion.pdf", flat[2].Filename)
	assert.Equal(t, "extracto.pdf", flat[3].Filename)
}
