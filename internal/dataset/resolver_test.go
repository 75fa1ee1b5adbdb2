package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"feedback-insights-go/internal/config"
)

func TestResolveByColumnName(t *testing.T) {
	cfg := config.Default()
	ds := &Dataset{
		Columns: []string{"ID", "Comentario Final", "NPS"},
		Rows: [][]string{
			{"1", "Excelente servicio, muy rápido", "9"},
			{"2", "Muy lento todo el mes", "3"},
		},
	}

	cols, err := Resolve(ds, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, cols.Comment)
	assert.Equal(t, 2, cols.NPS)
	assert.Equal(t, -1, cols.Rating)
}

func TestResolveFallsBackToTextColumn(t *testing.T) {
	cfg := config.Default()
	ds := &Dataset{
		Columns: []string{"id", "notas"},
		Rows: [][]string{
			{"1", "El técnico llegó tarde pero resolvió el problema"},
			{"2", "Todo funciona bien desde la instalación"},
		},
	}

	cols, err := Resolve(ds, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, cols.Comment)
}

func TestResolveNoCommentColumn(t *testing.T) {
	cfg := config.Default()
	tests := []struct {
		name string
		ds   *Dataset
	}{
		{
			name: "numeric only",
			ds: &Dataset{
				Columns: []string{"id", "monto"},
				Rows:    [][]string{{"1", "100"}, {"2", "250"}},
			},
		},
		{
			name: "empty dataset",
			ds:   &Dataset{Columns: []string{"a"}, Rows: nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.ds, cfg)
			assert.ErrorIs(t, err, ErrNoCommentColumn)
		})
	}
}

func TestExtractComments(t *testing.T) {
	cfg := config.Default()
	ds := &Dataset{
		Columns: []string{"Comentario", "NPS", "Calificacion"},
		Rows: [][]string{
			{"Buen servicio en general", "9", "4.5"},
			{"", "5", "1"},
			{"Cobro indebido este mes", "2", ""},
			{"Sin señal en mi zona", "11", "3"}, // out-of-range NPS is dropped
		},
	}
	cols, err := Resolve(ds, cfg)
	require.NoError(t, err)

	comments := ExtractComments(ds, cols, 0)
	require.Len(t, comments, 3) // blank row skipped

	assert.Equal(t, 1, comments[0].Row)
	require.NotNil(t, comments[0].NPSScore)
	assert.Equal(t, 9, *comments[0].NPSScore)
	require.NotNil(t, comments[0].Rating)
	assert.InDelta(t, 4.5, *comments[0].Rating, 0.001)

	assert.Equal(t, "Cobro indebido este mes", comments[1].Text)
	assert.Nil(t, comments[1].Rating)

	assert.Nil(t, comments[2].NPSScore)
}

func TestExtractCommentsRespectsCeiling(t *testing.T) {
	cfg := config.Default()
	ds := &Dataset{
		Columns: []string{"Comentario"},
		Rows: [][]string{
			{"primer comentario de prueba"},
			{"segundo comentario de prueba"},
			{"tercer comentario de prueba"},
		},
	}
	cols, err := Resolve(ds, cfg)
	require.NoError(t, err)

	comments := ExtractComments(ds, cols, 2)
	assert.Len(t, comments, 2)
}
