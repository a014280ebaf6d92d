package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolinfra/domain/infra"
	"schoolinfra/internal/errors"
)

const sampleCSV = "Location,School Category,Total No. of Schools,Internet\n" +
	"Kerala,Primary,\"1,200\",600\n" +
	"Goa,Secondary,50\n" +
	",,,\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeFile(t, "data.csv", sampleCSV)

	table, err := NewDataReader(DefaultConfig()).ReadTable(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Location", "School Category", "Total No. of Schools", "Internet"}, table.Headers)
	require.Len(t, table.Records, 2, "blank rows are skipped")

	kerala := table.Records[0]
	assert.Equal(t, "Kerala", kerala.Location)
	assert.Equal(t, "Primary", kerala.Category)
	assert.Equal(t, 1200.0, kerala.Total())

	goa := table.Records[1]
	assert.Equal(t, "", goa.Value(infra.ColInternet))
	assert.Equal(t, 0.0, goa.Count(infra.ColInternet))
}

func TestReadCSVStripsByteOrderMark(t *testing.T) {
	path := writeFile(t, "bom.csv", "\ufeffLocation,School Category\nGoa,Primary\n")

	table, err := NewDataReader(DefaultConfig()).ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Location", table.Headers[0])
	assert.Equal(t, "Goa", table.Records[0].Location)
}

func TestReadMissingFile(t *testing.T) {
	_, err := NewDataReader(DefaultConfig()).ReadTable(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeArtifactMissing, errors.GetCode(err))
}

func TestReadEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	_, err := NewDataReader(DefaultConfig()).ReadTable(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func sampleTable() *infra.Table {
	return &infra.Table{
		Headers: []string{infra.ColLocation, infra.ColCategory, infra.ColTotalSchools, infra.ColMLRecommendations},
		Records: []infra.Record{
			infra.NewRecord(map[string]string{
				infra.ColLocation:          "Kerala",
				infra.ColCategory:          "Primary",
				infra.ColTotalSchools:      "100",
				infra.ColMLRecommendations: "Enhance internet connectivity in schools.; Install incinerators, soon",
			}),
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, name := range []string{"out.csv", "out.xlsx"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "nested", name)
			table := sampleTable()

			require.NoError(t, NewDataWriter(DefaultConfig()).WriteTable(ctx, path, table))

			got, err := NewDataReader(DefaultConfig()).ReadTable(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, table.Headers, got.Headers)
			require.Len(t, got.Records, 1)
			for _, h := range table.Headers {
				assert.Equal(t, table.Records[0].Value(h), got.Records[0].Value(h), h)
			}
		})
	}
}

func TestWriteExcelCustomSheet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.xlsx")

	require.NoError(t, NewDataWriter(Config{OutputSheet: "Results"}).WriteTable(ctx, path, sampleTable()))

	got, err := NewDataReader(Config{Sheet: "Results"}).ReadTable(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Kerala", got.Records[0].Location)
}

func TestReadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDataReader(DefaultConfig()).ReadTable(ctx, "whatever.csv")
	assert.ErrorIs(t, err, context.Canceled)
}
