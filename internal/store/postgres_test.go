package store

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"kinderwise/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertQuery_CallsProcedureWithNamedParams(t *testing.T) {
	p := params("iron-rich-foods", "feeding", "Iron")
	p.Citations = []model.Citation{{URL: "https://www.cdc.gov/iron"}}

	query, args, err := upsertQuery(p)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "SELECT upsert_article_bundle("))
	assert.Contains(t, query, "p_slug => $1")
	assert.Contains(t, query, "p_keywords => $20")
	assert.NotContains(t, query, "?")
	require.Len(t, args, 20)

	assert.Equal(t, "iron-rich-foods", args[0])
	assert.Equal(t, model.DefaultLocale, args[3])
	assert.IsType(t, pq.Array([]string{}), args[6])
	assert.Equal(t, `[{"url":"https://www.cdc.gov/iron"}]`, args[16])
	assert.Equal(t, `[]`, args[14], "empty steps are sent as a JSON array")
}

func TestUpsertQuery_PassesFreeFormJSON(t *testing.T) {
	p := params("bath-time", "care", "Bath time")
	p.Steps = json.RawMessage(`[{"title":"Fill the bath","detail":"5-8 cm"}]`)
	p.FAQ = nil

	_, args, err := upsertQuery(p)
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"Fill the bath","detail":"5-8 cm"}]`, args[14])
	assert.Equal(t, `[]`, args[15])
}

func TestListQuery_Filters(t *testing.T) {
	query, args, err := listQuery(Query{
		Status: model.StatusPublished,
		Hub:    "feeding",
		Search: "iron",
		Limit:  5,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM articles")
	assert.Contains(t, query, "status = $1")
	assert.Contains(t, query, "hub = $2")
	assert.Contains(t, query, "title ILIKE $3")
	assert.Contains(t, query, "one_liner ILIKE $4")
	assert.Contains(t, query, "$5 = ANY(keywords)")
	assert.Contains(t, query, "ORDER BY updated_at DESC")
	assert.Contains(t, query, "LIMIT 5")
	assert.Equal(t, []any{"published", "feeding", "%iron%", "%iron%", "iron"}, args)
}

func TestListQuery_SearchWildcardsAreLiteral(t *testing.T) {
	_, args, err := listQuery(Query{Search: `50%_off\`}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, []any{`%50\%\_off\\%`, `%50\%\_off\\%`, `50%_off\`}, args)
}

func TestListQuery_ClampsLimit(t *testing.T) {
	query, _, err := listQuery(Query{Limit: 1_000_000}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "LIMIT 1000")

	query, _, err = listQuery(Query{}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "LIMIT 20")
}

func TestAppendLogQuery(t *testing.T) {
	entry := model.IngestionLogEntry{
		ID:        uuid.New(),
		BatchID:   "batch-1",
		Action:    model.ActionBatchCompletion,
		Status:    model.BatchPartial,
		Metadata:  map[string]int{"total": 2},
		CreatedAt: time.Now(),
	}

	query, args, err := appendLogQuery(entry)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO ingestion_logs"))
	require.Len(t, args, 8)
	assert.Equal(t, "batch-completion", args[3])
	assert.Equal(t, "partial", args[4])
	assert.Equal(t, sql.NullString{}, args[2], "batch rows have no slug")
	assert.Equal(t, `{"total":2}`, args[6])
}

func TestAppendLogQuery_NilMetadata(t *testing.T) {
	_, args, err := appendLogQuery(model.IngestionLogEntry{ID: uuid.New(), BatchID: "b"})
	require.NoError(t, err)
	assert.Nil(t, args[6])
}
