package v1

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"datagrid/internal/domain"
	"datagrid/internal/domain/products"
	"datagrid/internal/domain/query"
	"datagrid/internal/infrastructure/http/v1/handlers"
	"datagrid/pkg/logger"
)

type fixture struct {
	router http.Handler
	rows   []products.Product
	svc    *domain.TableService[products.Product]
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	rows := products.Generate(products.GeneratorConfig{
		Seed:  11,
		Count: 30,
		Users: 4,
		Now:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	svc, err := products.NewTableService(domain.TableServiceConfig[products.Product]{
		Rows:     rows,
		Defaults: query.Defaults{PageSize: 10, MaxPageSize: 100},
	})
	require.NoError(t, err)

	tables := domain.NewTables()
	tables.Register(svc)

	router, err := NewRouter(RouterConfig{
		Tables:  tables,
		Metrics: prometheus.NewRegistry(),
		Version: "test",
		Checks:  map[string]handlers.Checker{},
	})
	require.NoError(t, err)
	return fixture{router: router, rows: rows, svc: svc}
}

func (f fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = f.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	info := decodeJSON[struct {
		Tables map[string]int `json:"tables"`
	}](t, f.do(t, http.MethodGet, "/health/info", nil))
	assert.Equal(t, 30, info.Tables["products"])
}

func TestListTablesAndColumns(t *testing.T) {
	f := newFixture(t)

	list := decodeJSON[struct {
		Items []struct {
			Name        string `json:"name"`
			Rows        int    `json:"rows"`
			DefaultSort string `json:"defaultSort"`
		} `json:"items"`
	}](t, f.do(t, http.MethodGet, "/api/v1/tables", nil))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "products", list.Items[0].Name)
	assert.Equal(t, 30, list.Items[0].Rows)
	assert.Equal(t, "-createdAt", list.Items[0].DefaultSort)

	cols := decodeJSON[struct {
		Columns []struct {
			ID     string `json:"id"`
			Widget string `json:"widget"`
		} `json:"columns"`
	}](t, f.do(t, http.MethodGet, "/api/v1/tables/products/columns", nil))
	widgets := map[string]string{}
	for _, c := range cols.Columns {
		widgets[c.ID] = c.Widget
	}
	assert.Equal(t, "select", widgets["status"])
	assert.Equal(t, "multi-select", widgets["tags"])

	w := f.do(t, http.MethodGet, "/api/v1/tables/orders/columns", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeJSON[errorBody](t, w).Code)
}

type pageBody struct {
	Columns       []string          `json:"columns"`
	Rows          []map[string]any  `json:"rows"`
	RowIDs        []string          `json:"rowIds"`
	TotalCount    int               `json:"totalCount"`
	FilteredCount int               `json:"filteredCount"`
	PageIndex     int               `json:"pageIndex"`
	PageCount     int               `json:"pageCount"`
	Query         map[string]string `json:"query"`
}

func TestRows(t *testing.T) {
	f := newFixture(t)

	t.Run("defaults", func(t *testing.T) {
		page := decodeJSON[pageBody](t, f.do(t, http.MethodGet, "/api/v1/tables/products/rows", nil))
		assert.Len(t, page.Rows, 10)
		assert.Equal(t, 30, page.TotalCount)
		assert.Equal(t, 3, page.PageCount)
		assert.Empty(t, page.Query)
	})

	t.Run("pagination", func(t *testing.T) {
		page := decodeJSON[pageBody](t, f.do(t, http.MethodGet, "/api/v1/tables/products/rows?page=3&perPage=12", nil))
		assert.Len(t, page.Rows, 6)
		assert.Equal(t, 2, page.PageIndex)
		assert.Equal(t, map[string]string{"page": "3", "perPage": "12"}, page.Query)
	})

	t.Run("malformed state is dropped", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/tables/products/rows?filters=%5Bnot-json&sort=-nope", nil)
		require.Equal(t, http.StatusOK, w.Code)
		page := decodeJSON[pageBody](t, w)
		assert.Equal(t, 30, page.FilteredCount)
		assert.NotContains(t, page.Query, "filters")
		assert.NotContains(t, page.Query, "sort")
	})

	t.Run("oversized page", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/tables/products/rows?page=1000000000000000001&perPage=10", nil)
		require.Equal(t, http.StatusOK, w.Code)
		page := decodeJSON[pageBody](t, w)
		assert.Equal(t, 0, page.PageIndex)
		assert.Len(t, page.Rows, 10)

		w = f.do(t, http.MethodGet, "/api/v1/tables/products/rows?page=2147483647", nil)
		require.Equal(t, http.StatusOK, w.Code)
		page = decodeJSON[pageBody](t, w)
		assert.Empty(t, page.Rows)
		assert.Equal(t, 3, page.PageCount)
	})

	t.Run("cleared sort is kept", func(t *testing.T) {
		page := decodeJSON[pageBody](t, f.do(t, http.MethodGet, "/api/v1/tables/products/rows?perPage=100&sort=%5B%5D", nil))
		assert.Equal(t, "[]", page.Query["sort"])
		stored := f.svc.Rows()
		want := make([]string, len(stored))
		for i, p := range stored {
			want[i] = p.ID
		}
		assert.Equal(t, want, page.RowIDs, "source order")
	})

	t.Run("filter and layout", func(t *testing.T) {
		status := string(f.rows[0].Status)
		want := 0
		for _, p := range f.rows {
			if string(p.Status) == status {
				want++
			}
		}
		filters := `[{"id":"status","value":"` + status + `","variant":"select","operator":"eq"}]`
		target := "/api/v1/tables/products/rows?perPage=100&hide=description&pinLeft=name&filters=" + url.QueryEscape(filters)

		page := decodeJSON[pageBody](t, f.do(t, http.MethodGet, target, nil))
		assert.Equal(t, want, page.FilteredCount)
		assert.Equal(t, "name", page.Columns[0])
		assert.NotContains(t, page.Columns, "description")
		for _, row := range page.Rows {
			assert.Equal(t, status, row["status"])
		}
		assert.Contains(t, page.Query, "filters")
	})
}

func TestFacets(t *testing.T) {
	f := newFixture(t)

	facet := decodeJSON[struct {
		ColumnID string `json:"columnId"`
		Rows     int    `json:"rows"`
		Values   []struct {
			Value string `json:"value"`
			Count int    `json:"count"`
		} `json:"values"`
	}](t, f.do(t, http.MethodGet, "/api/v1/tables/products/facets/status?limit=2", nil))
	assert.Equal(t, "status", facet.ColumnID)
	assert.Equal(t, 30, facet.Rows)
	assert.LessOrEqual(t, len(facet.Values), 2)

	w := f.do(t, http.MethodGet, "/api/v1/tables/products/facets/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/tables/products/facets/status?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/tables/products/export?format=csv&hide=description", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="products.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "30", w.Header().Get(handlers.HeaderExportedRows))
	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 31)
	assert.NotContains(t, records[0], "Description")
	assert.NotContains(t, records[0], "Select")

	w = f.do(t, http.MethodGet, "/api/v1/tables/products/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeJSON[errorBody](t, w).Code)

	ids := []string{f.rows[3].ID, f.rows[7].ID, "missing"}
	w = f.do(t, http.MethodPost, "/api/v1/tables/products/selection/export?format=xlsx", map[string]any{"ids": ids})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get(handlers.HeaderExportedRows))
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
}

func TestSelectionDelete(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/tables/products/selection/delete", map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ids := []string{f.rows[0].ID, f.rows[1].ID}
	w = f.do(t, http.MethodPost, "/api/v1/tables/products/selection/delete", map[string]any{"ids": ids})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[struct {
		Deleted   int      `json:"deleted"`
		Selection []string `json:"selection"`
	}](t, w)
	assert.Equal(t, 2, resp.Deleted)
	assert.Empty(t, resp.Selection)
	assert.Equal(t, 28, f.svc.Len())

	page := decodeJSON[pageBody](t, f.do(t, http.MethodGet, "/api/v1/tables/products/rows", nil))
	assert.Equal(t, 28, page.TotalCount)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/health/live", nil)

	w := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `datagrid_http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestRequestLogCarriesCanonicalState(t *testing.T) {
	svc, err := products.NewTableService(domain.TableServiceConfig[products.Product]{
		Rows: products.Generate(products.GeneratorConfig{Seed: 3, Count: 12, Users: 2}),
	})
	require.NoError(t, err)
	tables := domain.NewTables()
	tables.Register(svc)

	core, logs := observer.New(zapcore.InfoLevel)
	router, err := NewRouter(RouterConfig{Tables: tables, Logger: logger.NewWithCore(core)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables/products/rows?sort=-nope&page=2&junk=1", nil)
	req.Header.Set("X-Request-ID", "req-9")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "products", fields["table"])
	assert.Equal(t, "page=2", fields["table_state"])
	assert.Equal(t, "req-9", fields["request_id"])
}
