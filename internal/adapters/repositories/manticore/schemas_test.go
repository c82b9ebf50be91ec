package manticore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqlServer imitates the /sql endpoint closely enough for schema calls.
type sqlServer struct {
	mu         sync.Mutex
	tables     map[string]bool
	statements []string
}

func newSQLServer(t *testing.T, tables ...string) (*sqlServer, *httptest.Server) {
	t.Helper()
	s := &sqlServer{tables: make(map[string]bool)}
	for _, name := range tables {
		s.tables[name] = true
	}
	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)
	return s, srv
}

func sqlStatement(body []byte) string {
	stmt := string(body)
	if unescaped, err := url.QueryUnescape(stmt); err == nil {
		stmt = unescaped
	}
	stmt = strings.TrimPrefix(stmt, "query=")
	return strings.TrimSpace(strings.Trim(stmt, `"`))
}

func (s *sqlServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	stmt := sqlStatement(body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements = append(s.statements, stmt)

	ok := `[{"total":0,"error":"","warning":""}]`
	switch {
	case strings.Contains(stmt, "SHOW CREATE TABLE "+TableHierarchy):
		if !s.tables[TableHierarchy] {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"no such table 'hierarchy'"}`))
			return
		}
	case strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+TableHierarchy):
		s.tables[TableHierarchy] = true
	case strings.Contains(stmt, "DROP TABLE IF EXISTS "+TableHierarchy):
		delete(s.tables, TableHierarchy)
	}
	_, _ = w.Write([]byte(ok))
}

func (s *sqlServer) executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.statements...)
}

func (s *sqlServer) has(table string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[table]
}

func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func TestTableExists(t *testing.T) {
	_, present := newSQLServer(t, TableHierarchy)
	exists, err := newClient(present.URL, 5*time.Second).TableExists(context.Background(), TableHierarchy)
	require.NoError(t, err)
	assert.True(t, exists)

	_, absent := newSQLServer(t)
	exists, err = newClient(absent.URL, 5*time.Second).TableExists(context.Background(), TableHierarchy)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTableExists_UnreachableServer(t *testing.T) {
	exists, err := newClient(unreachableURL(t), time.Second).TableExists(context.Background(), TableHierarchy)
	assert.Error(t, err)
	assert.False(t, exists)
}

func TestResetRelations_CreatesAndTruncates(t *testing.T) {
	for _, existing := range [][]string{nil, {TableHierarchy}} {
		s, srv := newSQLServer(t, existing...)

		require.NoError(t, newClient(srv.URL, 5*time.Second).ResetRelations(context.Background()))

		stmts := s.executed()
		require.Len(t, stmts, 2)
		assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS "+TableHierarchy)
		assert.Contains(t, stmts[1], "TRUNCATE TABLE "+TableHierarchy)
	}
}

func TestResetRelations_UnreachableServer(t *testing.T) {
	assert.Error(t, newClient(unreachableURL(t), time.Second).ResetRelations(context.Background()))
}

func TestDropRelations(t *testing.T) {
	s, srv := newSQLServer(t, TableHierarchy)

	require.NoError(t, newClient(srv.URL, 5*time.Second).DropRelations(context.Background()))
	stmts := s.executed()
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "DROP TABLE IF EXISTS "+TableHierarchy)
	assert.False(t, s.has(TableHierarchy))
}

func TestSQLError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"array ok", `[{"total":0,"error":"","warning":""}]`, ""},
		{"array error", `[{"total":0,"error":"syntax error","warning":""}]`, "syntax error"},
		{"object error", `{"error":"no such table"}`, "no such table"},
		{"not json", `oops`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlError([]byte(tt.body)))
		})
	}
}
