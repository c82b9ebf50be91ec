package manticore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	manticoresearch "github.com/manticoresoftware/manticoresearch-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const TableHierarchy = "hierarchy"

var createHierarchySQL = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        id bigint,
        parent_id bigint,
        child_id bigint,
        child_name text,
        relation_type string
    )`, TableHierarchy)

type ManticoreClient struct {
	client     *manticoresearch.APIClient
	httpClient *http.Client
	baseURL    string
}

func NewClient(host string, port int, timeout time.Duration) *ManticoreClient {
	return newClient(fmt.Sprintf("http://%s:%d", host, port), timeout)
}

func newClient(baseURL string, timeout time.Duration) *ManticoreClient {
	// Увеличиваем таймауты для больших bulk операций
	httpClient := &http.Client{Timeout: timeout}

	configuration := manticoresearch.NewConfiguration()
	configuration.Servers = manticoresearch.ServerConfigurations{
		{URL: baseURL},
	}
	configuration.HTTPClient = httpClient

	return &ManticoreClient{
		client:     manticoresearch.NewAPIClient(configuration),
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// exec runs a single SQL statement through the /sql endpoint.
func (c *ManticoreClient) exec(ctx context.Context, sql string) error {
	req := c.client.UtilsAPI.Sql(ctx).Body(sql).RawResponse(true)

	resp, httpResp, err := c.client.UtilsAPI.SqlExecute(req)
	if err != nil {
		if httpResp == nil {
			return eris.Wrapf(err, "failed to execute %q", sql)
		}
		body, _ := io.ReadAll(httpResp.Body)
		if !isSuccess(httpResp.StatusCode) {
			return eris.Wrapf(err, "failed to execute %q, response: %s", sql, string(body))
		}
		// Тело не подошло ни под одну схему клиента, разбираем сами
		if msg := sqlError(body); msg != "" {
			return eris.Errorf("SQL error: %s", msg)
		}
		return nil
	}

	if httpResp != nil && !isSuccess(httpResp.StatusCode) {
		return eris.Errorf("%q returned HTTP %d", sql, httpResp.StatusCode)
	}

	// Проверяем наличие ошибок в ответе
	if resp != nil && resp.SqlObjResponse != nil {
		hits := resp.SqlObjResponse.GetHits()
		if sqlErr, ok := hits["error"]; ok && sqlErr != nil && sqlErr != "" {
			return eris.Errorf("SQL error: %v", sqlErr)
		}
	}
	return nil
}

// TableExists проверяет существование таблицы через SHOW CREATE TABLE.
// A transport failure is returned as an error; an SQL error from the server
// means the table is missing.
func (c *ManticoreClient) TableExists(ctx context.Context, tableName string) (bool, error) {
	req := c.client.UtilsAPI.Sql(ctx).Body(fmt.Sprintf("SHOW CREATE TABLE %s", tableName)).RawResponse(true)
	_, httpResp, err := c.client.UtilsAPI.SqlExecute(req)
	if err == nil {
		return true, nil
	}
	if httpResp == nil {
		return false, eris.Wrapf(err, "failed to check table %s", tableName)
	}
	if isSuccess(httpResp.StatusCode) {
		// Ответ успешный, но клиент не разобрал тело
		return true, nil
	}
	// Сервер ответил ошибкой - таблицы нет
	return false, nil
}

// CreateHierarchyTable создает таблицу для иерархии
func (c *ManticoreClient) CreateHierarchyTable(ctx context.Context) error {
	if err := c.exec(ctx, createHierarchySQL); err != nil {
		return eris.Wrapf(err, "failed to create %s table", TableHierarchy)
	}
	zap.L().Info("table ready", zap.String("table", TableHierarchy))
	return nil
}

// DropTable удаляет таблицу
func (c *ManticoreClient) DropTable(ctx context.Context, tableName string) error {
	if err := c.exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)); err != nil {
		return eris.Wrapf(err, "failed to drop table %s", tableName)
	}
	return nil
}

// TruncateTable очищает таблицу
func (c *ManticoreClient) TruncateTable(ctx context.Context, tableName string) error {
	if err := c.exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", tableName)); err != nil {
		return eris.Wrapf(err, "failed to truncate table %s", tableName)
	}
	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// sqlError extracts the "error" field from a raw /sql response, which is
// either an object or an array of result sets.
func sqlError(body []byte) string {
	type result struct {
		Error string `json:"error"`
	}
	var many []result
	if err := json.Unmarshal(body, &many); err == nil {
		for _, r := range many {
			if r.Error != "" {
				return r.Error
			}
		}
		return ""
	}
	var one result
	if err := json.Unmarshal(body, &one); err == nil {
		return one.Error
	}
	return ""
}
