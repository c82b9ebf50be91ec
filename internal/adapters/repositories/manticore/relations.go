package manticore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terratensor/geohierarchy/internal/core/domain"
)

type relationDoc struct {
	ParentID     int64  `json:"parent_id"`
	ChildID      int64  `json:"child_id"`
	ChildName    string `json:"child_name"`
	RelationType string `json:"relation_type"`
}

type insertCmd struct {
	Insert struct {
		Table string      `json:"table"`
		Doc   relationDoc `json:"doc"`
	} `json:"insert"`
}

type bulkResponse struct {
	Errors bool   `json:"errors"`
	Error  string `json:"error"`
}

// ResetRelations гарантирует пустую таблицу иерархии перед публикацией.
// The table is created if missing and truncated every time.
func (c *ManticoreClient) ResetRelations(ctx context.Context) error {
	if err := c.CreateHierarchyTable(ctx); err != nil {
		return err
	}

	zap.L().Info("truncating table", zap.String("table", TableHierarchy))
	return c.TruncateTable(ctx, TableHierarchy)
}

// DropRelations removes the hierarchy table entirely.
func (c *ManticoreClient) DropRelations(ctx context.Context) error {
	return c.DropTable(ctx, TableHierarchy)
}

// InsertBatchRelations отправляет пачку связей одним NDJSON запросом в /bulk.
// Manticore assigns document ids itself.
func (c *ManticoreClient) InsertBatchRelations(ctx context.Context, relations []domain.HierarchyRelation) error {
	if len(relations) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for _, r := range relations {
		var cmd insertCmd
		cmd.Insert.Table = TableHierarchy
		cmd.Insert.Doc = relationDoc{
			ParentID:     r.ParentID,
			ChildID:      r.ChildID,
			ChildName:    r.ChildName,
			RelationType: r.RelationType,
		}
		// Encode дописывает '\n' после каждой команды
		if err := enc.Encode(cmd); err != nil {
			return eris.Wrap(err, "failed to marshal insert command")
		}
	}

	return c.bulk(ctx, buf.Bytes())
}

func (c *ManticoreClient) bulk(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bulk", bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("bulk insert returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result bulkResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return eris.Wrap(err, "failed to parse response")
	}
	if result.Errors {
		if result.Error != "" {
			return eris.Errorf("bulk insert error: %s", result.Error)
		}
		return eris.Errorf("bulk insert completed with errors: %s", string(body))
	}

	return nil
}
