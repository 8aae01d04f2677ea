package admin

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fpt/polyglot/internal/gateway"
	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/translate"
)

// Client calls a running admin server.
type Client struct {
	stats     *connect.Client[structpb.Struct, structpb.Struct]
	translate *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a client for the server at baseURL. A bare host:port is
// treated as http.
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		stats:     connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+StatsProcedure),
		translate: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+TranslateProcedure),
	}
}

// Stats fetches the gateway snapshot.
func (c *Client) Stats(ctx context.Context) (gateway.Snapshot, error) {
	var snap gateway.Snapshot
	resp, err := c.stats.CallUnary(ctx, connect.NewRequest(&structpb.Struct{}))
	if err != nil {
		return snap, err
	}
	err = fromStruct(resp.Msg, &snap)
	return snap, err
}

// Translate runs a dry-run translation on the server.
func (c *Client) Translate(ctx context.Context, text string, from domain.Tag) ([]translate.PreviewLine, error) {
	req, err := structpb.NewStruct(map[string]any{"text": text, "from": string(from)})
	if err != nil {
		return nil, err
	}
	resp, err := c.translate.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	var out struct {
		Lines []translate.PreviewLine `json:"lines"`
	}
	if err := fromStruct(resp.Msg, &out); err != nil {
		return nil, err
	}
	return out.Lines, nil
}
