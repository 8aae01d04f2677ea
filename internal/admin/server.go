package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fpt/polyglot/internal/gateway"
	"github.com/fpt/polyglot/pkg/logger"
	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/translate"
)

const (
	// ServiceName is the fully-qualified admin service name.
	ServiceName = "polyglot.admin.v1.AdminService"

	StatsProcedure     = "/" + ServiceName + "/Stats"
	TranslateProcedure = "/" + ServiceName + "/Translate"
)

// SnapshotFunc returns the current relay counters.
type SnapshotFunc func() gateway.Snapshot

// Server implements the admin procedures.
type Server struct {
	snapshot   SnapshotFunc
	translator domain.Translator
	logger     *logger.Logger
}

// NewServer creates the admin handler set. snapshot may be nil when no
// gateway is running, in which case Stats is unavailable.
func NewServer(snapshot SnapshotFunc, tr domain.Translator, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		snapshot:   snapshot,
		translator: tr,
		logger:     log.WithComponent("admin"),
	}
}

// Mount registers every procedure on mux.
func (s *Server) Mount(mux *http.ServeMux) {
	mux.Handle(StatsProcedure, connect.NewUnaryHandler(StatsProcedure, s.Stats))
	mux.Handle(TranslateProcedure, connect.NewUnaryHandler(TranslateProcedure, s.Translate))
}

// Stats returns the gateway snapshot as a struct.
func (s *Server) Stats(_ context.Context, _ *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	if s.snapshot == nil {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("gateway is not running"))
	}
	out, err := toStruct(s.snapshot())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// Translate runs a dry-run translation. The request carries "text" and
// "from"; the response lists one entry per language under "lines".
func (s *Server) Translate(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	if s.translator == nil {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("no translator configured"))
	}
	fields := req.Msg.GetFields()
	text := fields["text"].GetStringValue()
	if strings.TrimSpace(text) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("text is required"))
	}
	from, err := domain.ParseTag(fields["from"].GetStringValue())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	s.logger.InfoWithIntention(logger.IntentionTranslate, "Admin dry-run translation", "from", from, "chars", len(text))
	lines := translate.Preview(ctx, s.translator, text, from)

	out, err := toStruct(struct {
		From  domain.Tag              `json:"from"`
		Lines []translate.PreviewLine `json:"lines"`
	}{From: from, Lines: lines})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// toStruct converts a JSON-tagged value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode response")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return structpb.NewStruct(m)
}

// fromStruct is the inverse of toStruct.
func fromStruct(s *structpb.Struct, v any) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return errors.Wrap(err, "encode struct")
	}
	return errors.Wrap(json.Unmarshal(raw, v), "decode struct")
}
