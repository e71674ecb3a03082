// Package rpcapi exposes a minimal gRPC service over internal/engine and
// internal/config, registered by hand against a JSON codec (ServiceDesc +
// MethodDesc literals, no protobuf code generation), rather than pulling
// in a .proto toolchain for two RPCs.
package rpcapi

import (
	"context"
	"encoding/json"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/anthropics/tinyvalid/internal/config"
	"github.com/anthropics/tinyvalid/internal/engine"
)

// ValidateFileRequest is the request payload for ValidateFile.
type ValidateFileRequest struct {
	FilePath string `json:"filepath"`
}

// ValidateFileResponse mirrors the outcome of engine.Engine.ProcessFile.
type ValidateFileResponse struct {
	Outcome  string       `json:"outcome"`
	BatchID  string       `json:"batch_id"`
	Ruleset  string       `json:"ruleset"`
	Failures []FailureMsg `json:"failures"`
}

// FailureMsg is the wire shape of one alert.Failure.
type FailureMsg struct {
	Row       int    `json:"row"`
	RuleIndex int    `json:"rule_index"`
	Message   string `json:"message"`
}

// GetRulesetRequest is the request payload for GetRuleset.
type GetRulesetRequest struct {
	Name string `json:"name"`
}

// GetRulesetResponse carries the raw rule-source lines for a ruleset.
type GetRulesetResponse struct {
	Name  string   `json:"name"`
	Rules []string `json:"rules"`
}

// ValidationService is the gRPC service interface this package registers.
type ValidationService interface {
	ValidateFile(context.Context, *ValidateFileRequest) (*ValidateFileResponse, error)
	GetRuleset(context.Context, *GetRulesetRequest) (*GetRulesetResponse, error)
}

// server implements ValidationService over an engine and config store.
type server struct {
	eng    *engine.Engine
	config *config.Store
	logger *log.Logger
}

// New builds a ValidationService backed by eng and store.
func New(eng *engine.Engine, store *config.Store, logger *log.Logger) ValidationService {
	return &server{eng: eng, config: store, logger: logger}
}

func (s *server) ValidateFile(_ context.Context, req *ValidateFileRequest) (*ValidateFileResponse, error) {
	result, err := s.eng.ProcessFile(req.FilePath)
	if err != nil {
		return nil, err
	}
	resp := &ValidateFileResponse{
		Outcome: outcomeString(result.Outcome),
		BatchID: result.BatchID.String(),
		Ruleset: result.Ruleset,
	}
	for _, f := range result.Report.Failures {
		resp.Failures = append(resp.Failures, FailureMsg{Row: f.Row, RuleIndex: f.RuleIndex, Message: f.Message})
	}
	return resp, nil
}

func (s *server) GetRuleset(_ context.Context, req *GetRulesetRequest) (*GetRulesetResponse, error) {
	return &GetRulesetResponse{Name: req.Name, Rules: s.config.GetRuleset(req.Name)}, nil
}

func outcomeString(o engine.Outcome) string {
	switch o {
	case engine.OutcomePassed:
		return "passed"
	case engine.OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// jsonCodec lets the hand-registered service exchange JSON payloads
// instead of protobuf-encoded ones.
type jsonCodec struct{}

func (jsonCodec) Name() string                      { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)     { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Codec returns the JSON codec this service's RPCs are encoded with.
// Call encoding.RegisterCodec(rpcapi.Codec()) once at process startup,
// before the gRPC server starts listening.
func Codec() encoding.Codec { return jsonCodec{} }

func validateFileHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(ValidateFileRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ValidationService).ValidateFile(ctx, req)
}

func getRulesetHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetRulesetRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ValidationService).GetRuleset(ctx, req)
}

// Register installs ValidationService on s against svc using a manual
// ServiceDesc, with no generated protobuf stubs involved.
func Register(s *grpc.Server, svc ValidationService) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "tinyvalid.Validation",
		HandlerType: (*ValidationService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "ValidateFile", Handler: validateFileHandler},
			{MethodName: "GetRuleset", Handler: getRulesetHandler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "rpcapi.proto",
	}, svc)
}
