// Package judgepb holds the wire contract of the external code-execution
// judge. The judge itself is a separate deployment; only this contract is
// shared with it.
package judgepb

import (
	"context"

	"google.golang.org/grpc"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "judge.v1.JudgeService"

	executeFullMethod = "/judge.v1.JudgeService/Execute"
)

// Per-testcase verdict statuses returned by the judge.
const (
	StatusAccepted            = "AC"
	StatusWrongAnswer         = "WA"
	StatusCompilationError    = "CE"
	StatusRuntimeError        = "RE"
	StatusTimeLimitExceeded   = "TLE"
	StatusMemoryLimitExceeded = "MLE"
)

// ExecuteRequest carries one compile-and-run job: the program is executed
// once per stdin entry.
type ExecuteRequest struct {
	SourceCode string   `json:"sourceCode"`
	Language   string   `json:"language"`
	Stdin      []string `json:"stdin"`
}

// TestResult is the verdict for a single test case.
type TestResult struct {
	Status   string `json:"status"`
	Stdout   string `json:"stdout"`
	TimeMs   int64  `json:"timeMs"`
	MemoryKb int64  `json:"memoryKb"`
}

// ExecuteResponse carries the full verdict set, one entry per stdin.
// The judge never returns a partial set.
type ExecuteResponse struct {
	Results []*TestResult `json:"results"`
}

// JudgeClient is the client API for the judge service.
type JudgeClient interface {
	Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteResponse, error)
}

type judgeClient struct {
	cc grpc.ClientConnInterface
}

// NewJudgeClient creates a judge client over an established connection.
func NewJudgeClient(cc grpc.ClientConnInterface) JudgeClient {
	return &judgeClient{cc: cc}
}

func (c *judgeClient) Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteResponse, error) {
	out := new(ExecuteResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, executeFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// JudgeServer is the server API for the judge service.
type JudgeServer interface {
	Execute(ctx context.Context, in *ExecuteRequest) (*ExecuteResponse, error)
}

// RegisterJudgeServer registers a judge implementation on a gRPC server.
func RegisterJudgeServer(s grpc.ServiceRegistrar, srv JudgeServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func executeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExecuteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JudgeServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: executeFullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JudgeServer).Execute(ctx, req.(*ExecuteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the hand-maintained gRPC service descriptor for the
// judge contract.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JudgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler:    executeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "judge/v1/judge.json",
}
