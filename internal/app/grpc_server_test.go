package app

import (
	"context"
	"net"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"

	posv1 "github.com/vladislavdragonenkov/cafepos/api/pos/v1"
	grpcsvc "github.com/vladislavdragonenkov/cafepos/internal/service/grpc"
)

func TestNewGRPCServer_ReflectionDescribesEveryListedService(t *testing.T) {
	logger := log.WithField("test", "reflection")
	pos := grpcsvc.NewPOSService(newServices(DefaultConfig(), mustMemoryDeps(t), nil, logger), logger)
	srv, _ := newGRPCServer(pos, nil, logger)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	require.Contains(t, srv.GetServiceInfo(), posv1.ServiceName, "the till service is still served")

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
	require.NoError(t, err)

	ask := func(req *reflectionpb.ServerReflectionRequest) *reflectionpb.ServerReflectionResponse {
		require.NoError(t, stream.Send(req))
		resp, err := stream.Recv()
		require.NoError(t, err)
		return resp
	}

	listed := ask(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{ListServices: "*"},
	}).GetListServicesResponse().GetService()

	var names []string
	for _, service := range listed {
		names = append(names, service.GetName())
	}
	assert.Contains(t, names, healthpb.Health_ServiceDesc.ServiceName)
	assert.NotContains(t, names, posv1.ServiceName)

	for _, name := range names {
		resp := ask(&reflectionpb.ServerReflectionRequest{
			MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: name},
		})
		assert.Nil(t, resp.GetErrorResponse(), "service %s must be describable", name)
		assert.NotEmpty(t, resp.GetFileDescriptorResponse().GetFileDescriptorProto(), name)
	}
}
