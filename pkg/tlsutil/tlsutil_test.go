package tlsutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestWriteDevCertificates_MutualTLSRoundTrip(t *testing.T) {
	bundle, err := WriteDevCertificates([]string{"localhost", "127.0.0.1"}, "op-17", t.TempDir())
	require.NoError(t, err)

	serverCreds, err := ServerCredentials(bundle.Server)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer(grpc.Creds(serverCreds))
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientCreds, err := ClientCredentials(bundle.CA, "localhost", bundle.Client)
	require.NoError(t, err)
	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(clientCreds))
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	anonCreds, err := ClientCredentials(bundle.CA, "localhost", Files{})
	require.NoError(t, err)
	anon, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(anonCreds))
	require.NoError(t, err)
	defer anon.Close()

	_, err = healthpb.NewHealthClient(anon).Check(ctx, &healthpb.HealthCheckRequest{})
	assert.Error(t, err, "server requires a client certificate")
}

func TestServerCredentials_MissingFiles(t *testing.T) {
	_, err := ServerCredentials(Files{Cert: "/nonexistent/cert.pem", Key: "/nonexistent/key.pem"})
	assert.Error(t, err)

	_, err = ClientCredentials("/nonexistent/ca.pem", "", Files{})
	assert.Error(t, err)
}
