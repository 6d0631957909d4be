package server

import (
	"log/slog"
	"net"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to health checks along with the empty overall name.
const ServiceName = "group-chat"

// AdminServer exposes grpc.health.v1 for orchestrators and load balancers.
// It reports NOT_SERVING until the change feed is live.
type AdminServer struct {
	log    *slog.Logger
	server *grpc.Server
	health *health.Server
}

func NewAdminServer(log *slog.Logger) *AdminServer {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(log)))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	a := &AdminServer{log: log, server: s, health: h}
	a.SetServing(false)
	return a
}

func (a *AdminServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	a.health.SetServingStatus("", status)
	a.health.SetServingStatus(ServiceName, status)
	a.log.Debug("Health status changed", "status", status.String())
}

func (a *AdminServer) Serve(lis net.Listener) error {
	return a.server.Serve(lis)
}

// GracefulStop reports NOT_SERVING to watchers, then drains in-flight calls.
func (a *AdminServer) GracefulStop() {
	a.health.Shutdown()
	a.server.GracefulStop()
}
