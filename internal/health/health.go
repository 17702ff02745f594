package health

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"
)

// LedgerService is the service name reported alongside the overall ("") status.
const LedgerService = "bistro.ledger"

// Checker reports whether the ledger can serve requests.
type Checker func(ctx context.Context) error

// DBChecker pings the database behind db.
func DBChecker(db *gorm.DB) Checker {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Server is a gRPC server exposing grpc.health.v1 for load balancers and
// orchestrators.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

func NewServer() *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve blocks serving on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	log.Printf("📡 gRPC health server listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Watch runs check every interval and flips the reported status. It returns
// when ctx is done.
func (s *Server) Watch(ctx context.Context, check Checker, interval time.Duration) {
	s.probe(ctx, check)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.probe(ctx, check)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) probe(ctx context.Context, check Checker) {
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := check(pctx); err != nil {
		log.Printf("⚠️ Health check failed: %v", err)
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(LedgerService, status)
}

// Stop marks everything NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	log.Println("🛑 gRPC health server stopped")
}
