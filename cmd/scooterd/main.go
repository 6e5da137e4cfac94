// Command scooterd is an HTTP gateway in front of one authenticated
// session.Session: it runs the registration/login handshake once at
// startup and then exposes the scooter's telemetry and control surface as
// JSON over REST, for callers who would rather speak HTTP than link this
// module directly.
//
// Grounded on the teacher's runAPIServer in cmd/driver/hasher-host/main.go:
// gin.New()+gin.Recovery(), a single "/api/v1" route group, and graceful
// shutdown via os/signal + http.Server.Shutdown.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"scooterble/internal/config"
	"scooterble/internal/demoscooter"
	"scooterble/internal/handshake"
	"scooterble/session"
	"scooterble/transport"
)

var (
	addr     = flag.String("addr", ":8080", "HTTP listen address")
	demo     = flag.Bool("demo", false, "run against an in-memory simulated scooter instead of a real transport")
	tokenHex = flag.String("token", "", "hex-encoded registration token from a prior pairing (skips Register)")
	verify   = flag.Bool("verify", false, "with -token, re-register and confirm the supplied token still matches before trusting it")
)

func main() {
	flag.Parse()
	logger := log.New(os.Stderr, "scooterd: ", log.LstdFlags)

	if !*demo {
		logger.Fatal("no platform transport.Transport linked into this binary; fork main() to wire your BLE " +
			"library's implementation of transport.Transport in place of demoscooter.New, or pass -demo to " +
			"exercise the gateway against a simulated scooter")
	}

	cfg := config.Load()
	tp, sim := demoscooter.New(cfg, logger)
	defer sim.Stop()

	sess, err := connect(context.Background(), tp, cfg, logger)
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}

	run(sess, logger)
}

// connect runs registration (unless a token was supplied) followed by
// login, returning a ready-to-use Session.
func connect(ctx context.Context, tp transport.Transport, cfg config.Config, logger *log.Logger) (*session.Session, error) {
	token, err := resolveToken(ctx, tp, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}

	auth := handshake.NewAuthenticator(tp, cfg, logger)
	sess, err := auth.Login(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return sess, nil
}

func resolveToken(ctx context.Context, tp transport.Transport, cfg config.Config, logger *log.Logger) ([12]byte, error) {
	if *tokenHex != "" {
		token, err := decodeToken(*tokenHex)
		if err != nil {
			return token, err
		}
		if *verify {
			return token, verifyPersistedToken(ctx, tp, cfg, logger, token)
		}
		return token, nil
	}
	reg := handshake.NewRegistrar(tp, cfg, logger)
	token, err := reg.Register(ctx)
	if err != nil {
		return token, err
	}
	logger.Printf("registered, token=%x (pass -token=%x next time to skip registration)", token, token)
	return token, nil
}

// verifyPersistedToken re-registers and constant-time-compares the fresh
// token against the caller-supplied one, so a stale persisted token file
// is rejected before Login is attempted with it.
func verifyPersistedToken(ctx context.Context, tp transport.Transport, cfg config.Config, logger *log.Logger, persisted [12]byte) error {
	reg := handshake.NewRegistrar(tp, cfg, logger)
	fresh, err := reg.Register(ctx)
	if err != nil {
		return fmt.Errorf("re-register to verify persisted token: %w", err)
	}
	if !session.VerifyToken(persisted[:], fresh[:]) {
		return fmt.Errorf("persisted -token does not match a fresh registration")
	}
	return nil
}

func decodeToken(s string) ([12]byte, error) {
	var token [12]byte
	buf, err := hex.DecodeString(s)
	if err != nil || len(buf) != len(token) {
		return token, fmt.Errorf("invalid -token value %q: want %d hex bytes", s, len(token))
	}
	copy(token[:], buf)
	return token, nil
}

// run wires the gateway's routes onto sess and blocks until SIGINT/SIGTERM,
// then drains in-flight requests before returning.
func run(sess *session.Session, logger *log.Logger) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	gw := &gateway{session: sess, logger: logger}
	api := router.Group("/api/v1")
	{
		api.GET("/health", gw.handleHealth)
		api.GET("/battery", gw.handleBattery)
		api.GET("/motor", gw.handleMotor)
		api.POST("/cruise", gw.handleCruiseWrite)
		api.POST("/kers", gw.handleKersWrite)
		api.POST("/taillight", gw.handleTailLightWrite)
	}

	srv := &http.Server{
		Addr:    *addr,
		Handler: router,
	}

	go func() {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("server shutdown error: %v", err)
	}
}
