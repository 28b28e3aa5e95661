package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schema-manager/core/loader"
	"schema-manager/core/logger"
	"schema-manager/core/middleware/auth"
	"schema-manager/core/middleware/rayid"
	"schema-manager/feature/integrity"
	schemafeature "schema-manager/feature/schema"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the schema manager server",
	Long:  `Starts the HTTP server exposing plan, apply, ensure, dump, run history and snapshot endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load configuration and wire the service
		e, err := setup(cmd.Context(), nil)
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		logg := e.logger
		defer logg.Sync()

		// 2. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           time.Duration(e.cfg.Server.ReadTimeoutSeconds) * time.Second,
		})

		// 3. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(schemafeature.NewFeature(e.service))
		mgr.Register(integrity.NewFeature(e.integrity()))

		// 4. Middleware
		// RayID must be first to trace everything.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		if e.cfg.Server.AuthEnabled() {
			app.Use(auth.New(auth.Config{ApiKey: e.cfg.Server.ApiKey, Skip: []string{"/health"}}))
		} else {
			logg.Warn("Server API key is empty, endpoints are unauthenticated")
		}

		app.Get("/health", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ok"})
		})

		// 5. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Start Server
		go func() {
			logg.Info("Starting server",
				zap.String("address", e.cfg.Server.Address()),
				zap.String("remote", e.cfg.PocketBase.URL),
			)
			if err := app.Listen(e.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
