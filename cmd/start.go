package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mod-registry/core/identity"
	"mod-registry/core/jobs"
	"mod-registry/core/loader"
	"mod-registry/core/logger"
	"mod-registry/core/middleware/auth"
	"mod-registry/core/middleware/rayid"
	"mod-registry/feature/blobs"
	"mod-registry/feature/mods"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the mod registry server",
	Long:  `Starts the HTTP server, the maintenance scheduler, and all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		rt, err := bootstrap(ctx)
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer rt.close()

		logg := rt.logger
		zap.ReplaceGlobals(logg)
		cfg := rt.cfg
		dev := cfg.Server.IsDevelopment()

		// Ensure the bucket exists before anything writes to it.
		exists, err := rt.store.BucketExists(ctx, cfg.Storage.Bucket)
		if err != nil {
			logg.Fatal("Failed to check bucket", zap.Error(err))
		}
		if !exists {
			if err := rt.store.MakeBucket(ctx, cfg.Storage.Bucket, minio.MakeBucketOptions{Region: cfg.Storage.Region}); err != nil {
				logg.Fatal("Failed to create bucket", zap.Error(err))
			}
			logg.Info("Created bucket", zap.String("bucket", cfg.Storage.Bucket))
		}

		resolver := identity.NewStatic(cfg.Identity)

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
			BodyLimit:             int(cfg.Mods.MaxUploadBytes),
		})

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
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

		// Features
		modsFeature := mods.NewFeature(rt.entities, rt.indexes, rt.store, cfg.Storage.Bucket,
			resolver, logg, dev, cfg.Mods)
		blobsFeature := blobs.NewFeature(rt.entities, rt.indexes, rt.store, cfg.Storage.Bucket,
			logg, dev, cfg.Blobs)

		// 3. Discovery routes stay public; they register before auth.
		modsFeature.RegisterPublicRoutes(app)

		// 4. Auth (everything below resolves a principal)
		app.Use(auth.New(auth.Config{Resolver: resolver}))

		// 5. Load Features
		mgr := loader.NewManager()
		mgr.Register(modsFeature)
		mgr.Register(blobsFeature)
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Maintenance scheduler
		scheduler := jobs.NewScheduler(logg, cfg.Jobs)
		blobSvc := blobsFeature.Service()
		if err := scheduler.Register("blob-sweep", cfg.Jobs.SweepSchedule, func(ctx context.Context) error {
			_, err := blobSvc.SweepAndDelete(ctx, cfg.Blobs.GraceDays)
			return err
		}); err != nil {
			logg.Fatal("Failed to register sweep job", zap.Error(err))
		}
		if err := scheduler.Register("blob-scan", cfg.Jobs.ScanSchedule, func(ctx context.Context) error {
			report, err := blobSvc.Scan(ctx)
			if err != nil {
				return err
			}
			logg.Info("Scan report",
				zap.Int("orphans", report.Summary.Orphans),
				zap.Int("duplicate_groups", report.Summary.DuplicateGroups))
			return nil
		}); err != nil {
			logg.Fatal("Failed to register scan job", zap.Error(err))
		}
		scheduler.Start()

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
