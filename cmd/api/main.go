package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/database"
	"github.com/bibliotech/bibliotech/pkg/migrations"
	"github.com/bibliotech/bibliotech/pkg/server"
	"github.com/bibliotech/bibliotech/pkg/version"
	"github.com/bibliotech/bibliotech/pkg/worker"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	log := logger.New()
	ctx := log.WithContext(context.Background())

	log.Info("starting bibliotech", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if err := initUploadsDir(cfg.UploadsDir); err != nil {
		log.Err(err).Fatal("uploads directory error")
	}
	log.Info("uploads directory initialized", logger.Data{"path": cfg.UploadsDir})

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	deps, closeDeps, err := server.NewDependencies(ctx, cfg, db)
	if err != nil {
		log.Err(err).Fatal("dependencies error")
	}

	wrkr := worker.New(cfg, deps.JobService, deps.LoanService)

	srv, err := server.New(cfg, db, deps)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	wrkr.Start()
	log.Info("worker started", logger.Data{"overdue_sweep_interval": cfg.OverdueSweepInterval.String()})

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	closeDeps()

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// initUploadsDir creates a directory per import type and verifies write
// permissions.
func initUploadsDir(dir string) error {
	for _, kind := range []string{"authors", "books", "members"} {
		subdir := filepath.Join(dir, "imports", kind)
		if err := os.MkdirAll(subdir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create uploads directory: %s", subdir)
		}
	}

	// Verify write permissions by creating and removing a temp file
	testFile := filepath.Join(dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return errors.Wrapf(err, "uploads directory is not writable: %s", dir)
	}
	f.Close()

	if err := os.Remove(testFile); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", testFile)
	}

	return nil
}
