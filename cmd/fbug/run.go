package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/fbug"
	httpAdapter "github.com/aretw0/fbug/internal/adapters/http"
	redisAdapter "github.com/aretw0/fbug/internal/adapters/redis"
	"github.com/aretw0/fbug/internal/metrics"
	"github.com/aretw0/fbug/internal/presentation/tui"
	"github.com/aretw0/fbug/pkg/connections"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Supervise the device until interrupted",
		Long: `Opens every serial connection of the device, follows its state from the console
output and applies state properties to the connections. Device nodes that
disappear are reopened when they come back.`,
		RunE: runSupervisor,
	}

	cmd.Flags().String("listen", "", "Serve the status API and metrics on this address (e.g. :8080)")
	cmd.Flags().String("redis-addr", "", "Publish transitions to this Redis server")
	cmd.Flags().String("redis-password", "", "Redis password")
	cmd.Flags().Int("redis-db", 0, "Redis database")
	cmd.Flags().String("redis-channel", redisAdapter.DefaultChannel, "Redis pub/sub channel for transitions")
	cmd.Flags().Int("redis-history", 100, "Transitions kept in the Redis history (0 disables it)")
	cmd.Flags().Bool("no-hotplug", false, "Do not watch device nodes for reconnects")
	cmd.Flags().Duration("settle", 100*time.Millisecond, "Delay before reopening a reappeared device node")
	cmd.Flags().Bool("at-rest", false, "Assume the device starts in its resting state")
	cmd.Flags().Bool("no-banner", false, "Do not print the banner")
	return cmd
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	device, err := loadDevice(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd)
	reg := metrics.New()

	if noBanner, _ := cmd.Flags().GetBool("no-banner"); !noBanner {
		tui.PrintBanner(cmd.ErrOrStderr(), device.Name, device.Codename)
	}

	settle, _ := cmd.Flags().GetDuration("settle")
	connOpts := []connections.Option{connections.WithSettleDelay(settle)}
	if noHotplug, _ := cmd.Flags().GetBool("no-hotplug"); noHotplug {
		connOpts = append(connOpts, connections.WithoutHotplug())
	}

	opts := []fbug.Option{
		fbug.WithLogger(logger),
		fbug.WithMetrics(reg),
		fbug.WithConnectionOptions(connOpts...),
	}
	if atRest, _ := cmd.Flags().GetBool("at-rest"); atRest {
		opts = append(opts, fbug.StartAtRest())
	}

	mon, err := fbug.New(device, opts...)
	if err != nil {
		return err
	}
	defer mon.Close()

	if err := mon.Bootstrap(); err != nil {
		logger.Warn("failed to release controls", "error", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mon.Run(ctx) })

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		srv := &http.Server{
			Addr:    listen,
			Handler: httpAdapter.NewHandler(mon, httpAdapter.WithMetrics(reg), httpAdapter.WithLogger(logger)),
		}
		g.Go(func() error {
			logger.Info("status server listening", "addr", listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if addr, _ := cmd.Flags().GetString("redis-addr"); addr != "" {
		password, _ := cmd.Flags().GetString("redis-password")
		db, _ := cmd.Flags().GetInt("redis-db")
		channel, _ := cmd.Flags().GetString("redis-channel")
		history, _ := cmd.Flags().GetInt("redis-history")

		prefix := "fbug:"
		if device.Codename != "" {
			prefix += device.Codename + ":"
		}
		pub := redisAdapter.New(addr, password, db,
			redisAdapter.WithChannel(channel),
			redisAdapter.WithPrefix(prefix),
			redisAdapter.WithHistory(history),
			redisAdapter.WithLogger(logger),
		)
		events, unsubscribe := mon.Subscribe(0)
		g.Go(func() error {
			defer pub.Close()
			defer unsubscribe()
			return pub.Run(ctx, events)
		})
	}

	logger.Info("supervising device", "name", device.Name, "connections", len(mon.Supervisor().Handles()))
	err = g.Wait()
	logger.Info("stopped", "events", mon.Stats().Events, "transitions", mon.Stats().Transitions)
	return err
}
