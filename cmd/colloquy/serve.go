package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbory/colloquy"
	"github.com/arbory/colloquy/internal/logging"
	"github.com/arbory/colloquy/pkg/adapters/httpapi"
	"github.com/arbory/colloquy/pkg/adapters/memory"
	"github.com/arbory/colloquy/pkg/adapters/redis"
	"github.com/arbory/colloquy/pkg/flows/intake"
	"github.com/arbory/colloquy/pkg/ports"
	"github.com/arbory/colloquy/pkg/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP session server",
	Long:  `Exposes the workflow over HTTP: session lifecycle, one turn per message, health and metrics endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		port, _ := cmd.Flags().GetString("port")
		redisURL, _ := cmd.Flags().GetString("redis")

		logger := logging.New(slog.LevelInfo)

		doc := intake.Definition()
		if file != "" {
			var err error
			doc, err = os.ReadFile(file)
			if err != nil {
				fmt.Printf("Error reading definition: %v\n", err)
				os.Exit(1)
			}
		}

		intake.Register(registry.Default())
		rt, err := colloquy.New(doc, colloquy.WithLogger(logger))
		if err != nil {
			fmt.Printf("Error compiling definition: %v\n", err)
			os.Exit(1)
		}

		var store ports.StateStore = memory.New()
		if redisURL != "" {
			store = redis.New(redisURL, "", 0)
		}

		server := httpapi.New(rt.Graph, rt.Engine(), store, httpapi.WithLogger(logger))
		srv := &http.Server{
			Addr:    ":" + port,
			Handler: server.Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting Colloquy Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Colloquy Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for session persistence (host:port)")
}
