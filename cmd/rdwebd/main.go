// Command rdwebd runs the server as a standalone process, loading its
// configuration from a YAML file (config.Load) and serving a web root plus
// one demo REST route (/api/whoami), grounded on the retrieved pack's
// cobra-based CLI entry points (e.g. docker-compose/ecs's cmd/main.go
// NewRootCmd pattern) rather than a bare flag.Parse main().
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robdobsn/rdweb"
	"github.com/robdobsn/rdweb/authtoken"
	"github.com/robdobsn/rdweb/config"
	"github.com/robdobsn/rdweb/manager"
	"github.com/robdobsn/rdweb/reqheader"
	"github.com/robdobsn/rdweb/responder"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the rdwebd command tree.
func NewRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "rdwebd",
		Short: "Embedded-style HTTP/WebSocket/SSE web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, verbose)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "rdwebd.yaml", "path to the YAML config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("rdwebd (dev build)")
			return nil
		},
	}
}

func run(configPath string, verbose bool) error {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "rdwebd")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	srv, err := rdweb.New(cfg, log)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}
	srv.AddRESTHandler(whoAmIHandler(cfg.RestAPIChannelID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("port", cfg.ServerTCPPort).Info("starting rdwebd")
	return srv.Run(ctx)
}

// whoAmIHandler registers GET /api/whoami, which echoes the "sub" claim of
// an unverified Bearer JWT (this server trusts a gateway upstream to have
// validated the signature; see authtoken.Claims) back as JSON, or a
// "anonymous" subject when the Authorization header carries no bearer
// token.
func whoAmIHandler(channelID int) *manager.RESTHandler {
	return &manager.RESTHandler{
		Prefix:    "/api/whoami",
		ChannelID: channelID,
		Match: func(path string, method reqheader.Method) (responder.RESTEndpoint, bool) {
			if path != "/api/whoami" || method != reqheader.GET {
				return responder.RESTEndpoint{}, false
			}
			return responder.RESTEndpoint{Fn: whoAmI}, true
		},
	}
}

func whoAmI(_ string, source responder.SourceInfo) (string, error) {
	subject := "anonymous"
	if claims, err := authtoken.Claims(source.Authorization); err == nil {
		if sub := authtoken.Subject(claims); sub != "" {
			subject = sub
		}
	}
	body, err := json.Marshal(map[string]string{"sub": subject})
	if err != nil {
		return "", err
	}
	return string(body), nil
}
