// Command wifictl drives the WiFi manager over its HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bbernstein/lacylights-wifi/internal/api"
)

// Version is set via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Settings come from flags, then
// WIFICTL_* environment variables, then an optional config file.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WIFICTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("server", "http://localhost:4100")
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("json", false)

	root := &cobra.Command{
		Use:           "wifictl",
		Short:         "Control the LacyLights WiFi manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path := v.GetString("config"); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", "", "WiFi manager base URL (default http://localhost:4100)")
	flags.Duration("timeout", 0, "request timeout (default 1m)")
	flags.Bool("json", false, "print JSON instead of YAML")
	flags.String("config", "", "config file with server, timeout and json keys")
	for _, name := range []string{"server", "timeout", "json", "config"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	cli := &cli{v: v}
	root.AddCommand(
		cli.statusCmd(),
		cli.scanCmd(),
		cli.eventsCmd(),
		cli.apCmd(),
		cli.stationCmd(),
		cli.diagCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
			},
		},
	)
	return root
}

// cli carries settings shared by the subcommands.
type cli struct {
	v *viper.Viper
}

func (c *cli) client() *api.Client {
	return api.NewClient(c.v.GetString("server"))
}

func (c *cli) context() (context.Context, context.CancelFunc) {
	timeout := c.v.GetDuration("timeout")
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

// print writes v as YAML, or JSON with --json.
func (c *cli) print(w io.Writer, v any) error {
	if c.v.GetBool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	// Round trip through JSON so the output keeps the API field names.
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

// run executes fn with a request context and prints its result.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, client *api.Client) (any, error)) error {
	ctx, cancel := c.context()
	defer cancel()
	out, err := fn(ctx, c.client())
	if err != nil {
		return err
	}
	if err := c.print(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if failed(out) {
		return errOperationFailed
	}
	return nil
}
