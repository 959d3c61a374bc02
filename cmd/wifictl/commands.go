package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/bbernstein/lacylights-wifi/internal/api"
	"github.com/bbernstein/lacylights-wifi/internal/services/wifi"
)

var errOperationFailed = errors.New("operation failed")

// failed reports whether out is an unsuccessful operation result.
func failed(out any) bool {
	switch r := out.(type) {
	case *wifi.ModeResult:
		return !r.Success
	case *wifi.ConnectionResult:
		return !r.Success
	case *api.ResolveResponse:
		return !r.Success
	}
	return false
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show radio mode, access point and connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
				return client.Status(ctx)
			})
		},
	}
}

func (c *cli) scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List visible networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
				return client.Scan(ctx)
			})
		},
	}
}

func (c *cli) eventsCmd() *cobra.Command {
	var operation string
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent radio operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
				return client.Events(ctx, operation, limit)
			})
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "only show this operation")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}

func (c *cli) apCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ap",
		Short: "Manage the hosted access point",
	}

	var key, ip string
	var save bool
	open := &cobra.Command{
		Use:   "open SSID",
		Short: "Host a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
				return client.OpenAccessPoint(ctx, api.OpenAccessPointRequest{SSID: args[0], Key: key, IP: ip, AutoSave: save})
			})
		},
	}
	open.Flags().StringVar(&key, "key", "", "WPA2 passphrase; empty hosts an open network")
	open.Flags().StringVar(&ip, "ip", "192.168.0.254", "access point address")
	open.Flags().BoolVar(&save, "save", true, "persist the profile")

	cmd.AddCommand(
		open,
		&cobra.Command{
			Use:   "restore",
			Short: "Host the persisted access point",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
					return client.OpenAccessPointFromConfig(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "close",
			Short: "Stop hosting",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
					return client.CloseAccessPoint(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "forget",
			Short: "Delete the persisted access point",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
					return client.RemoveAccessPointConfig(ctx)
				})
			},
		},
	)
	return cmd
}

func (c *cli) stationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "station",
		Aliases: []string{"sta"},
		Short:   "Join and forget external networks",
	}

	var key, bssid string
	var timeoutSec int
	var save bool
	connect := &cobra.Command{
		Use:   "connect SSID",
		Short: "Join a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
				return client.Connect(ctx, api.ConnectRequest{
					SSID: args[0], Key: key, BSSID: bssid, TimeoutSec: timeoutSec, AutoSave: save,
				})
			})
		},
	}
	connect.Flags().StringVar(&key, "key", "", "network passphrase")
	connect.Flags().StringVar(&bssid, "bssid", "", "only join this access point")
	connect.Flags().IntVar(&timeoutSec, "wait", 0, "seconds to wait for an address (server default when 0)")
	connect.Flags().BoolVar(&save, "save", true, "persist the profile")

	var mustMatch bool
	var restoreTimeout int
	restore := &cobra.Command{
		Use:   "restore",
		Short: "Join the first persisted network in range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
				return client.ConnectFromConfig(ctx, api.ConnectFromConfigRequest{BSSIDMustMatch: mustMatch, TimeoutSec: restoreTimeout})
			})
		},
	}
	restore.Flags().BoolVar(&mustMatch, "bssid-must-match", false, "require the saved access point itself")
	restore.Flags().IntVar(&restoreTimeout, "wait", 0, "seconds to wait per attempt (server default when 0)")

	var forgetBSSID string
	forget := &cobra.Command{
		Use:   "forget SSID",
		Short: "Delete persisted profiles for a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
				return client.RemoveStationConfig(ctx, args[0], forgetBSSID)
			})
		},
	}
	forget.Flags().StringVar(&forgetBSSID, "bssid", "", "only forget this access point")

	cmd.AddCommand(
		connect,
		restore,
		forget,
		&cobra.Command{
			Use:   "disconnect",
			Short: "Leave the current network",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
					return client.Disconnect(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "saved",
			Short: "List persisted networks",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
					return client.SavedNetworks(ctx)
				})
			},
		},
	)
	return cmd
}

func (c *cli) diagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Connectivity diagnostics",
	}

	var waitSec int
	internet := &cobra.Command{
		Use:   "internet",
		Short: "Check internet access, optionally waiting for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
				if waitSec > 0 {
					return client.WaitForInternet(ctx, waitSec)
				}
				return client.Internet(ctx)
			})
		},
	}
	internet.Flags().IntVar(&waitSec, "wait", 0, "seconds to wait for access")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "resolve HOST",
			Short: "Resolve a hostname over the station link",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
					return client.Resolve(ctx, args[0])
				})
			},
		},
		internet,
		&cobra.Command{
			Use:   "public-address",
			Short: "Show the address the internet sees",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, client *api.Client) (any, error) {
					addr, err := client.PublicAddress(ctx)
					if err != nil {
						return nil, err
					}
					return api.PublicAddressResponse{Address: addr}, nil
				})
			},
		},
	)
	return cmd
}
