package main

import (
	"github.com/sensiblebit/certdata"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// usageValue adapts certdata.Usage to pflag.Value.
type usageValue struct {
	u *certdata.Usage
}

var _ pflag.Value = usageValue{}

func (v usageValue) String() string {
	if v.u == nil {
		return ""
	}
	return v.u.String()
}

func (v usageValue) Set(s string) error {
	u, err := certdata.ParseUsage(s)
	if err != nil {
		return err
	}
	*v.u = u
	return nil
}

func (usageValue) Type() string { return "usage" }

// addUsageFlag registers --usage/-u on cmd, storing into u.
func addUsageFlag(cmd *cobra.Command, u *certdata.Usage) {
	cmd.Flags().VarP(usageValue{u}, "usage", "u", "Trust usage: tls-server, email or code-signing (default: from config, else tls-server)")
	registerCompletion(cmd, completionInput{"usage", usageCompletion})
}

// effectiveUsage returns the --usage flag when set, else the configured usage.
func effectiveUsage(cmd *cobra.Command, u certdata.Usage) certdata.Usage {
	if cmd.Flags().Changed("usage") {
		return u
	}
	return cfg.Usage
}
