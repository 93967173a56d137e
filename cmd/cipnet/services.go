package main

// services command: encapsulation-layer service and interface discovery.

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newServicesCmd() *cobra.Command {
	var interfaces bool
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List the device's communication services",
		Long: `Send ListServices (or ListInterfaces with --interfaces) and print the
returned items.`,
		Example: `  cipnet services --ip 10.0.0.5
  cipnet services --ip 10.0.0.5 --interfaces`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := openClient()
			if err != nil {
				return err
			}
			defer ctx.close()

			if interfaces {
				items, err := ctx.conn.Transport().ListInterfaces()
				if err != nil {
					return err
				}
				fmt.Printf("%d interface item(s)\n", len(items))
				for _, item := range items {
					fmt.Println(item)
				}
				return nil
			}

			items, err := ctx.conn.Transport().ListServices()
			if err != nil {
				return err
			}
			for _, item := range items {
				name := strings.TrimRight(string(item.BytesField("service_name")), "\x00")
				pairs := [][2]string{
					{"Service", name},
					{"Protocol Version", fmt.Sprintf("%d", item.Uint("protocol_version"))},
					{"Capability Flags", fmt.Sprintf("0x%04X", item.Uint("capability_flags"))},
				}
				fmt.Println(renderKV("ListServices", pairs))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&interfaces, "interfaces", false, "send ListInterfaces instead")
	return cmd
}
