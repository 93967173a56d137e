package main

// identity command: read the Identity object and the ENIP identity list.

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tturner/cipnet/cip/objects"
	"github.com/tturner/cipnet/datatypes"
)

func newIdentityCmd() *cobra.Command {
	var listOnly bool
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Read device identity",
		Long: `Read the target's Identity object with Get_Attributes_All, or the
encapsulation-layer ListIdentity items with --list.`,
		Example: `  cipnet identity --ip 10.0.0.5
  cipnet identity --ip 10.0.0.5 --route 1/0
  cipnet identity --ip 10.0.0.5 --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := openClient()
			if err != nil {
				return err
			}
			defer ctx.close()
			if listOnly {
				return runListIdentity(ctx)
			}
			return runIdentity(ctx)
		},
	}
	cmd.Flags().BoolVar(&listOnly, "list", false, "use the ListIdentity encapsulation command instead of CIP")
	return cmd
}

func runIdentity(ctx *clientContext) error {
	resp, err := ctx.conn.GetAttributesAll(objects.Identity, 1)
	if err != nil {
		return err
	}
	if !resp.OK() {
		fmt.Println(renderErr("identity read failed: " + resp.StatusMessage))
		return nil
	}
	fmt.Println(renderKV("Identity", identityPairs(resp.DataStruct())))
	return nil
}

func identityPairs(id *datatypes.Struct) [][2]string {
	status := uint16(id.Uint("status"))
	flags := objects.ParseIdentityStatus(status)
	return [][2]string{
		{"Vendor ID", fmt.Sprintf("%d", id.Uint("vendor_id"))},
		{"Device Type", fmt.Sprintf("%d", id.Uint("device_type"))},
		{"Product Code", fmt.Sprintf("%d", id.Uint("product_code"))},
		{"Revision", objects.FormatRevision(id.StructField("revision"))},
		{"Status", fmt.Sprintf("0x%04X (owned=%t configured=%t)", status, flags.Owned, flags.Configured)},
		{"Serial Number", fmt.Sprintf("0x%08X", id.Uint("serial_number"))},
		{"Product Name", id.Str("product_name")},
	}
}

func runListIdentity(ctx *clientContext) error {
	items, err := ctx.conn.Transport().ListIdentity()
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Type() != nil && item.Type().TypeName() != "CIPIdentity" {
			continue
		}
		sock := item.StructField("socket_address")
		addr := ""
		if sock != nil {
			ip := uint32(sock.Uint("sin_addr"))
			addr = fmt.Sprintf("%d.%d.%d.%d:%d", byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip), sock.Uint("sin_port"))
		}
		rev := item.ArrayField("revision")
		pairs := [][2]string{
			{"Address", addr},
			{"Vendor ID", fmt.Sprintf("%d", item.Uint("vendor_id"))},
			{"Device Type", fmt.Sprintf("%d", item.Uint("device_type"))},
			{"Product Code", fmt.Sprintf("%d", item.Uint("product_code"))},
			{"Revision", fmt.Sprintf("%d.%03d", rev.At(0), rev.At(1))},
			{"Serial Number", fmt.Sprintf("0x%08X", item.Uint("serial_number"))},
			{"Product Name", item.Str("product_name")},
			{"State", fmt.Sprintf("%d", item.Uint("state"))},
		}
		fmt.Println(renderKV("ListIdentity", pairs))
	}
	return nil
}
