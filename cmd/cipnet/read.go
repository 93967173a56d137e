package main

// read command: Get_Attribute_Single / Get_Attributes_All against arbitrary
// class/instance/attribute addresses.

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tturner/cipnet/cip"
)

func newReadCmd() *cobra.Command {
	var (
		class     uint16
		instance  uint32
		attribute int
	)
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read an attribute from any object",
		Long: `Read one attribute with Get_Attribute_Single, or all attributes with
Get_Attributes_All when --attribute is omitted. The raw bytes are printed;
use well-known objects via the identity command for decoded views.`,
		Example: `  cipnet read --ip 10.0.0.5 --class 0x01 --instance 1 --attribute 6
  cipnet read --ip 10.0.0.5 --class 0xF4 --instance 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := openClient()
			if err != nil {
				return err
			}
			defer ctx.close()

			service := cip.ServiceGetAttributesAll
			if attribute >= 0 {
				service = cip.ServiceGetAttributeSingle
			}
			msg, err := cip.NewLogicalRequest(service, class, instance, attribute, nil)
			if err != nil {
				return err
			}
			req := &cip.Request{Message: msg, Parser: &cip.RouterResponseParser{}}
			resp, err := ctx.conn.Send(req)
			if err != nil {
				return err
			}
			if !resp.OK() {
				fmt.Println(renderErr("read failed: " + resp.StatusMessage))
				return nil
			}
			fmt.Println(renderOK("read ok"))
			fmt.Println(hexBytes(resp.Message.BytesField("data")))
			return nil
		},
	}
	cmd.Flags().Uint16Var(&class, "class", 0, "object class code")
	cmd.Flags().Uint32Var(&instance, "instance", 1, "instance id (0 = class)")
	cmd.Flags().IntVar(&attribute, "attribute", -1, "attribute id (omit for Get_Attributes_All)")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}
