package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/fatflowers/donorsync/internal/app/service/diagnostics"
	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
)

type checkResult struct {
	Connection *diagnostics.Connection `json:"connection"`
	Codes      diagnostics.CodeReport  `json:"codes"`
}

func NewCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Test the DonorPerfect connection and the configured codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd.Context())
			defer cancel()
			return withServices(opts, func(s *Services) error {
				return runCheck(ctx, s.Diagnostics, newPrinter(opts, cmd.OutOrStdout()))
			})
		},
	}
}

func runCheck(ctx context.Context, d Diagnostics, p *printer) error {
	conn, err := d.TestConnection(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "connection test failed", err)
	}
	codes, err := d.TestCodes(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "code check failed", err)
	}
	res := checkResult{Connection: conn, Codes: codes}
	if err := p.print(res, func(w io.Writer) { writeCheck(w, res) }); err != nil {
		return err
	}
	if missing := lo.CountBy(lo.Values(codes), func(c diagnostics.CodeCheck) bool { return !c.Valid }); missing > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d code(s) missing in DPCODES", missing))
	}
	return nil
}

func writeCheck(w io.Writer, r checkResult) {
	fmt.Fprintln(w, r.Connection.Message)
	names := lo.Keys(r.Codes)
	sort.Strings(names)
	for _, name := range names {
		c := r.Codes[name]
		state := "ok"
		switch {
		case c.Error != "":
			state = "error: " + c.Error
		case !c.Valid:
			state = "MISSING"
		}
		fmt.Fprintf(w, "%-10s %s=%s %s\n", name, c.FieldName, c.Code, state)
	}
}

func NewCodeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Manage DonorPerfect code tables",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <field-name> <code> [description]",
		Short: "Add a code to DPCODES",
		Long: `Add a code to DPCODES, e.g. the sub-solicit codes gifts are tagged with.

Example:
  donorsync code create SUB_SOLICIT_CODE ONETIME "One-time donation"
  donorsync code create SUB_SOLICIT_CODE RECURRING "Recurring donation"`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := donorperfect.CodeInput{FieldName: args[0], Code: args[1]}
			if len(args) == 3 {
				in.Description = args[2]
			}
			ctx, cancel := commandContext(cmd.Context())
			defer cancel()
			return withServices(opts, func(s *Services) error {
				if err := s.Diagnostics.CreateCode(ctx, in); err != nil {
					return WrapExitError(ExitCommandError, "failed to create code", err)
				}
				return newPrinter(opts, cmd.OutOrStdout()).print(in, func(w io.Writer) {
					fmt.Fprintf(w, "created %s=%s\n", in.FieldName, in.Code)
				})
			})
		},
	})
	return cmd
}
