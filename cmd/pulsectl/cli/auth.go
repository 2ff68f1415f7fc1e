package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/pulse/internal/async"
	"github.com/odyssey-erp/pulse/internal/auth"
)

type AuthCmd struct{}

func NewAuthCmd() *AuthCmd {
	return &AuthCmd{}
}

func (c *AuthCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run the email verification and password reset flows",
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify an email address with the token from the verification mail",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := cmd.Flags().GetString("token")
			if err != nil {
				return fmt.Errorf("failed to get token flag: %w", err)
			}
			return runFlow(cmd, func(client *auth.Client) *auth.Flow[auth.VerifyRequest] {
				return auth.NewFlow[auth.VerifyRequest](client.Verify, 0)
			}, auth.VerifyRequest{Token: token})
		},
	}
	verify.Flags().String("token", "", "Verification token")

	request := &cobra.Command{
		Use:   "reset-request",
		Short: "Request a password reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := cmd.Flags().GetString("email")
			if err != nil {
				return fmt.Errorf("failed to get email flag: %w", err)
			}
			return runFlow(cmd, func(client *auth.Client) *auth.Flow[auth.ResetRequest] {
				return auth.NewFlow[auth.ResetRequest](client.RequestReset, 0)
			}, auth.ResetRequest{Email: email})
		},
	}
	request.Flags().String("email", "", "Account email address")

	confirm := &cobra.Command{
		Use:   "reset-confirm",
		Short: "Choose a new password using a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req auth.ResetConfirmRequest
			var err error
			if req.Token, err = cmd.Flags().GetString("token"); err != nil {
				return fmt.Errorf("failed to get token flag: %w", err)
			}
			if req.NewPassword, err = cmd.Flags().GetString("password"); err != nil {
				return fmt.Errorf("failed to get password flag: %w", err)
			}
			if req.Confirm, err = cmd.Flags().GetString("confirm"); err != nil {
				return fmt.Errorf("failed to get confirm flag: %w", err)
			}
			return runFlow(cmd, func(client *auth.Client) *auth.Flow[auth.ResetConfirmRequest] {
				return auth.NewFlow[auth.ResetConfirmRequest](client.ConfirmReset, 0)
			}, req)
		},
	}
	confirm.Flags().String("token", "", "Reset token from the mail")
	confirm.Flags().String("password", "", "New password")
	confirm.Flags().String("confirm", "", "New password again")

	cmd.AddCommand(verify, request, confirm)
	return cmd
}

func runFlow[R comparable](cmd *cobra.Command, build func(*auth.Client) *auth.Flow[R], req R) error {
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	client := auth.NewClient(g.api, &http.Client{Timeout: g.timeout})
	flow := build(client)
	defer flow.Close()

	if err := flow.Submit(req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
	defer cancel()
	state, err := flow.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for response: %w", err)
	}
	return report(cmd.OutOrStdout(), state)
}

func report[R comparable](w io.Writer, state async.State[R, auth.Response]) error {
	if state.Status == async.StatusFailed {
		return state.Err
	}
	_, err := fmt.Fprintln(w, state.Value.Message)
	return err
}
