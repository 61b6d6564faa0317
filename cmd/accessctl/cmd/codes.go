package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hospitalhub/accessgate/internal/model"
)

var (
	flagNote      string
	flagValidOnly bool
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Issue, list and revoke access codes",
}

var codesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Issue a new access code valid for one hour",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		username, err := apiClient.Me(cmd.Context())
		if err != nil {
			return describe("fetching session", err)
		}

		code, err := apiClient.Generate(cmd.Context(), username, flagNote)
		if err != nil {
			return describe("generating code", err)
		}
		if flagJSON {
			printJSON(code)
			return nil
		}
		codeDetail(os.Stdout, code, time.Now())
		return nil
	},
}

var codesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List access codes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		var (
			codes []model.AccessCode
			err   error
		)
		if flagValidOnly {
			codes, err = apiClient.ListValid(cmd.Context())
		} else {
			codes, err = apiClient.List(cmd.Context())
		}
		if err != nil {
			return describe("listing codes", err)
		}
		if flagJSON {
			printJSON(codes)
			return nil
		}
		codeTable(os.Stdout, codes, time.Now())
		return nil
	},
}

var codesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate an access code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		ok, err := apiClient.Deactivate(cmd.Context(), args[0])
		if err != nil {
			return describe("deactivating code", err)
		}
		if !ok {
			return fmt.Errorf("access code %s not found", args[0])
		}
		fmt.Printf("Deactivated: %s\n", args[0])
		return nil
	},
}

var codesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an access code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		ok, err := apiClient.Delete(cmd.Context(), args[0])
		if err != nil {
			return describe("deleting code", err)
		}
		if !ok {
			return fmt.Errorf("access code %s not found", args[0])
		}
		fmt.Printf("Deleted: %s\n", args[0])
		return nil
	},
}

var codesValidateCmd = &cobra.Command{
	Use:   "validate <code>",
	Short: "Check a code and record a use if it is valid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := apiClient.Validate(cmd.Context(), args[0])
		if err != nil {
			return describe("validating code", err)
		}
		if flagJSON {
			printJSON(result)
			return nil
		}
		if !result.Valid {
			return fmt.Errorf("access code rejected: %s", result.Reason)
		}
		if result.Code != nil {
			fmt.Printf("Valid, used %d time(s)\n", result.Code.UsageCount)
			return nil
		}
		fmt.Println("Valid")
		return nil
	},
}

func init() {
	codesGenerateCmd.Flags().StringVar(&flagNote, "note", "", "Optional note stored with the code")
	codesListCmd.Flags().BoolVar(&flagValidOnly, "valid", false, "Only show active, unexpired codes")

	codesCmd.AddCommand(codesGenerateCmd, codesListCmd, codesDeactivateCmd, codesDeleteCmd, codesValidateCmd)
	rootCmd.AddCommand(codesCmd)
}
