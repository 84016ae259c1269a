// Command utsfctl is the UTSF Manager control-plane CLI: audit, repair,
// repair-all, and rollback operate directly on the files in a directory,
// independent of any running quoted process (spec.md 6).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pinggolf/freight-quote-core/internal/config"
	"github.com/pinggolf/freight-quote-core/internal/mpc"
	"github.com/pinggolf/freight-quote-core/internal/queue"
	"github.com/pinggolf/freight-quote-core/internal/utsf"
)

const exitUsage = 1
const exitNotFound = 2
const exitOutOfBounds = 3

var editorID string

var rootCmd = &cobra.Command{
	Use:           "utsfctl",
	Short:         "UTSF Manager control plane: audit, repair, and rollback vendor coverage files",
	SilenceUsage:  false,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&editorID, "editor", "utsfctl", "editor id recorded in the audit log")
	rootCmd.AddCommand(auditCmd, compareCmd, repairCmd, repairAllCmd, rollbackCmd, cancelCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a command error to spec.md 6's documented exit codes.
func exitCodeFor(err error) int {
	switch e := err.(type) {
	case *exitError:
		return e.code
	default:
		return exitUsage
	}
}

// exitError carries a specific process exit code alongside its message.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func newManager() (*utsf.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &exitError{code: exitUsage, msg: fmt.Sprintf("failed to load configuration: %v", err)}
	}

	catalog, err := mpc.Load(cfg.MPCPath)
	if err != nil {
		return nil, &exitError{code: exitUsage, msg: fmt.Sprintf("failed to load master pincode catalog: %v", err)}
	}

	return utsf.NewManager(cfg.UTSFDir, catalog, cfg.CompressThreshold), nil
}

var auditCmd = &cobra.Command{
	Use:   "audit [vendorId]",
	Short: "Audit one vendor, or every vendor if none given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		report, err := manager.Audit(args[0])
		if err != nil {
			return &exitError{code: exitNotFound, msg: fmt.Sprintf("audit %s: %v", args[0], err)}
		}
		printAudit(report)
		return nil
	}

	reports, errs := manager.AuditAll()
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
	for _, report := range reports {
		printAudit(report)
	}
	return nil
}

func printAudit(r *utsf.AuditReport) {
	fmt.Printf("%-24s governance=%-5t stored=%.4f computed=%.4f overrides=%-3d needsRepair=%t\n",
		r.VendorID, r.HasGovernance, r.StoredCompliance, r.ComputedCompliance, r.OverrideCount, r.NeedsRepair)
}

var compareCmd = &cobra.Command{
	Use:   "compare <vendorId>",
	Short: "Show per-zone master/served/missing pincode detail for one vendor",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompare,
}

func runCompare(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	statuses, err := manager.Compare(args[0])
	if err != nil {
		return &exitError{code: exitNotFound, msg: fmt.Sprintf("compare %s: %v", args[0], err)}
	}

	for _, s := range statuses {
		fmt.Printf("%-6s master=%-5d served=%-5d missing=%-5d %v\n", s.Zone, s.MasterCount, s.ServedCount, s.MissingCount, s.MissingPincodes)
	}
	return nil
}

var repairCmd = &cobra.Command{
	Use:   "repair <vendorId>",
	Short: "Repair one vendor's UTSF file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepair,
}

func runRepair(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	result, err := manager.Repair(args[0], editorID)
	if err != nil {
		return &exitError{code: exitNotFound, msg: fmt.Sprintf("repair %s: %v", args[0], err)}
	}

	fmt.Printf("repaired %s: governanceBackfilled=%t versionBumped=%t promotedZones=%v unblocked=%d compliance %.4f -> %.4f\n",
		result.VendorID, result.BackfilledGovernance, result.VersionBumped, result.PromotedZones,
		result.UnblockedCount, result.ComplianceBefore, result.ComplianceAfter)
	return nil
}

var repairAllCmd = &cobra.Command{
	Use:   "repair-all",
	Short: "Repair every vendor's UTSF file",
	Args:  cobra.NoArgs,
	RunE:  runRepairAll,
}

func runRepairAll(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	results, errs := manager.RepairAll(editorID)
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
	for _, result := range results {
		fmt.Printf("repaired %s: compliance %.4f -> %.4f\n", result.VendorID, result.ComplianceBefore, result.ComplianceAfter)
	}
	return nil
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <runId>",
	Short: "Cancel an in-flight repair-all run on whichever coordinator owns it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return &exitError{code: exitUsage, msg: fmt.Sprintf("failed to load configuration: %v", err)}
	}

	natsManager, err := queue.NewManager(cfg.NATSURL)
	if err != nil {
		return &exitError{code: exitUsage, msg: fmt.Sprintf("failed to connect to NATS: %v", err)}
	}
	defer natsManager.Close()

	runID := args[0]
	if err := natsManager.Publish(queue.GetRepairCancelSubject(runID), nil); err != nil {
		return &exitError{code: exitUsage, msg: fmt.Sprintf("cancel %s: %v", runID, err)}
	}

	fmt.Printf("cancellation broadcast for repair run %s\n", runID)
	return nil
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <vendorId> <versionIndex>",
	Short: "Restore a vendor's file to a prior recorded snapshot",
	Args:  cobra.ExactArgs(2),
	RunE:  runRollback,
}

func runRollback(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	vendorID := args[0]
	var versionIndex int
	if _, scanErr := fmt.Sscanf(args[1], "%d", &versionIndex); scanErr != nil {
		return &exitError{code: exitUsage, msg: fmt.Sprintf("invalid version index %q", args[1])}
	}

	if err := manager.Rollback(vendorID, versionIndex, editorID); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &exitError{code: exitNotFound, msg: err.Error()}
		}
		return &exitError{code: exitOutOfBounds, msg: err.Error()}
	}

	fmt.Printf("rolled back %s to update index %d\n", vendorID, versionIndex)
	return nil
}
