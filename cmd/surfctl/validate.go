package main

import (
	"fmt"

	"github.com/kosmproject/surfkit/surface/pixel"
	"github.com/kosmproject/surfkit/surface/registry"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every registry entry for sane geometry",
		Long: `The validate command attaches to the shared registry (the header and
capacity are verified on attach) and then checks every live entry: positive
dimensions, a known pixel format, a plausible plane count and a row stride
wide enough for the pixels it claims to hold.

Example:
  surfctl validate
  surfctl validate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
	return cmd
}

type validationProblem struct {
	ID      uint64 `json:"id"`
	Problem string `json:"problem"`
}

func runValidate() error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	printVerbose("Attached registry: %s\n", reg.Path())

	var (
		checked  int
		problems []validationProblem
	)
	complain := func(id registry.SurfaceID, format string, args ...interface{}) {
		problems = append(problems, validationProblem{
			ID:      uint64(id),
			Problem: fmt.Sprintf(format, args...),
		})
	}
	reg.Walk(func(id registry.SurfaceID, info registry.Info) bool {
		checked++
		if info.Width <= 0 || info.Height <= 0 {
			complain(id, "non-positive dimensions %dx%d", info.Width, info.Height)
		}
		if !info.Format.Known() {
			complain(id, "unknown pixel format %d", int(info.Format))
		}
		if info.PlaneCount < 1 || info.PlaneCount > 3 {
			complain(id, "implausible plane count %d", info.PlaneCount)
		}
		if info.BytesPerRow < info.Width*info.BytesPerElement {
			complain(id, "row stride %d narrower than %d pixels of %d bytes",
				info.BytesPerRow, info.Width, info.BytesPerElement)
		}
		if info.AllocSize < int64(info.BytesPerRow)*int64(info.Height) {
			complain(id, "allocation %d smaller than plane 0 (%d)",
				info.AllocSize, int64(info.BytesPerRow)*int64(info.Height))
		}
		if pc := pixel.PlaneCount(info.Format); pc != info.PlaneCount {
			complain(id, "format %s expects %d plane(s), entry records %d",
				info.Format, pc, info.PlaneCount)
		}
		return true
	})

	if jsonOut {
		return printJSON(map[string]interface{}{
			"file":     reg.Path(),
			"checked":  checked,
			"valid":    len(problems) == 0,
			"problems": problems,
		})
	}

	printInfo("\nValidating %s...\n\n", reg.Path())
	printInfo("  Header valid, capacity %d\n", reg.Capacity())
	printInfo("  Entries checked: %d\n", checked)
	if len(problems) == 0 {
		printInfo("\nResult: all entries valid\n")
		return nil
	}
	for _, p := range problems {
		printInfo("  surface %d: %s\n", p.ID, p.Problem)
	}
	return fmt.Errorf("%d invalid entr(ies) found", len(problems))
}
