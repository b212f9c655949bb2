package cmd

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MeKo-Tech/pdfcodes/internal/testutil"
)

// resetFlags restores every flag to its default so commands can be executed
// repeatedly within one test binary.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its trimmed output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return strings.TrimSpace(buf.String()), err
}

func writeCodePNG(t *testing.T, dir, name, payload string) string {
	t.Helper()
	page := testutil.Page(700, 300, testutil.Placement{Image: testutil.MustCode128(t, payload), At: image.Pt(60, 60)})
	return testutil.MustWriteFile(t, dir, name, testutil.MustEncode(t, name, page))
}

func writeBlankPDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	imgs := make([]image.Image, pages)
	for i := range imgs {
		imgs[i] = testutil.Page(200, 200)
	}
	return testutil.MustWriteFile(t, dir, name, testutil.MustPDF(t, imgs...))
}
