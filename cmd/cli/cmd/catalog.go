// Package cmd - catalog inspection commands
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rut31337/cloudforge/core/catalog"
)

var catalogFlag string

// catalogCmd groups catalog inspection subcommands
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate catalog data",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// catalogValidateCmd loads a catalog and reports the outcome. Any
// malformed file fails the whole load, same as at engine startup.
var catalogValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate a catalog directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		store, err := loadCatalog(dir)
		if err != nil {
			return err
		}
		fmt.Printf("catalog ok: %d sizes, %d image aliases, %d providers (fingerprint %s)\n",
			len(store.Sizes()), len(store.Aliases()), len(store.Providers()),
			store.Fingerprint().Hex()[:12])
		return nil
	},
}

// catalogFlavorsCmd lists flavor mappings
var catalogFlavorsCmd = &cobra.Command{
	Use:   "flavors",
	Short: "List size to machine type mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadCatalog(catalogFlag)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SIZE\tPROVIDER\tMACHINE TYPE\tVCPU\tMEM MB\tCOST/HR")
		store.AllFlavors(func(entry *catalog.FlavorEntry) bool {
			for _, p := range entry.Providers() {
				for _, d := range entry.Descriptors(p) {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
						entry.Size(), p, d.MachineType, d.VCPUs, d.MemoryMB,
						d.HourlyCost.StringFixed(4))
				}
			}
			return true
		})
		return tw.Flush()
	},
}

// catalogImagesCmd lists image alias rules
var catalogImagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List image alias rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadCatalog(catalogFlag)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ALIAS\tPROVIDER\tRULE\tVISIBILITY\tDYNAMIC")
		for _, name := range store.Aliases() {
			alias, _ := store.Alias(name)
			for _, p := range alias.Providers() {
				rule, _ := alias.Rule(p)
				ref := rule.Literal
				if rule.Pattern != "" {
					ref = rule.Pattern
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n",
					name, p, ref, rule.Visibility, rule.Dynamic)
			}
		}
		return tw.Flush()
	},
}

func init() {
	catalogCmd.PersistentFlags().StringVarP(&catalogFlag, "catalog", "c", "", "catalog directory (embedded defaults when unset)")
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogFlavorsCmd)
	catalogCmd.AddCommand(catalogImagesCmd)
}
