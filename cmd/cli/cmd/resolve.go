// Package cmd - resolve command
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rut31337/cloudforge/core/engine"
	"github.com/rut31337/cloudforge/core/output"
	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/core/version"
	"github.com/rut31337/cloudforge/internal/config"
)

var (
	outputFormat   string
	validationMode string
	catalogDir     string
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve [request-file]",
	Short: "Resolve an instance request document",
	Long: `Resolve every instance in a YAML request document to concrete
per-provider machine types, images, and versions, ranked by effective
hourly cost.

Examples:
  cloudforge resolve instances.yaml
  cloudforge resolve --format json instances.yaml
  cloudforge resolve --mode permissive --catalog ./catalog instances.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format (cli, json)")
	resolveCmd.Flags().StringVarP(&validationMode, "mode", "m", "", "version validation mode (strict, permissive)")
	resolveCmd.Flags().StringVarP(&catalogDir, "catalog", "c", "", "catalog directory (embedded defaults when unset)")
	resolveCmd.Flags().DurationP("timeout", "t", 2*time.Minute, "overall resolution deadline")
}

func runResolve(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	doc, err := loadRequestDocument(args[0])
	if err != nil {
		return err
	}

	store, err := loadCatalog(catalogDir)
	if err != nil {
		return err
	}

	cfg := config.Get()
	mode := cfg.Validation.Mode
	if validationMode != "" {
		mode = validationMode
	}
	vmode, err := version.ParseMode(mode)
	if err != nil {
		return err
	}

	eng := engine.New(store, buildGateway(ctx), engine.Options{
		Validation:  vmode,
		VersionTTL:  time.Duration(cfg.Discovery.VersionTTLSeconds) * time.Second,
		Concurrency: cfg.Discovery.Concurrency,
	})
	result, err := eng.ResolveDocument(ctx, doc)
	if err != nil {
		return err
	}

	format := outputFormat
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	formatter, err := output.ForFormat(format)
	if err != nil {
		return err
	}
	if err := formatter.Render(os.Stdout, result); err != nil {
		return err
	}

	if result.Failed() {
		return fmt.Errorf("one or more instances failed to resolve")
	}
	return nil
}

func loadRequestDocument(path string) (*types.RequestDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc types.RequestDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("request file unusable: %s: %w", path, err)
	}
	return &doc, nil
}
